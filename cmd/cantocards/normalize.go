package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/cantocards/internal/bootstrap"
	"github.com/at-ishikawa/cantocards/internal/database"
)

func newNormalizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <word>...",
		Short: "Print the simplified and traditional forms of words",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loadConfig() > %w", err)
			}
			normalizer, err := bootstrap.NewNormalizer(cfg)
			if err != nil {
				return fmt.Errorf("bootstrap.NewNormalizer() > %w", err)
			}
			for _, arg := range args {
				word := normalizer.Word(arg)
				fmt.Printf("%s\t%s\n", word.Simplified, word.Traditional)
			}
			return nil
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database migrations of the result store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loadConfig() > %w", err)
			}
			db, dialect, err := database.OpenStore(cfg)
			if err != nil {
				return fmt.Errorf("database.OpenStore() > %w", err)
			}
			defer db.Close()

			results, err := database.Migrate(cmd.Context(), db, dialect)
			if err != nil {
				return fmt.Errorf("database.Migrate() > %w", err)
			}
			for _, result := range results {
				fmt.Println(result.String())
			}
			fmt.Printf("%d migrations applied\n", len(results))
			return nil
		},
	}
}
