package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/at-ishikawa/cantocards/internal/bootstrap"
	"github.com/at-ishikawa/cantocards/internal/record"
)

func newImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import an exported Anki file into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loadConfig() > %w", err)
			}

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("os.Open(%s) > %w", args[0], err)
			}
			defer file.Close()

			records, err := record.Import(file)
			if err != nil {
				return fmt.Errorf("record.Import() > %w", err)
			}

			normalizer, err := bootstrap.NewNormalizer(cfg)
			if err != nil {
				return fmt.Errorf("bootstrap.NewNormalizer() > %w", err)
			}

			ctx := cmd.Context()
			store, closeStore, err := bootstrap.OpenStore(ctx, cfg)
			if err != nil {
				return fmt.Errorf("bootstrap.OpenStore() > %w", err)
			}
			defer func() {
				_ = closeStore()
			}()

			imported := 0
			for _, rec := range records {
				rec.Word = normalizer.Word(rec.Word.Simplified)
				if err := store.Upsert(ctx, &rec); err != nil {
					color.Yellow("Skipped %s: %v", rec.Word.Simplified, err)
					continue
				}
				imported++
			}
			color.Green("Imported %d of %d records", imported, len(records))
			return nil
		},
	}
}

func newRecordsCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "records",
		Short: "Manage the stored sentences",
	}

	order := orderFlag(record.OrderInsertion)
	listCommand := &cobra.Command{
		Use:   "list",
		Short: "List the stored records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loadConfig() > %w", err)
			}
			ctx := cmd.Context()
			store, closeStore, err := bootstrap.OpenStore(ctx, cfg)
			if err != nil {
				return fmt.Errorf("bootstrap.OpenStore() > %w", err)
			}
			defer func() {
				_ = closeStore()
			}()

			records, err := store.List(ctx, record.Order(order))
			if err != nil {
				return fmt.Errorf("store.List() > %w", err)
			}
			bold := color.New(color.Bold)
			for _, rec := range records {
				_, _ = bold.Println(rec.Word.String())
				fmt.Printf("  %s\n  %s\n", rec.MandarinSentence, rec.CantoneseSentence)
			}
			return nil
		},
	}
	listCommand.Flags().Var(&order, "order", fmt.Sprintf("record order. Possible values are %v", record.AllOrders))

	deleteCommand := &cobra.Command{
		Use:   "delete <word>...",
		Short: "Delete the records of words",
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
			ctx := cmd.Context()
			store, closeStore, err := bootstrap.OpenStore(ctx, cfg)
			if err != nil {
				return fmt.Errorf("bootstrap.OpenStore() > %w", err)
			}
			defer func() {
				_ = closeStore()
			}()

			for _, arg := range args {
				word := normalizer.Word(arg)
				deleted, err := store.Delete(ctx, word.Simplified)
				if err != nil {
					return fmt.Errorf("store.Delete(%s) > %w", word.Simplified, err)
				}
				if deleted {
					color.Green("Deleted %s", word.Simplified)
				} else {
					color.Yellow("No record for %s", word.Simplified)
				}
			}
			return nil
		},
	}

	command.AddCommand(listCommand, deleteCommand)
	return command
}
