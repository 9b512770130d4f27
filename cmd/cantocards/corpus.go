package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/at-ishikawa/cantocards/internal/bootstrap"
	"github.com/at-ishikawa/cantocards/internal/dictionary"
)

func newCorpusCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "corpus",
		Short: "Prepare the Words.HK dictionary corpus",
	}

	var entriesDir string
	command.PersistentFlags().StringVar(&entriesDir, "dir", "", "directory of entry files (defaults to corpus.entries_directory)")
	entriesDirectory := func(configured string) string {
		if entriesDir != "" {
			return entriesDir
		}
		return configured
	}

	command.AddCommand(&cobra.Command{
		Use:   "fetch [url]",
		Short: "Download a Words.HK dump into the cache directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loadConfig() > %w", err)
			}
			dumpURL := cfg.Corpus.DumpURL
			if len(args) > 0 {
				dumpURL = args[0]
			}
			if dumpURL == "" {
				return errors.New("no dump url, pass it as an argument or set corpus.dump_url")
			}

			path, err := dictionary.NewFetcher(cfg.Corpus.CacheDirectory).Fetch(cmd.Context(), dumpURL)
			if err != nil {
				return fmt.Errorf("fetcher.Fetch(%s) > %w", dumpURL, err)
			}
			color.Green("Downloaded %s", path)
			return nil
		},
	})

	command.AddCommand(&cobra.Command{
		Use:   "split <dump>",
		Short: "Split a Words.HK dump into one file per entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loadConfig() > %w", err)
			}
			dump, err := dictionary.OpenDump(args[0])
			if err != nil {
				return fmt.Errorf("dictionary.OpenDump(%s) > %w", args[0], err)
			}
			defer dump.Close()

			dir := entriesDirectory(cfg.Corpus.EntriesDirectory)
			written, err := dictionary.Split(dump, dir)
			if err != nil {
				return fmt.Errorf("dictionary.Split() > %w", err)
			}
			color.Green("Wrote %d entry files to %s", written, dir)
			return nil
		},
	})

	command.AddCommand(&cobra.Command{
		Use:   "build",
		Short: "Index the entry files for retrieval",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loadConfig() > %w", err)
			}
			entries, err := dictionary.ReadDirectory(entriesDirectory(cfg.Corpus.EntriesDirectory))
			if err != nil {
				return fmt.Errorf("dictionary.ReadDirectory() > %w", err)
			}

			ctx := cmd.Context()
			index, err := bootstrap.OpenIndex(ctx, cfg)
			if err != nil {
				return err
			}
			defer index.Close()

			indexed, err := index.Build(ctx, entries, cfg.Corpus.BatchSize)
			if err != nil {
				return fmt.Errorf("index.Build() > %w", err)
			}
			color.Green("Indexed %d senses into %s", indexed, cfg.Corpus.IndexFile)
			return nil
		},
	})

	var topK int
	lookupCommand := &cobra.Command{
		Use:   "lookup <word>",
		Short: "Show the entries retrieved for a word",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loadConfig() > %w", err)
			}
			normalizer, err := bootstrap.NewNormalizer(cfg)
			if err != nil {
				return fmt.Errorf("bootstrap.NewNormalizer() > %w", err)
			}
			if topK <= 0 {
				topK = cfg.Corpus.TopK
			}

			ctx := cmd.Context()
			index, err := bootstrap.OpenIndex(ctx, cfg)
			if err != nil {
				return err
			}
			defer index.Close()

			word := normalizer.Word(args[0])
			entries, err := index.Lookup(ctx, word.Traditional, topK)
			if err != nil {
				return fmt.Errorf("index.Lookup(%s) > %w", word.Traditional, err)
			}
			if entries.IsEmpty() {
				color.Yellow("No entries for %s", word)
				return nil
			}
			bold := color.New(color.Bold)
			for _, entry := range entries {
				_, _ = bold.Printf("%d %s (%s)\n", entry.ID, entry.Headword, entry.Register)
				fmt.Println(entry.Text)
			}
			return nil
		},
	}
	lookupCommand.Flags().IntVarP(&topK, "top-k", "k", 0, "number of entries (defaults to corpus.top_k)")
	command.AddCommand(lookupCommand)

	var dryRun bool
	archiveCommand := &cobra.Command{
		Use:   "archive",
		Short: "Move indexed entry files into the done directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loadConfig() > %w", err)
			}

			ctx := cmd.Context()
			index, err := bootstrap.OpenIndex(ctx, cfg)
			if err != nil {
				return err
			}
			defer index.Close()

			ids, err := index.IDs(ctx)
			if err != nil {
				return fmt.Errorf("index.IDs() > %w", err)
			}
			moves, err := dictionary.Archive(entriesDirectory(cfg.Corpus.EntriesDirectory), ids, dryRun)
			if err != nil {
				return fmt.Errorf("dictionary.Archive() > %w", err)
			}
			for _, move := range moves {
				if dryRun {
					fmt.Printf("would move %s -> %s\n", move.Source, move.Target)
				}
			}
			color.Green("%d entry files archived", len(moves))
			return nil
		},
	}
	archiveCommand.Flags().BoolVar(&dryRun, "dry-run", false, "only print the files that would be moved")
	command.AddCommand(archiveCommand)

	return command
}
