package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/at-ishikawa/cantocards/internal/bootstrap"
	"github.com/at-ishikawa/cantocards/internal/pipeline"
)

func newGenerateCommand() *cobra.Command {
	var (
		inputFile     string
		retryFailures bool
		skipExisting  bool
	)

	command := &cobra.Command{
		Use:   "generate [words...]",
		Short: "Generate Mandarin and Cantonese sentences for a batch of words",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loadConfig() > %w", err)
			}
			if cmd.Flags().Changed("skip-existing") {
				cfg.Pipeline.SkipExisting = skipExisting
			}
			if inputFile == "" {
				inputFile = cfg.Input.File
			}

			batch, err := readGenerateBatch(args, inputFile, retryFailures, cfg.Output.FailuresFile)
			if err != nil {
				return err
			}
			if len(batch) == 0 {
				color.Yellow("No words to generate")
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, closeStore, err := bootstrap.OpenStore(ctx, cfg)
			if err != nil {
				return fmt.Errorf("bootstrap.OpenStore() > %w", err)
			}
			defer func() {
				if err := closeStore(); err != nil {
					slog.Default().Error("failed to close the store", slog.Any("error", err))
				}
			}()

			prompts, err := bootstrap.NewPromptSet(cfg)
			if err != nil {
				return err
			}
			orchestrator, cleanup, err := bootstrap.NewOrchestrator(ctx, cfg, prompts, store)
			defer func() {
				if err := cleanup.Close(); err != nil {
					slog.Default().Error("failed to close the corpus index", slog.Any("error", err))
				}
			}()
			if err != nil {
				return fmt.Errorf("bootstrap.NewOrchestrator() > %w", err)
			}

			report := orchestrator.Run(ctx, batch)
			if err := writeFailuresFile(cfg.Output.FailuresFile, report); err != nil {
				return err
			}
			printReport(report, cfg.Output.FailuresFile)

			if report.Interrupted {
				return errors.New("generation was interrupted")
			}
			return nil
		},
	}

	flags := command.Flags()
	flags.StringVarP(&inputFile, "input", "i", "", "file with one word per line (defaults to input.file)")
	flags.BoolVar(&retryFailures, "retry-failures", false, "generate the words of the failures file of the previous run")
	flags.BoolVar(&skipExisting, "skip-existing", false, "skip words that already have a record")
	return command
}

// readGenerateBatch returns the words given as arguments, or else the words
// of the failures file or the input file.
func readGenerateBatch(args []string, inputFile string, retryFailures bool, failuresFile string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}

	if retryFailures {
		if failuresFile == "" {
			return nil, errors.New("output.failures_file is not configured")
		}
		file, err := os.Open(failuresFile)
		if err != nil {
			return nil, fmt.Errorf("os.Open(%s) > %w", failuresFile, err)
		}
		defer file.Close()

		failures, err := pipeline.ReadFailures(file)
		if err != nil {
			return nil, fmt.Errorf("pipeline.ReadFailures() > %w", err)
		}
		return pipeline.Words(failures), nil
	}

	if inputFile == "" {
		return nil, errors.New("no words given, pass words as arguments or set --input")
	}
	file, err := os.Open(inputFile)
	if err != nil {
		return nil, fmt.Errorf("os.Open(%s) > %w", inputFile, err)
	}
	defer file.Close()

	batch, err := pipeline.ReadBatch(file)
	if err != nil {
		return nil, fmt.Errorf("pipeline.ReadBatch() > %w", err)
	}
	return batch, nil
}

// writeFailuresFile replaces the failures file with the failures of report.
// A run without failures removes it.
func writeFailuresFile(path string, report pipeline.Report) error {
	if path == "" {
		return nil
	}
	if len(report.Failures) == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("os.Remove(%s) > %w", path, err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("os.MkdirAll > %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("os.Create(%s) > %w", path, err)
	}
	defer file.Close()

	if err := pipeline.WriteFailures(file, report); err != nil {
		return fmt.Errorf("pipeline.WriteFailures() > %w", err)
	}
	return nil
}

func printReport(report pipeline.Report, failuresFile string) {
	bold := color.New(color.Bold)
	_, _ = bold.Println(report.String())
	for _, failure := range report.Failures {
		color.Red("  %s failed at %s: %s", failure.Word, failure.Stage, failure.Reason)
	}
	if len(report.Failures) > 0 && failuresFile != "" {
		color.Yellow("Retry the failed words with: cantocards generate --retry-failures")
	}
	if len(report.Failures) == 0 && !report.Interrupted {
		color.Green("All words were generated")
	}
}

