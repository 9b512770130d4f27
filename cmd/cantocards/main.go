package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile string
)

func main() {
	var debugMode bool
	rootCommand := cobra.Command{
		Use:           "cantocards",
		Short:         "Generate Mandarin and Cantonese example sentences for flashcards",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogger(debugMode, logOutput(cmd))
			return nil
		},
	}
	rootCommand.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCommand.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug mode")

	rootCommand.AddCommand(
		newGenerateCommand(),
		newExportCommand(),
		newPDFCommand(),
		newImportCommand(),
		newRecordsCommand(),
		newCorpusCommand(),
		newNormalizeCommand(),
		newMigrateCommand(),
	)
	if err := rootCommand.Execute(); err != nil {
		if _, fprintfErr := fmt.Fprintf(os.Stderr, "failed to execute a command: %+v\n", err); fprintfErr != nil {
			panic(fmt.Errorf("failed to output an error: %w. Reason: %w", err, fprintfErr))
		}
		os.Exit(1)
	}
	os.Exit(0)
}

// logOutput keeps logs off stdout when a command writes its output there.
func logOutput(cmd *cobra.Command) io.Writer {
	if output := cmd.Flags().Lookup("output"); output != nil && output.Value.String() == "-" {
		return os.Stderr
	}
	return os.Stdout
}

// setupLogger configures the default logger based on debug mode
func setupLogger(debugMode bool, w io.Writer) {
	logLevel := slog.LevelInfo
	if debugMode {
		logLevel = slog.LevelDebug
	}

	slog.SetDefault(
		slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		})),
	)
}
