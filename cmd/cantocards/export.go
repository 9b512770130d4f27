package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/at-ishikawa/cantocards/internal/bootstrap"
	"github.com/at-ishikawa/cantocards/internal/pdf"
	"github.com/at-ishikawa/cantocards/internal/record"
)

type Format string

func (f *Format) Set(val string) error {
	for _, format := range allFormats {
		if val == string(format) {
			*f = format
			return nil
		}
	}
	return fmt.Errorf("invalid format: %s", val)
}

func (f Format) String() string {
	return string(f)
}

func (f *Format) Type() string {
	return "Format"
}

const (
	FormatAnki     Format = "anki"
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
)

// orderFlag adapts record.Order to a flag.
type orderFlag record.Order

func (o *orderFlag) Set(val string) error {
	order, err := record.ParseOrder(val)
	if err != nil {
		return err
	}
	*o = orderFlag(order)
	return nil
}

func (o orderFlag) String() string {
	return string(o)
}

func (o *orderFlag) Type() string {
	return "Order"
}

var (
	_          pflag.Value = (*Format)(nil)
	_          pflag.Value = (*orderFlag)(nil)
	allFormats             = []Format{FormatAnki, FormatMarkdown, FormatPDF}
)

func newExportCommand() *cobra.Command {
	var (
		outputFile string
		title      string
	)
	format := FormatAnki
	order := orderFlag("")

	command := &cobra.Command{
		Use:   "export",
		Short: "Export the stored sentences as an Anki import file or a study sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loadConfig() > %w", err)
			}
			if order == "" {
				order = orderFlag(cfg.Output.Order)
			}
			if outputFile == "" {
				outputFile = defaultExportPath(format, cfg.Output.File, cfg.Output.StudySheet)
			}

			if outputFile == "-" && format == FormatPDF {
				return fmt.Errorf("a pdf cannot be written to stdout, set --output")
			}
			// Messages go to stderr while the export itself is on stdout.
			messages := cmd.OutOrStdout()
			if outputFile == "-" {
				messages = cmd.ErrOrStderr()
			}

			ctx := cmd.Context()
			store, closeStore, err := bootstrap.OpenStore(ctx, cfg)
			if err != nil {
				return fmt.Errorf("bootstrap.OpenStore() > %w", err)
			}
			defer func() {
				_ = closeStore()
			}()

			switch format {
			case FormatMarkdown, FormatPDF:
				records, err := store.List(ctx, record.Order(order))
				if err != nil {
					return fmt.Errorf("store.List() > %w", err)
				}
				var buf bytes.Buffer
				cards, err := record.WriteStudySheet(&buf, cfg.Templates.StudySheet, title, time.Now(), records)
				if err != nil {
					return err
				}
				if format == FormatPDF {
					if err := pdf.Render(buf.Bytes(), outputFile, cfg.PDF.FontFile); err != nil {
						return fmt.Errorf("pdf.Render() > %w", err)
					}
				} else if err := writeOutput(cmd.OutOrStdout(), outputFile, func(w io.Writer) error {
					_, err := w.Write(buf.Bytes())
					return err
				}); err != nil {
					return err
				}
				if skipped := len(records) - cards; skipped > 0 {
					_, _ = color.New(color.FgYellow).Fprintf(messages, "Skipped %d incomplete records\n", skipped)
				}
				_, _ = color.New(color.FgGreen).Fprintf(messages, "Wrote a study sheet of %d records to %s\n", cards, outputFile)
				return nil
			default:
				var (
					written int
					skipped []record.ExportError
				)
				if err := writeOutput(cmd.OutOrStdout(), outputFile, func(w io.Writer) error {
					var err error
					written, skipped, err = record.ExportAll(ctx, store, w, record.Order(order))
					return err
				}); err != nil {
					return fmt.Errorf("record.ExportAll() > %w", err)
				}
				for _, exportErr := range skipped {
					_, _ = color.New(color.FgYellow).Fprintf(messages, "Skipped %s: %s\n", exportErr.Word, exportErr.Reason)
				}
				_, _ = color.New(color.FgGreen).Fprintf(messages, "Exported %d records to %s\n", written, outputFile)
				return nil
			}
		},
	}

	flags := command.Flags()
	flags.StringVarP(&outputFile, "output", "o", "", "output file, - for stdout")
	flags.Var(&format, "format", fmt.Sprintf("output format. Possible values are %v", allFormats))
	flags.Var(&order, "order", fmt.Sprintf("record order. Possible values are %v (defaults to output.order)", record.AllOrders))
	flags.StringVar(&title, "title", "Cantonese sentences", "title of a study sheet")
	return command
}

func defaultExportPath(format Format, ankiFile, studySheet string) string {
	switch format {
	case FormatMarkdown:
		return studySheet
	case FormatPDF:
		return strings.TrimSuffix(studySheet, filepath.Ext(studySheet)) + ".pdf"
	default:
		return ankiFile
	}
}

// writeOutput calls write with the file at path, or stdout for "-".
func writeOutput(stdout io.Writer, path string, write func(w io.Writer) error) error {
	if path == "-" {
		return write(stdout)
	}
	if path == "" {
		return fmt.Errorf("no output file is configured")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("os.MkdirAll > %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("os.Create(%s) > %w", path, err)
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func newPDFCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pdf <study-sheet.md>",
		Short: "Convert an edited markdown study sheet to PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loadConfig() > %w", err)
			}
			pdfPath, err := pdf.ConvertMarkdownToPDF(args[0], cfg.PDF.FontFile)
			if err != nil {
				return fmt.Errorf("pdf.ConvertMarkdownToPDF() > %w", err)
			}
			color.Green("Wrote %s", pdfPath)
			return nil
		},
	}
}
