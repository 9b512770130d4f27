// Package pdf renders markdown study sheets as PDF files.
package pdf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mandolyte/mdtopdf"
)

// fontFamily is the name the configured TrueType font is registered under.
const fontFamily = "sheet"

// ErrNoFont is returned when no TrueType font is configured. The core PDF
// fonts only cover Latin-1, so Chinese text needs an embedded font.
var ErrNoFont = errors.New("a UTF-8 TrueType font is required, set pdf.font_file")

// withFont embeds the TrueType font and switches every text style to it.
func withFont(font []byte) mdtopdf.RenderOption {
	return func(r *mdtopdf.PdfRenderer) {
		// Emphasis and headings ask for bold and italic variants.
		for _, style := range []string{"", "B", "I", "BI"} {
			r.Pdf.AddUTF8FontFromBytes(fontFamily, style, font)
		}
		for _, styler := range []*mdtopdf.Styler{
			&r.Normal, &r.Link, &r.Backtick, &r.Code, &r.Blockquote,
			&r.H1, &r.H2, &r.H3, &r.H4, &r.H5, &r.H6,
			&r.THeader, &r.TBody,
		} {
			styler.Font = fontFamily
		}
		// The first paragraph state was pushed with the default font.
		r.UpdateParagraphStyler(r.Normal)
	}
}

// Render writes markdown content to pdfPath using the TrueType font at fontFile.
func Render(content []byte, pdfPath, fontFile string) error {
	if fontFile == "" {
		return ErrNoFont
	}
	font, err := os.ReadFile(fontFile)
	if err != nil {
		return fmt.Errorf("os.ReadFile(%s) > %w", fontFile, err)
	}

	if dir := filepath.Dir(pdfPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("os.MkdirAll(%s) > %w", dir, err)
		}
	}
	renderer := mdtopdf.NewPdfRenderer("P", "A4", pdfPath, "", []mdtopdf.RenderOption{withFont(font)}, mdtopdf.LIGHT)
	if err := renderer.Pdf.Error(); err != nil {
		return fmt.Errorf("font %s > %w", fontFile, err)
	}
	if err := renderer.Process(content); err != nil {
		return fmt.Errorf("renderer.Process() > %w", err)
	}
	return nil
}

// ConvertMarkdownToPDF converts a markdown file to a PDF next to it and
// returns the absolute path of the PDF.
func ConvertMarkdownToPDF(markdownPath, fontFile string) (string, error) {
	if !strings.HasSuffix(markdownPath, ".md") {
		return "", fmt.Errorf("input file must have .md extension: %s", markdownPath)
	}

	content, err := os.ReadFile(markdownPath)
	if err != nil {
		return "", fmt.Errorf("os.ReadFile(%s) > %w", markdownPath, err)
	}

	pdfPath := strings.TrimSuffix(markdownPath, ".md") + ".pdf"
	if err := Render(content, pdfPath, fontFile); err != nil {
		return "", err
	}

	absPath, err := filepath.Abs(pdfPath)
	if err != nil {
		return pdfPath, nil
	}
	return absPath, nil
}
