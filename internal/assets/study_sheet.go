package assets

import (
	_ "embed"
	"fmt"
	"io"
	"time"
)

//go:embed templates/study-sheet.md.go.tmpl
var fallbackStudySheetTemplate string

// StudySheetTemplate is the top-level data structure for study sheet templates
type StudySheetTemplate struct {
	Title string
	Date  time.Time
	Cards []StudyCard
}

// StudyCard is one generated sentence pair
type StudyCard struct {
	Simplified  string
	Traditional string
	Mandarin    string
	Cantonese   string
}

func WriteStudySheet(output io.Writer, templatePath string, templateData StudySheetTemplate) error {
	tmpl, err := parseTemplateWithFallback(templatePath, "study-sheet.md.go.tmpl", fallbackStudySheetTemplate)
	if err != nil {
		return fmt.Errorf("parseTemplateWithFallback() > %w", err)
	}
	if err := tmpl.Execute(output, templateData); err != nil {
		return fmt.Errorf("tmpl.Execute() > %w", err)
	}
	return nil
}
