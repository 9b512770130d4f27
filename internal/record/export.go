package record

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/at-ishikawa/cantocards/internal/assets"
)

// Header is the fixed header of an exported file that tells the card
// importer how to read the lines that follow.
const Header = "#separator:tab\n#html:true\n"

const sentenceSeparator = "<br><br>"

var fieldReplacer = strings.NewReplacer(
	"\t", " ",
	"\r\n", "<br>",
	"\n", "<br>",
	"\r", "<br>",
)

// Export writes the header and one line per record, in the given order.
// Records missing a field are skipped and reported instead of written.
func Export(w io.Writer, records []GenerationRecord) (int, []ExportError, error) {
	if _, err := io.WriteString(w, Header); err != nil {
		return 0, nil, fmt.Errorf("io.WriteString(header) > %w", err)
	}

	var skipped []ExportError
	written := 0
	for _, rec := range records {
		if reason := corruption(rec); reason != "" {
			skipped = append(skipped, ExportError{
				Kind:   CorruptRecord,
				Word:   rec.Word.Simplified,
				Reason: reason,
			})
			continue
		}

		line := fieldReplacer.Replace(strings.TrimSpace(rec.Word.Simplified)) + "\t" +
			fieldReplacer.Replace(strings.TrimSpace(rec.MandarinSentence)) + sentenceSeparator +
			fieldReplacer.Replace(strings.TrimSpace(rec.CantoneseSentence)) + "\n"
		if _, err := io.WriteString(w, line); err != nil {
			return written, skipped, fmt.Errorf("io.WriteString(%s) > %w", rec.Word.Simplified, err)
		}
		written++
	}
	return written, skipped, nil
}

func corruption(rec GenerationRecord) string {
	switch {
	case strings.TrimSpace(rec.Word.Simplified) == "":
		return "missing simplified word"
	case strings.TrimSpace(rec.MandarinSentence) == "":
		return "missing Mandarin sentence"
	case strings.TrimSpace(rec.CantoneseSentence) == "":
		return "missing Cantonese sentence"
	}
	return ""
}

// ExportAll exports every stored record.
func ExportAll(ctx context.Context, repo Repository, w io.Writer, order Order) (int, []ExportError, error) {
	records, err := repo.List(ctx, order)
	if err != nil {
		return 0, nil, fmt.Errorf("repo.List(%s) > %w", order, err)
	}
	return Export(w, records)
}

// WriteStudySheet renders the records as a markdown study sheet and returns
// the number of cards on it. Incomplete records are left out like in Export.
func WriteStudySheet(w io.Writer, templatePath, title string, date time.Time, records []GenerationRecord) (int, error) {
	cards := make([]assets.StudyCard, 0, len(records))
	for _, rec := range records {
		if corruption(rec) != "" {
			continue
		}
		cards = append(cards, assets.StudyCard{
			Simplified:  rec.Word.Simplified,
			Traditional: rec.Word.Traditional,
			Mandarin:    rec.MandarinSentence,
			Cantonese:   rec.CantoneseSentence,
		})
	}
	if err := assets.WriteStudySheet(w, templatePath, assets.StudySheetTemplate{
		Title: title,
		Date:  date,
		Cards: cards,
	}); err != nil {
		return 0, fmt.Errorf("assets.WriteStudySheet() > %w", err)
	}
	return len(cards), nil
}
