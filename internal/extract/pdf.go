package extract

import (
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF implements the PDF extractor: per page,
// {page_number, text}; pages with no extractable text are skipped.
func extractPDF(path string) ([]Unit, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	total := r.NumPage()
	units := make([]Unit, 0, total)
	for i := 1; i <= total; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		units = append(units, Unit{
			Text: text,
			Page: i,
		})
	}
	return units, nil
}
