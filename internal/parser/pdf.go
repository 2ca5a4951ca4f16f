package parser

import (
	"os"

	"github.com/ledongthuc/pdf"

	"github.com/myckhel/course-pilot/internal/models"
)

// extractPDF produces one segment per page carrying the 1-based page number
func extractPDF(path string) ([]models.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, err
	}

	var segments []models.Chunk
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, err
		}
		segments = append(segments, models.Chunk{
			Content:    pageText,
			PageNumber: i,
		})
	}
	return segments, nil
}
