package parser

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/myckhel/course-pilot/internal/models"
)

// extractCSV renders a bounded textual summary instead of dumping the
// table: column list, row count and a sample of rows. Keeps token usage
// predictable for wide or long files.
func extractCSV(path string) ([]models.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	rows := records[1:]

	var content strings.Builder
	content.WriteString("CSV File Content:\n")
	content.WriteString(fmt.Sprintf("Columns: %s\n", strings.Join(header, ", ")))
	content.WriteString(fmt.Sprintf("Number of rows: %d\n", len(rows)))

	if len(rows) > 0 {
		content.WriteString("\nSample data:\n")
		sample := rows
		if len(sample) > models.CSVSampleRows {
			sample = sample[:models.CSVSampleRows]
		}
		for _, row := range sample {
			content.WriteString(strings.Join(row, "\t"))
			content.WriteString("\n")
		}
		if remaining := len(rows) - models.CSVSampleRows; remaining > 0 {
			content.WriteString(fmt.Sprintf("... and %d more rows", remaining))
		}
	}

	return []models.Chunk{{Content: content.String()}}, nil
}
