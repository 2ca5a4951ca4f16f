package parser

import (
	"archive/zip"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"

	"github.com/myckhel/course-pilot/internal/models"
)

func extractDOCX(path string) ([]models.Chunk, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	content := r.Editable().GetContent()
	var paragraphs []string
	for _, p := range strings.Split(content, "\n") {
		if strings.TrimSpace(p) != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	if len(paragraphs) == 0 {
		return nil, nil
	}
	return []models.Chunk{{Content: strings.Join(paragraphs, "\n\n")}}, nil
}

// extractPPTX scans the slide XML parts of the pptx archive; each slide
// becomes one segment numbered by its position in the deck. Part names
// carry the slide number (slide12.xml), so ordering must be numeric:
// lexicographic sorting would place slide10 before slide2.
func extractPPTX(path string) ([]models.Chunk, error) {
	f, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	type slidePart struct {
		number int
		file   *zip.File
	}
	var slides []slidePart
	for _, file := range f.File {
		if !strings.HasPrefix(file.Name, "ppt/slides/slide") || !strings.HasSuffix(file.Name, ".xml") {
			continue
		}
		num, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(file.Name, "ppt/slides/slide"), ".xml"))
		if err != nil {
			continue
		}
		slides = append(slides, slidePart{number: num, file: file})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].number < slides[j].number })

	var segments []models.Chunk
	for _, slide := range slides {
		rc, err := slide.file.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		segments = append(segments, models.Chunk{
			Content:    extractTextFromXML(string(data)),
			PageNumber: slide.number,
		})
	}
	return segments, nil
}

// extractTextFromXML pulls the text runs (<a:t> elements) out of slide XML
func extractTextFromXML(xmlContent string) string {
	var text strings.Builder
	parts := strings.Split(xmlContent, "<a:t>")
	for i, part := range parts {
		if i == 0 {
			continue
		}
		if endIdx := strings.Index(part, "</a:t>"); endIdx >= 0 {
			text.WriteString(part[:endIdx] + " ")
		}
	}
	return text.String()
}

func extractXLSX(path string) ([]models.Chunk, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, err
	}

	var segments []models.Chunk
	for sheetNum, sheet := range f.Sheets {
		var text strings.Builder
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
		segments = append(segments, models.Chunk{
			Content:    text.String(),
			PageNumber: sheetNum + 1,
		})
	}
	return segments, nil
}

func extractODS(path string) ([]models.Chunk, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var segments []models.Chunk
	for sheetNum, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		var text strings.Builder
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheetName))
		for _, row := range rows {
			text.WriteString(strings.Join(row, "\t"))
			text.WriteString("\n")
		}
		segments = append(segments, models.Chunk{
			Content:    text.String(),
			PageNumber: sheetNum + 1,
		})
	}
	return segments, nil
}
