package parser

import (
	"bytes"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
	"golang.org/x/text/encoding/charmap"

	"github.com/myckhel/course-pilot/internal/models"
)

// extractText reads a plain-text file, decoding UTF-8 first and falling
// back to Latin-1 when the bytes are not valid UTF-8.
func extractText(path string) ([]models.Chunk, error) {
	content, err := readTextFile(path)
	if err != nil {
		return nil, err
	}
	return []models.Chunk{{Content: strings.TrimSpace(content)}}, nil
}

func readTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// extractMarkdown parses the file as markdown and collects the text nodes,
// so formatting syntax never reaches the embedding index.
func extractMarkdown(path string) ([]models.Chunk, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(gmtext.NewReader(source))

	var buf bytes.Buffer
	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.Paragraph, *ast.Heading, *ast.ListItem:
			if buf.Len() > 0 {
				buf.WriteString("\n\n")
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	return []models.Chunk{{Content: strings.TrimSpace(buf.String())}}, nil
}

// extractRTF strips RTF control words and groups down to the document text
func extractRTF(path string) ([]models.Chunk, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return []models.Chunk{{Content: strings.TrimSpace(stripRTF(string(raw)))}}, nil
}

func stripRTF(src string) string {
	var out strings.Builder
	i := 0
	for i < len(src) {
		c := src[i]
		switch c {
		case '{', '}':
			i++
		case '\\':
			i++
			if i >= len(src) {
				break
			}
			switch {
			case src[i] == '\'' && i+2 < len(src):
				// hex escape, Latin-1 byte
				if b, err := strconv.ParseUint(src[i+1:i+3], 16, 8); err == nil {
					out.WriteRune(rune(b))
				}
				i += 3
			case src[i] == '\\' || src[i] == '{' || src[i] == '}':
				out.WriteByte(src[i])
				i++
			default:
				word := i
				for i < len(src) && (isAlpha(src[i]) || src[i] == '-' || isDigit(src[i])) {
					i++
				}
				name := src[word:i]
				if i < len(src) && src[i] == ' ' {
					i++
				}
				if strings.HasPrefix(name, "par") || strings.HasPrefix(name, "line") {
					out.WriteByte('\n')
				}
			}
		case '\r', '\n':
			i++
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String()
}

func isAlpha(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }
func isDigit(b byte) bool { return b >= '0' && b <= '9' }
