// Package extract pulls text, page counts, and content hashes out of
// uploaded PDF files.
package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Result is the outcome of processing one PDF.
type Result struct {
	Text      string
	PageCount int
	SHA256    string
}

func configuration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PDF validates the file at path and extracts its visible text, page count,
// and content hash.
func PDF(path string) (Result, error) {
	conf := configuration()
	if err := api.ValidateFile(path, conf); err != nil {
		return Result{}, fmt.Errorf("validating PDF: %w", err)
	}
	pageCount, err := api.PageCountFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("counting pages: %w", err)
	}

	hash, err := fileHash(path)
	if err != nil {
		return Result{}, fmt.Errorf("hashing file: %w", err)
	}

	text, err := extractText(path, conf)
	if err != nil {
		return Result{}, err
	}

	return Result{Text: text, PageCount: pageCount, SHA256: hash}, nil
}

// extractText writes the decoded page content streams to a temp directory
// and scans them for literal text strings.
func extractText(path string, conf *model.Configuration) (string, error) {
	tempDir, err := os.MkdirTemp("", "studyhall-extract-*")
	if err != nil {
		return "", fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	if err := api.ExtractContentFile(path, tempDir, nil, conf); err != nil {
		return "", fmt.Errorf("extracting page content: %w", err)
	}

	pages, err := filepath.Glob(filepath.Join(tempDir, "*.txt"))
	if err != nil {
		return "", err
	}
	sort.Strings(pages)

	var sb strings.Builder
	for _, page := range pages {
		raw, err := os.ReadFile(page)
		if err != nil {
			return "", fmt.Errorf("reading extracted content: %w", err)
		}
		if text := contentText(raw); text != "" {
			if sb.Len() > 0 {
				sb.WriteString("\n\n")
			}
			sb.WriteString(text)
		}
	}
	return sb.String(), nil
}

// contentText collects the literal strings shown by text operators in a
// decoded PDF content stream. Kerning arrays and escape sequences are
// handled; positioning is reduced to single spaces, which is enough for
// feeding summaries and question generation.
func contentText(stream []byte) string {
	var sb strings.Builder
	depth := 0
	for i := 0; i < len(stream); i++ {
		c := stream[i]
		if depth == 0 {
			if c == '(' {
				depth = 1
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
			}
			continue
		}
		switch c {
		case '\\':
			if i+1 >= len(stream) {
				break
			}
			i++
			switch e := stream[i]; e {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r', 'f', 'b':
				sb.WriteByte(' ')
			case '(', ')', '\\':
				sb.WriteByte(e)
			default:
				// Octal escapes mostly encode non-ASCII glyphs in
				// font-specific encodings; skip them (up to 3 digits).
				if e >= '0' && e <= '7' {
					for n := 0; n < 2 && i+1 < len(stream) && stream[i+1] >= '0' && stream[i+1] <= '7'; n++ {
						i++
					}
				}
			}
		case '(':
			depth++
			sb.WriteByte('(')
		case ')':
			depth--
			if depth > 0 {
				sb.WriteByte(')')
			}
		default:
			sb.WriteByte(c)
		}
	}
	return strings.TrimSpace(sb.String())
}

// fileHash returns the hex SHA-256 of the file contents, used for duplicate
// upload detection.
func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes returns the hex SHA-256 of in-memory file contents.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
