package services

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// MinContentLength is the smallest amount of extracted text worth sending to
// a provider.
const MinContentLength = 100

var (
	ErrEmptyFile       = errors.New("file contains no text")
	ErrUnsupportedFile = errors.New("unsupported file type")
)

// FileService extracts plain text from uploaded study material.
type FileService struct{}

func NewFileService() *FileService {
	return &FileService{}
}

// ExtractText reads an upload and returns its plain text. The format is
// chosen by filename extension; only PDF and TXT are supported.
func (s *FileService) ExtractText(filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read upload %s: %w", filename, err)
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return s.extractPDF(data)
	case ".txt":
		return s.extractTXT(data)
	default:
		return "", fmt.Errorf("%w: %s (upload a PDF or TXT file)", ErrUnsupportedFile, filepath.Ext(filename))
	}
}

func (s *FileService) extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var builder strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not sink the document.
			continue
		}
		if text != "" {
			builder.WriteString(text)
			builder.WriteString("\n\n")
		}
	}

	text := strings.TrimSpace(builder.String())
	if text == "" {
		return "", fmt.Errorf("%w: the PDF might be scanned or image-based", ErrEmptyFile)
	}
	return text, nil
}

func (s *FileService) extractTXT(data []byte) (string, error) {
	var text string
	if utf8.Valid(data) {
		text = string(data)
	} else {
		// Latin-1 fallback: every byte maps directly to the same code point.
		runes := make([]rune, len(data))
		for i, b := range data {
			runes[i] = rune(b)
		}
		text = string(runes)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: the text file appears to be empty", ErrEmptyFile)
	}
	return text, nil
}

// ValidateContent checks that extracted text is long enough and carries
// enough alphanumeric density to be worth a provider call.
func (s *FileService) ValidateContent(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return errors.New("no text content found")
	}
	if len(trimmed) < MinContentLength {
		return fmt.Errorf("text content is too short: provide at least %d characters", MinContentLength)
	}

	meaningful := 0
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			meaningful++
		}
	}
	if meaningful < MinContentLength/2 {
		return errors.New("text content appears to contain mostly non-alphanumeric characters")
	}
	return nil
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// CleanText drops blank lines and collapses all whitespace runs to single
// spaces before the text is embedded in a prompt.
func (s *FileService) CleanText(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	cleaned := strings.Join(kept, "\n")
	cleaned = whitespaceRun.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}
