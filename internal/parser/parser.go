package parser

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// Load reads a file with a format-appropriate reader and returns its text
// content. Unknown extensions are read as plain text.
func Load(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		return loadPDF(path)
	case ".docx":
		return loadDOCX(path)
	case ".pptx":
		return loadPPTX(path)
	case ".xlsx":
		return loadXLSX(path)
	case ".ods":
		return loadODS(path)
	case ".md", ".markdown":
		return loadMarkdown(path)
	default:
		return loadText(path)
	}
}

// loadText reads plain text. Undecodable UTF-8 gets one latin-1 re-decode
// attempt before the file is given up on.
func loadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return string(decoded), nil
}

func loadPDF(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", err
	}
	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return "", fmt.Errorf("failed to read pdf %s: %w", path, err)
	}

	var text strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to extract pdf page %d of %s: %w", i, path, err)
		}
		text.WriteString(pageText)
		text.WriteString("\n\n")
	}
	return text.String(), nil
}

func loadDOCX(path string) (string, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read docx %s: %w", path, err)
	}
	defer r.Close()
	return r.Editable().GetContent(), nil
}

func loadPPTX(path string) (string, error) {
	f, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pptx %s: %w", path, err)
	}
	defer f.Close()

	var text strings.Builder
	for _, file := range f.File {
		if !strings.HasPrefix(file.Name, "ppt/slides/slide") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		text.WriteString(extractTextFromXML(string(data)))
		text.WriteString("\n\n")
	}
	return text.String(), nil
}

func loadXLSX(path string) (string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read xlsx %s: %w", path, err)
	}

	var text strings.Builder
	for _, sheet := range f.Sheets {
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
		text.WriteString("\n")
	}
	return text.String(), nil
}

func loadODS(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read ods %s: %w", path, err)
	}
	defer f.Close()

	var text strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheetName))
		for _, row := range rows {
			text.WriteString(strings.Join(row, "\t"))
			text.WriteString("\n")
		}
		text.WriteString("\n")
	}
	return text.String(), nil
}

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
