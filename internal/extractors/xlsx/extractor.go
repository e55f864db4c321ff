// Package xlsx extracts cell text from Excel workbooks (OOXML).
package xlsx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/terasky-int/sow-dataset/internal/core/domain"
	"github.com/terasky-int/sow-dataset/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles XLSX workbooks.
type Extractor struct{}

// New creates an XLSX extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extensions returns the handled file extensions.
func (e *Extractor) Extensions() []string {
	return []string{".xlsx"}
}

// Extract reads the shared string table and every worksheet, emitting
// one line per row with cells joined by tabs.
func (e *Extractor) Extract(_ context.Context, path string) (string, map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("%w: read %s: %w", domain.ErrExtraction, path, err)
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, fmt.Errorf("%w: open %s as archive: %w", domain.ErrExtraction, path, err)
	}

	shared, err := readSharedStrings(reader)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s: %w", domain.ErrExtraction, path, err)
	}

	var sheets []string
	for _, file := range reader.File {
		if strings.HasPrefix(file.Name, "xl/worksheets/") && strings.HasSuffix(file.Name, ".xml") {
			sheets = append(sheets, file.Name)
		}
	}
	sort.Strings(sheets)

	var result strings.Builder
	for _, name := range sheets {
		text, err := readSheetText(reader, name, shared)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %s: %w", domain.ErrExtraction, path, err)
		}
		if text != "" {
			if result.Len() > 0 {
				result.WriteString("\n\n")
			}
			result.WriteString(text)
		}
	}

	native := map[string]string{
		"sheets":    strconv.Itoa(len(sheets)),
		"file_size": strconv.Itoa(len(data)),
	}
	return result.String(), native, nil
}

// sstXML mirrors xl/sharedStrings.xml.
type sstXML struct {
	Items []struct {
		Text  string   `xml:"t"`
		Chars []string `xml:"r>t"`
	} `xml:"si"`
}

// readSharedStrings loads the workbook's shared string table.
func readSharedStrings(reader *zip.Reader) ([]string, error) {
	content, err := readArchiveFile(reader, "xl/sharedStrings.xml")
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, nil
	}

	var sst sstXML
	if err := xml.Unmarshal(content, &sst); err != nil {
		return nil, fmt.Errorf("parse sharedStrings.xml: %w", err)
	}

	strs := make([]string, len(sst.Items))
	for i, item := range sst.Items {
		if item.Text != "" {
			strs[i] = item.Text
			continue
		}
		strs[i] = strings.Join(item.Chars, "")
	}
	return strs, nil
}

// sheetXML mirrors a worksheet's sheetData.
type sheetXML struct {
	Rows []struct {
		Cells []struct {
			Type  string `xml:"t,attr"`
			Value string `xml:"v"`
		} `xml:"c"`
	} `xml:"sheetData>row"`
}

// readSheetText renders one worksheet as tab-separated rows.
func readSheetText(reader *zip.Reader, name string, shared []string) (string, error) {
	content, err := readArchiveFile(reader, name)
	if err != nil {
		return "", err
	}
	if content == nil {
		return "", nil
	}

	var sheet sheetXML
	if err := xml.Unmarshal(content, &sheet); err != nil {
		return "", fmt.Errorf("parse %s: %w", name, err)
	}

	var result strings.Builder
	for _, row := range sheet.Rows {
		var cells []string
		for _, cell := range row.Cells {
			value := cell.Value
			if cell.Type == "s" {
				idx, err := strconv.Atoi(value)
				if err == nil && idx >= 0 && idx < len(shared) {
					value = shared[idx]
				}
			}
			if value != "" {
				cells = append(cells, value)
			}
		}
		if len(cells) > 0 {
			result.WriteString(strings.Join(cells, "\t"))
			result.WriteString("\n")
		}
	}
	return strings.TrimRight(result.String(), "\n"), nil
}

// readArchiveFile returns the named archive member's content, or nil
// when the member is absent.
func readArchiveFile(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		content, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return content, nil
	}
	return nil, nil
}
