package expense

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// showTextOperator matches PDF content-stream "(...) Tj" show-text
// operators (TJ arrays are not matched), the textual payload pdfcpu's content-stream
// extraction leaves for the caller to interpret (pdfcpu has no
// higher-level plain-text API, only ExtractContent/ExtractFonts/
// ExtractImages — see speedata-einvoice's attachment-based usage for
// the sibling pattern this package follows for PDF access).
var showTextOperator = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*Tj`)

// extractPDFLines pulls the per-page content streams of a PDF via
// pdfcpu's ExtractContent and recovers a best-effort plain-text
// rendering by pulling the literal strings out of Tj show-text
// operators, one output line per non-blank Tj string.
func extractPDFLines(path string) ([]string, error) {
	tmpDir, err := os.MkdirTemp("", "ledgerpipe-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("expense: create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := api.ExtractContentFile(path, tmpDir, nil, nil); err != nil {
		return nil, fmt.Errorf("expense: extract pdf content %s: %w", path, err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return nil, fmt.Errorf("expense: read extracted content dir: %w", err)
	}

	var lines []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(tmpDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("expense: read content stream %s: %w", entry.Name(), err)
		}
		for _, match := range showTextOperator.FindAllSubmatch(raw, -1) {
			text := strings.TrimSpace(unescapePDFString(string(match[1])))
			if text != "" {
				lines = append(lines, text)
			}
		}
	}
	return lines, nil
}

func unescapePDFString(s string) string {
	replacer := strings.NewReplacer(`\(`, "(", `\)`, ")", `\\`, `\`)
	return replacer.Replace(s)
}
