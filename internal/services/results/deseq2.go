package results

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/expressdiff/expressdiff/internal/models"
)

// deseq2FileNames maps download types to files under deseq2/. The set is
// closed; anything else is an invalid file_type.
var deseq2FileNames = map[string]string{
	"summary":          "summary.txt",
	"significant_degs": "significant_degs.csv",
	"full_results":     "full_results.csv",
	"top_degs":         "top_degs.csv",
	"counts_matrix":    "counts_matrix.csv",
}

// roundedColumns are numeric DEG columns rounded to four decimals for
// display. P-values keep full precision.
var roundedColumns = map[string]bool{
	"baseMean":       true,
	"log2FoldChange": true,
	"lfcSE":          true,
	"stat":           true,
}

// DESeq2Results parses deseq2/summary.txt and significant_degs.csv and
// lists which downloadable files exist.
func (s *Service) DESeq2Results(runID string) (*models.DESeq2Results, error) {
	if !s.runExists(runID) {
		return nil, fmt.Errorf("%w: run %s", models.ErrNotFound, runID)
	}

	deseq2Dir := filepath.Join(s.paths.RunDir(runID), "deseq2")
	if _, err := os.Stat(deseq2Dir); err != nil {
		return nil, fmt.Errorf("%w: differential expression results not found; run the deseq2 stage first", models.ErrNotFound)
	}

	summary, err := parseSummaryFile(filepath.Join(deseq2Dir, "summary.txt"))
	if err != nil {
		return nil, err
	}

	degs, err := parseSignificantDEGs(filepath.Join(deseq2Dir, "significant_degs.csv"))
	if err != nil {
		return nil, err
	}

	available := map[string]string{}
	for fileType, name := range deseq2FileNames {
		path := filepath.Join(deseq2Dir, name)
		if _, err := os.Stat(path); err == nil {
			available[fileType] = path
		}
	}

	return &models.DESeq2Results{
		Summary:         summary,
		SignificantDEGs: degs,
		NumSignificant:  len(degs),
		AvailableFiles:  available,
	}, nil
}

// DESeq2FilePath resolves a download type to its on-disk file. Unknown
// types are a validation failure; known-but-missing files are not found.
func (s *Service) DESeq2FilePath(runID, fileType string) (string, error) {
	deseq2Dir := filepath.Join(s.paths.RunDir(runID), "deseq2")
	if _, err := os.Stat(deseq2Dir); err != nil {
		return "", fmt.Errorf("%w: differential expression results not found", models.ErrNotFound)
	}

	name, ok := deseq2FileNames[fileType]
	if !ok {
		return "", fmt.Errorf("%w: invalid file type %s", models.ErrValidation, fileType)
	}

	path := filepath.Join(deseq2Dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: file not available: %s", models.ErrNotFound, fileType)
	}
	return path, nil
}

// parseSummaryFile extracts "key: value" lines from the analysis summary.
// Lines carrying '=' are R expressions, not statistics, and are skipped.
func parseSummaryFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: analysis summary not found", models.ErrNotFound)
	}

	summary := map[string]string{}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.Contains(line, ":") || strings.Contains(line, "=") {
			continue
		}
		key, value, _ := strings.Cut(line, ":")
		summary[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return summary, nil
}

// parseSignificantDEGs reads the significant gene table. A missing file
// means no significant genes yet; that is an empty result, not an error.
func parseSignificantDEGs(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []map[string]any{}, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) < 2 {
		return []map[string]any{}, nil
	}

	header := records[0]
	degs := make([]map[string]any, 0, len(records)-1)
	for _, row := range records[1:] {
		deg := make(map[string]any, len(header))
		for i, col := range header {
			if i >= len(row) {
				break
			}
			deg[col] = degValue(col, row[i])
		}
		degs = append(degs, deg)
	}
	return degs, nil
}

// degValue converts a cell to a display value: rounded float for effect
// size columns, plain float for p-values, string otherwise.
func degValue(column, raw string) any {
	raw = strings.TrimSpace(raw)
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}
	if roundedColumns[column] {
		return math.Round(value*1e4) / 1e4
	}
	if column == "pvalue" || column == "padj" {
		return value
	}
	return raw
}
