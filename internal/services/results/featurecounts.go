// Package results parses completed stage outputs into display-ready
// structures and resolves safe download paths. It only ever reads; stage
// jobs own the files.
package results

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/expressdiff/expressdiff/internal/common"
	"github.com/expressdiff/expressdiff/internal/models"
)

// alignedBamSuffix is what the aligner appends to sample names in BAM
// filenames; it is stripped for display.
const alignedBamSuffix = "_Aligned.sortedByCoord.out"

// Service reads result artifacts from run directories.
type Service struct {
	paths  *common.Paths
	logger arbor.ILogger
}

// NewService creates a results reader.
func NewService(paths *common.Paths, logger arbor.ILogger) *Service {
	return &Service{paths: paths, logger: logger}
}

// FeatureCountsSummary parses featurecounts/counts.txt.summary, a
// tab-separated table whose header row is "Status" followed by one BAM path
// per sample.
func (s *Service) FeatureCountsSummary(runID string) (*models.FeatureCountsSummary, error) {
	if !s.runExists(runID) {
		return nil, fmt.Errorf("%w: run %s", models.ErrNotFound, runID)
	}

	summaryPath := filepath.Join(s.paths.RunDir(runID), "featurecounts", "counts.txt.summary")
	f, err := os.Open(summaryPath)
	if err != nil {
		return nil, fmt.Errorf("%w: counts summary not found; run the featurecounts stage first", models.ErrNotFound)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return nil, fmt.Errorf("counts summary %s is empty", summaryPath)
	}

	header := strings.Split(strings.TrimRight(scanner.Text(), "\r\n"), "\t")
	sampleNames := make([]string, 0, len(header)-1)
	for _, col := range header[1:] {
		sampleNames = append(sampleNames, sampleNameFromBam(col))
	}

	var stats []models.FeatureCountsStat
	for scanner.Scan() {
		parts := strings.Split(strings.TrimRight(scanner.Text(), "\r\n"), "\t")
		if len(parts) < 2 {
			continue
		}
		samples := make(map[string]int64, len(sampleNames))
		for i, raw := range parts[1:] {
			if i >= len(sampleNames) {
				break
			}
			value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("counts summary %s has a non-numeric value %q in row %s", summaryPath, raw, parts[0])
			}
			samples[sampleNames[i]] = value
		}
		stats = append(stats, models.FeatureCountsStat{Category: parts[0], Samples: samples})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read counts summary %s: %w", summaryPath, err)
	}

	return &models.FeatureCountsSummary{
		Summary:     stats,
		SampleNames: sampleNames,
		FilePath:    summaryPath,
	}, nil
}

// sampleNameFromBam reduces a BAM path column header to its sample name.
func sampleNameFromBam(column string) string {
	base := filepath.Base(strings.TrimSpace(column))
	base = strings.TrimSuffix(base, ".bam")
	return strings.TrimSuffix(base, alignedBamSuffix)
}

func (s *Service) runExists(runID string) bool {
	_, err := os.Stat(s.paths.RunDir(runID))
	return err == nil
}
