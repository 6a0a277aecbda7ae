package runs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/expressdiff/expressdiff/internal/models"
)

// fastqSuffixes maps the recognized paired-end suffixes to their direction.
var fastqSuffixes = []struct {
	suffix  string
	forward bool
}{
	{"_1.fq.gz", true},
	{"_1.fastq.gz", true},
	{"_2.fq.gz", false},
	{"_2.fastq.gz", false},
}

// ValidateSamples scans raw/ and pairs files by the _1/_2 naming
// convention. Files that match neither suffix are reported unpaired.
func (s *Service) ValidateSamples(ctx context.Context, runID string) (*models.SampleValidation, error) {
	if !s.store.Exists(runID) {
		return nil, fmt.Errorf("%w: run %s", models.ErrNotFound, runID)
	}

	rawDir := filepath.Join(s.paths.RunDir(runID), "raw")
	entries, err := os.ReadDir(rawDir)
	if err != nil {
		if os.IsNotExist(err) {
			return &models.SampleValidation{ValidPairs: []models.SamplePair{}, UnpairedFiles: []string{}}, nil
		}
		return nil, fmt.Errorf("failed to read raw directory for run %s: %w", runID, err)
	}

	type pairFiles struct {
		forward string
		reverse string
	}
	pairs := map[string]*pairFiles{}
	unpaired := []string{}
	total := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".fq.gz") && !strings.HasSuffix(name, ".fastq.gz") {
			continue
		}
		total++

		matched := false
		for _, sfx := range fastqSuffixes {
			if !strings.HasSuffix(name, sfx.suffix) {
				continue
			}
			sample := strings.TrimSuffix(name, sfx.suffix)
			if pairs[sample] == nil {
				pairs[sample] = &pairFiles{}
			}
			if sfx.forward {
				pairs[sample].forward = name
			} else {
				pairs[sample].reverse = name
			}
			matched = true
			break
		}
		if !matched {
			unpaired = append(unpaired, name)
		}
	}

	result := &models.SampleValidation{
		TotalFiles:    total,
		ValidPairs:    []models.SamplePair{},
		UnpairedFiles: unpaired,
		Issues:        []string{},
	}

	names := make([]string, 0, len(pairs))
	for sample := range pairs {
		names = append(names, sample)
	}
	sort.Strings(names)

	for _, sample := range names {
		p := pairs[sample]
		if p.forward != "" && p.reverse != "" {
			result.ValidPairs = append(result.ValidPairs, models.SamplePair{
				SampleName:  sample,
				ForwardFile: p.forward,
				ReverseFile: p.reverse,
				Valid:       true,
			})
			continue
		}

		missing := "reverse (_2)"
		if p.forward == "" {
			missing = "forward (_1)"
		}
		issue := fmt.Sprintf("sample %s is missing its %s file", sample, missing)
		result.Issues = append(result.Issues, issue)
		result.ValidPairs = append(result.ValidPairs, models.SamplePair{
			SampleName:  sample,
			ForwardFile: p.forward,
			ReverseFile: p.reverse,
			Valid:       false,
			Issues:      []string{issue},
		})
	}

	return result, nil
}
