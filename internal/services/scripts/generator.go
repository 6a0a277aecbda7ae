// Package scripts renders per-run batch scripts from the templates shipped
// in the install directory. Rendering is pure token substitution over a
// closed placeholder set; templates with unresolved placeholders are
// rejected rather than submitted broken.
package scripts

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/expressdiff/expressdiff/internal/common"
	"github.com/expressdiff/expressdiff/internal/models"
	"github.com/expressdiff/expressdiff/internal/pipeline"
)

// placeholderPattern matches {TOKEN} references. The leading capture keeps
// shell expansions like ${SLURM_JOB_ID} out of placeholder detection.
var placeholderPattern = regexp.MustCompile(`(\$?)\{([A-Z][A-Z0-9_]*)\}`)

// Generator renders stage templates into executable scripts under
// <workdir>/generated_slurm/.
type Generator struct {
	paths  *common.Paths
	logger arbor.ILogger
}

// NewGenerator creates a script generator.
func NewGenerator(paths *common.Paths, logger arbor.ILogger) *Generator {
	return &Generator{paths: paths, logger: logger}
}

// ScriptPath returns the output path for a stage+run script.
func (g *Generator) ScriptPath(stage models.StageName, runID string) string {
	return filepath.Join(g.paths.ScriptsDir, fmt.Sprintf("%s_%s.script", stage, runID))
}

// Generate loads the stage template, substitutes the closed placeholder
// set, and writes an owner-executable script. Any prior script for the
// same stage+run is overwritten. Unknown keys in extras are ignored;
// unresolved {TOKEN} placeholders in the template are a TemplateError.
func (g *Generator) Generate(stage *pipeline.Stage, runID, account string, extras map[string]string) (string, error) {
	if _, err := os.Stat(g.paths.TemplatesDir); err != nil {
		return "", fmt.Errorf("%w: template directory %s is not readable: %v", models.ErrConfig, g.paths.TemplatesDir, err)
	}

	templatePath := filepath.Join(g.paths.TemplatesDir, stage.TemplateName)
	data, err := os.ReadFile(templatePath)
	if err != nil {
		return "", fmt.Errorf("%w: template not found: %s", models.ErrTemplate, templatePath)
	}

	tokens := map[string]string{
		"RUN_ID":       runID,
		"ACCOUNT":      account,
		"BASE_DIR":     g.paths.WorkDir,
		"RUN_DIR":      g.paths.RunDir(runID),
		"ADAPTER_TYPE": models.DefaultAdapterType,
	}
	for key, value := range extras {
		if _, known := tokens[key]; known {
			tokens[key] = value
		}
	}

	var unresolved []string
	rendered := placeholderPattern.ReplaceAllStringFunc(string(data), func(match string) string {
		if strings.HasPrefix(match, "$") {
			// Shell expansion, not a template placeholder.
			return match
		}
		token := match[1 : len(match)-1]
		if value, ok := tokens[token]; ok {
			return value
		}
		unresolved = append(unresolved, token)
		return match
	})

	if len(unresolved) > 0 {
		sort.Strings(unresolved)
		return "", fmt.Errorf("%w: template %s has unknown placeholders: %s",
			models.ErrTemplate, stage.TemplateName, strings.Join(unresolved, ", "))
	}

	scriptPath := g.ScriptPath(stage.Name, runID)
	if err := os.WriteFile(scriptPath, []byte(rendered), 0o755); err != nil {
		return "", fmt.Errorf("failed to write generated script %s: %w", scriptPath, err)
	}

	g.logger.Debug().
		Str("stage", string(stage.Name)).
		Str("run_id", runID).
		Str("script", scriptPath).
		Msg("Generated batch script")

	return scriptPath, nil
}

// CleanupRunScripts removes all generated scripts for a run.
func (g *Generator) CleanupRunScripts(runID string) {
	matches, err := filepath.Glob(filepath.Join(g.paths.ScriptsDir, "*_"+runID+".script"))
	if err != nil {
		return
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil {
			g.logger.Warn().Err(err).Str("script", path).Msg("Failed to remove generated script")
		}
	}
}

// PruneOldScripts removes generated scripts beyond the keepRecent most
// recently modified ones. Used by the background janitor.
func (g *Generator) PruneOldScripts(keepRecent int) int {
	matches, err := filepath.Glob(filepath.Join(g.paths.ScriptsDir, "*.script"))
	if err != nil || len(matches) <= keepRecent {
		return 0
	}

	type scriptInfo struct {
		path    string
		modTime int64
	}
	infos := make([]scriptInfo, 0, len(matches))
	for _, path := range matches {
		st, err := os.Stat(path)
		if err != nil {
			continue
		}
		infos = append(infos, scriptInfo{path: path, modTime: st.ModTime().UnixNano()})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].modTime > infos[j].modTime })

	removed := 0
	for _, info := range infos[min(keepRecent, len(infos)):] {
		if err := os.Remove(info.path); err == nil {
			removed++
		}
	}
	return removed
}
