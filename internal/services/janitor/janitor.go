// Package janitor periodically prunes old generated batch scripts so the
// scripts directory does not grow without bound.
package janitor

import (
	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/expressdiff/expressdiff/internal/common"
	"github.com/expressdiff/expressdiff/internal/services/scripts"
)

// Janitor runs the script pruning job on a cron schedule.
type Janitor struct {
	generator *scripts.Generator
	config    common.JanitorConfig
	cron      *cron.Cron
	logger    arbor.ILogger
}

// New creates a janitor over the script generator.
func New(generator *scripts.Generator, config common.JanitorConfig, logger arbor.ILogger) *Janitor {
	return &Janitor{
		generator: generator,
		config:    config,
		cron:      cron.New(cron.WithSeconds()),
		logger:    logger,
	}
}

// Start schedules the pruning job. Disabled janitors are a no-op.
func (j *Janitor) Start() error {
	if !j.config.Enabled {
		j.logger.Debug().Msg("Script janitor disabled")
		return nil
	}

	if _, err := j.cron.AddFunc(j.config.Schedule, j.prune); err != nil {
		return err
	}

	j.cron.Start()
	j.logger.Info().
		Str("schedule", j.config.Schedule).
		Int("keep_scripts", j.config.KeepScripts).
		Msg("Script janitor started")
	return nil
}

// Stop stops the scheduler.
func (j *Janitor) Stop() {
	j.cron.Stop()
}

func (j *Janitor) prune() {
	removed := j.generator.PruneOldScripts(j.config.KeepScripts)
	if removed > 0 {
		j.logger.Info().Int("removed", removed).Msg("Pruned old generated scripts")
	}
}
