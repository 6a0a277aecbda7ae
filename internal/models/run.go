package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// StageStatus is the lifecycle state of a single pipeline stage.
type StageStatus string

const (
	StageStatusPending   StageStatus = "pending"
	StageStatusRunning   StageStatus = "running"
	StageStatusCompleted StageStatus = "completed"
	StageStatusFailed    StageStatus = "failed"
	StageStatusCancelled StageStatus = "cancelled"
)

// RunStatus is the overall run state, derived from stage statuses.
type RunStatus string

const (
	RunStatusCreated   RunStatus = "created"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// StageState tracks the most recent submission of a stage.
// Status=running implies JobID is non-empty.
type StageState struct {
	Status    StageStatus `json:"status"`
	JobID     string      `json:"job_id,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// StageMap maps stage names to their state. It marshals in canonical
// pipeline order so that run_state.json stays byte-stable across
// load/save cycles.
type StageMap map[StageName]*StageState

// MarshalJSON emits stages in canonical order rather than Go's sorted
// map-key order.
func (m StageMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, name := range StageOrder {
		state, ok := m[name]
		if !ok {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, err := json.Marshal(string(name))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(state)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Run is the authoritative record of one pipeline run, persisted as
// run_state.json inside the run directory.
type Run struct {
	RunID       string            `json:"run_id"`
	Name        string            `json:"name,omitempty"`
	Description string            `json:"description,omitempty"`
	Account     string            `json:"account"`
	Status      RunStatus         `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Parameters  map[string]string `json:"parameters"`
	Stages      StageMap          `json:"stages"`
}

// AdapterType returns the run's adapter type, falling back to the default
// when the parameter is unset.
func (r *Run) AdapterType() string {
	if r.Parameters != nil {
		if a := r.Parameters["adapter_type"]; a != "" {
			return a
		}
	}
	return DefaultAdapterType
}

// Stage returns the state for a stage, initializing a pending entry if the
// stage is missing from an older state file.
func (r *Run) Stage(name StageName) *StageState {
	if r.Stages == nil {
		r.Stages = StageMap{}
	}
	if s, ok := r.Stages[name]; ok {
		return s
	}
	s := &StageState{Status: StageStatusPending}
	r.Stages[name] = s
	return s
}

// NewRun builds a run record with all stages pending.
func NewRun(runID, name, description, account, adapterType string, now time.Time) *Run {
	if adapterType == "" {
		adapterType = DefaultAdapterType
	}
	stages := StageMap{}
	for _, s := range StageOrder {
		stages[s] = &StageState{Status: StageStatusPending, UpdatedAt: now}
	}
	return &Run{
		RunID:       runID,
		Name:        name,
		Description: description,
		Account:     account,
		Status:      RunStatusCreated,
		CreatedAt:   now,
		UpdatedAt:   now,
		Parameters:  map[string]string{"adapter_type": adapterType},
		Stages:      stages,
	}
}
