package models

import "time"

// RunCreateRequest is the POST /runs payload.
type RunCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Account     string `json:"account" validate:"required"`
	AdapterType string `json:"adapter_type,omitempty" validate:"omitempty,oneof=NexteraPE-PE TruSeq2-PE TruSeq2-SE TruSeq3-PE TruSeq3-PE-2 TruSeq3-SE"`
}

// StageSubmitRequest is the POST /runs/{id}/stages/{stage} payload.
type StageSubmitRequest struct {
	Account      string `json:"account" validate:"required"`
	Force        bool   `json:"force,omitempty"`
	ConfirmRerun bool   `json:"confirm_rerun,omitempty"`
}

// AdapterUpdateRequest is the PUT /runs/{id}/adapter payload.
type AdapterUpdateRequest struct {
	AdapterType string `json:"adapter_type" validate:"required,oneof=NexteraPE-PE TruSeq2-PE TruSeq2-SE TruSeq3-PE TruSeq3-PE-2 TruSeq3-SE"`
}

// StageStatusResponse is returned by GET .../stages/{stage}/status.
type StageStatusResponse struct {
	Stage     string      `json:"stage"`
	Status    StageStatus `json:"status"`
	JobID     string      `json:"job_id,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// StageValidation is the preflight result for a stage.
type StageValidation struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	Stage    string   `json:"stage"`
	RunID    string   `json:"run_id"`
}

// StageLogs carries the scheduler stdout/stderr for a stage submission.
type StageLogs struct {
	Stage      string `json:"stage"`
	JobID      string `json:"job_id"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	StdoutFile string `json:"stdout_file,omitempty"`
	StderrFile string `json:"stderr_file,omitempty"`
}

// SamplePair describes one paired-end FASTQ sample found in raw/.
type SamplePair struct {
	SampleName  string   `json:"sample_name"`
	ForwardFile string   `json:"forward_file"`
	ReverseFile string   `json:"reverse_file"`
	Valid       bool     `json:"valid"`
	Issues      []string `json:"issues,omitempty"`
}

// SampleValidation is the pairing report for a run's raw directory.
type SampleValidation struct {
	TotalFiles    int          `json:"total_files"`
	ValidPairs    []SamplePair `json:"valid_pairs"`
	UnpairedFiles []string     `json:"unpaired_files"`
	Issues        []string     `json:"issues,omitempty"`
}

// UploadedFile reports one stored upload.
type UploadedFile struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Type     string `json:"type"`
}

// UploadResponse is returned by POST /runs/{id}/upload.
type UploadResponse struct {
	Message string         `json:"message"`
	Files   []UploadedFile `json:"files"`
	Errors  []string       `json:"errors,omitempty"`
}

// HealthResponse is the GET /health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// UserInfo is the GET /user payload.
type UserInfo struct {
	Username    string `json:"username"`
	UID         int    `json:"uid"`
	ComputingID string `json:"computing_id"`
}

// StorageInfo describes where run data lives.
type StorageInfo struct {
	InstallDirectory string `json:"install_directory"`
	DataDirectory    string `json:"data_directory"`
	RunsDirectory    string `json:"runs_directory"`
	StorageType      string `json:"storage_type"`
	User             string `json:"user"`
}
