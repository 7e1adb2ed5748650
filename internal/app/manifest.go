package app

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"makertrends/internal/files"
	"makertrends/pkg/contracts"
)

// Stage and run status values.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunManifest records what one command run did: its stages, the artifacts
// each stage wrote and how the run ended. It is written next to the run log.
type RunManifest struct {
	mu sync.Mutex

	TraceID       string           `json:"trace_id"`
	Command       string           `json:"command"`
	Version       string           `json:"version"`
	DataFormat    string           `json:"data_format"`
	StartTime     time.Time        `json:"start_time"`
	EndTime       time.Time        `json:"end_time,omitempty"`
	Status        string           `json:"status"`
	Error         string           `json:"error,omitempty"`
	Stages        []StageExecution `json:"stages"`
	Counts        map[string]int   `json:"counts,omitempty"`
	SkippedCharts []string         `json:"skipped_charts,omitempty"`
}

// StageExecution tracks the execution of a single stage.
type StageExecution struct {
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time,omitempty"`
	Duration  string    `json:"duration,omitempty"`
	Status    string    `json:"status"`
	Artifacts []string  `json:"artifacts,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// NewRunManifest creates a manifest for a run that starts now.
func NewRunManifest(traceID, command string) *RunManifest {
	return &RunManifest{
		TraceID:    traceID,
		Command:    command,
		Version:    contracts.Version,
		DataFormat: contracts.DataFormatVersion,
		StartTime:  time.Now(),
		Status:     StatusRunning,
		Stages:     []StageExecution{},
		Counts:     make(map[string]int),
	}
}

// RecordStageStart records the start of a stage. Starting a stage again
// resets its entry.
func (m *RunManifest) RecordStageStart(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := m.stageIndex(name); i >= 0 {
		m.Stages[i] = StageExecution{Name: name, StartTime: time.Now(), Status: StatusRunning}
		return
	}
	m.Stages = append(m.Stages, StageExecution{Name: name, StartTime: time.Now(), Status: StatusRunning})
}

// RecordStageCompletion marks a stage completed with the artifacts it wrote.
func (m *RunManifest) RecordStageCompletion(name string, artifacts []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := m.stageIndex(name); i >= 0 {
		s := &m.Stages[i]
		s.EndTime = time.Now()
		s.Duration = s.EndTime.Sub(s.StartTime).String()
		s.Status = StatusCompleted
		s.Artifacts = artifacts
	}
}

// RecordStageFailure marks a stage failed.
func (m *RunManifest) RecordStageFailure(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := m.stageIndex(name); i >= 0 {
		s := &m.Stages[i]
		s.EndTime = time.Now()
		s.Duration = s.EndTime.Sub(s.StartTime).String()
		s.Status = StatusFailed
		s.Error = err.Error()
	}
}

// SetCount records a named run counter such as rows read or weeks emitted.
func (m *RunManifest) SetCount(name string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Counts[name] = n
}

// RecordSkippedChart notes a chart that had nothing to draw.
func (m *RunManifest) RecordSkippedChart(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SkippedCharts = append(m.SkippedCharts, name)
}

// IsStageCompleted reports whether a stage finished successfully.
func (m *RunManifest) IsStageCompleted(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.stageIndex(name)
	return i >= 0 && m.Stages[i].Status == StatusCompleted
}

// Artifacts returns every artifact written by completed stages, in order.
func (m *RunManifest) Artifacts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.Stages {
		if s.Status == StatusCompleted {
			out = append(out, s.Artifacts...)
		}
	}
	return out
}

// Finish sets the final status from the run result.
func (m *RunManifest) Finish(runErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.EndTime = time.Now()
	if runErr != nil {
		m.Status = StatusFailed
		m.Error = runErr.Error()
		return
	}
	m.Status = StatusCompleted
}

// Save writes the manifest as indented JSON, replacing any previous file.
func (m *RunManifest) Save(manager *files.Manager, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := manager.WriteAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	}); err != nil {
		return fmt.Errorf("failed to save run manifest: %w", err)
	}
	return nil
}

func (m *RunManifest) stageIndex(name string) int {
	for i, s := range m.Stages {
		if s.Name == name {
			return i
		}
	}
	return -1
}
