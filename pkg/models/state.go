package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// legacyLayout is how the first generation of the job wrote last_run.
const legacyLayout = "2006-01-02 15:04:05"

// PipelineState is the persisted progress record. It is always read and
// written as a whole.
type PipelineState struct {
	LastRun string `json:"last_run"`
}

// NewPipelineState encodes a watermark. Whole-second values keep the plain
// RFC3339 form; fractional seconds are kept so rows stamped inside the last
// second are not selected again.
func NewPipelineState(wm time.Time) PipelineState {
	return PipelineState{LastRun: wm.UTC().Format(time.RFC3339Nano)}
}

// Watermark decodes LastRun.
func (s PipelineState) Watermark() (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s.LastRun); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation(legacyLayout, s.LastRun, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid last_run %q", s.LastRun)
	}
	return t, nil
}

func LoadState(data []byte) (*PipelineState, error) {
	var s PipelineState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
