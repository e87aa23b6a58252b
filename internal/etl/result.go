package etl

import "time"

type Outcome int

const (
	NoNewData Outcome = iota
	Published
	ExtractFailed
	PublishFailed
	WatermarkPersistFailed
	WatermarkLoadFailed
)

var outcomeNames = map[Outcome]string{
	NoNewData:              "NoNewData",
	Published:              "Published",
	ExtractFailed:          "ExtractFailed",
	PublishFailed:          "PublishFailed",
	WatermarkPersistFailed: "WatermarkPersistFailed",
	WatermarkLoadFailed:    "WatermarkLoadFailed",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "Unknown"
}

// Failed reports whether the outcome should make the process exit non-zero.
func (o Outcome) Failed() bool {
	return o != NoNewData && o != Published
}

// RunResult describes one pipeline run. It is reported, never persisted.
type RunResult struct {
	Outcome           Outcome
	PreviousWatermark time.Time

	// Watermark is the recorded watermark after the run: the new value when
	// Published, PreviousWatermark otherwise.
	Watermark time.Time
	Rows      int64
	Target    string

	// Artifact is the local file kept for inspection after a failure.
	Artifact string
	Duration time.Duration
	Err      error
}
