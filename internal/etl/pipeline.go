package etl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/BartekS5/orderlake/internal/config"
	"github.com/BartekS5/orderlake/internal/telemetry"
)

const (
	stepLoad    = "load_watermark"
	stepExtract = "extract"
	stepPublish = "publish"
	stepAdvance = "advance_watermark"
	stepCleanup = "cleanup"
)

// Pipeline runs one incremental export: load watermark, extract, publish,
// advance watermark, clean up. The watermark moves only after the artifact
// is published and the local artifact is removed only after the watermark
// is saved, so a crash at any point leads to re-publication, never to loss.
//
// One Pipeline must not run concurrently with another against the same
// watermark.
type Pipeline struct {
	Watermarks      WatermarkStore
	Selector        *ChangeSelector
	Staging         *StagingArea
	Publisher       *Publisher
	PartitionPrefix string
	AdvancePolicy   string

	// Now is the run clock. It fixes the partition date and, under the
	// run_start policy, the next watermark.
	Now func() time.Time
}

func NewPipeline(wm WatermarkStore, sel *ChangeSelector, staging *StagingArea, pub *Publisher, cfg config.PipelineConfig) *Pipeline {
	return &Pipeline{
		Watermarks:      wm,
		Selector:        sel,
		Staging:         staging,
		Publisher:       pub,
		PartitionPrefix: cfg.PartitionPrefix,
		AdvancePolicy:   cfg.AdvancePolicy,
		Now:             time.Now,
	}
}

// Run executes a single cycle. It never panics on step failures; the
// outcome and cause are in the result.
func (p *Pipeline) Run(ctx context.Context) (res RunResult) {
	runStart := p.Now().UTC()
	defer func() {
		res.Duration = time.Since(runStart)
		telemetry.RunsTotal.With(res.Outcome.String()).Inc()
		p.report(res)
	}()

	stepStart := time.Now()
	prev, err := p.Watermarks.Load(ctx)
	observe(stepLoad, stepStart)
	if err != nil {
		return RunResult{Outcome: WatermarkLoadFailed, Err: fmt.Errorf("%s: %w", stepLoad, err)}
	}
	res = RunResult{PreviousWatermark: prev, Watermark: prev}
	telemetry.WatermarkSeconds.Set(float64(prev.Unix()))

	log.Info().Str("step", stepExtract).Time("watermark", prev).Msg("starting extraction")

	h, err := p.Staging.Stage()
	if err != nil {
		res.Outcome = ExtractFailed
		res.Err = &ExtractError{Err: err}
		return res
	}

	stepStart = time.Now()
	art, err := p.Selector.Extract(ctx, prev, h.Path)
	observe(stepExtract, stepStart)
	if err != nil {
		res.Outcome = ExtractFailed
		res.Err = err
		if derr := p.Staging.Discard(h); derr != nil {
			log.Warn().Err(derr).Str("path", h.Path).Msg("failed to discard partial artifact")
		}
		return res
	}
	if art.Rows == 0 {
		res.Outcome = NoNewData
		return res
	}
	res.Rows = art.Rows
	res.Artifact = art.Path
	telemetry.RowsExtractedTotal.Add(float64(art.Rows))

	target := NewTarget(p.PartitionPrefix, runStart, h.Name)
	res.Target = target.Key()

	stepStart = time.Now()
	err = p.Publisher.Publish(ctx, art.Path, target)
	observe(stepPublish, stepStart)
	if err != nil {
		res.Outcome = PublishFailed
		res.Err = err
		return res
	}

	next := p.nextWatermark(prev, art, runStart)

	stepStart = time.Now()
	err = ctx.Err()
	if err == nil {
		err = p.Watermarks.Save(ctx, next)
	}
	observe(stepAdvance, stepStart)
	if err != nil {
		res.Outcome = WatermarkPersistFailed
		res.Err = &PersistError{Watermark: next, Key: target.Key(), Err: err}
		return res
	}
	res.Watermark = next
	telemetry.WatermarkSeconds.Set(float64(next.Unix()))

	stepStart = time.Now()
	if err := p.Staging.Discard(h); err != nil {
		log.Warn().Err(err).Str("step", stepCleanup).Str("path", art.Path).Msg("artifact published but not removed")
	} else {
		res.Artifact = ""
	}
	observe(stepCleanup, stepStart)

	res.Outcome = Published
	return res
}

// nextWatermark never moves backwards. run_start truncates to whole seconds
// so the recorded value stays at or below the moment extraction began.
func (p *Pipeline) nextWatermark(prev time.Time, art Artifact, runStart time.Time) time.Time {
	next := art.MaxChange
	if p.AdvancePolicy == config.AdvanceRunStart {
		next = runStart.Truncate(time.Second)
	}
	if next.Before(prev) {
		return prev
	}
	return next.UTC()
}

func (p *Pipeline) report(res RunResult) {
	switch res.Outcome {
	case NoNewData:
		log.Info().Time("watermark", res.Watermark).Dur("duration", res.Duration).Msg("no new data")
	case Published:
		log.Info().Str("key", res.Target).Int64("rows", res.Rows).
			Time("previous", res.PreviousWatermark).Time("watermark", res.Watermark).
			Dur("duration", res.Duration).Msg("run published")
	case WatermarkPersistFailed:
		var perr *PersistError
		ev := log.Error().Err(res.Err).Str("step", stepAdvance).Str("key", res.Target).
			Str("artifact", res.Artifact).Int64("rows", res.Rows)
		if errors.As(res.Err, &perr) {
			ev = ev.Time("unsaved_watermark", perr.Watermark)
		}
		ev.Msg("artifact is published but the watermark was not advanced; the next run will publish these rows again")
	default:
		log.Error().Err(res.Err).Str("outcome", res.Outcome.String()).Str("key", res.Target).
			Str("artifact", res.Artifact).Time("watermark", res.Watermark).Msg("run failed")
	}
}

func observe(step string, since time.Time) {
	telemetry.StepDurationSeconds.With(step).Observe(time.Since(since).Seconds())
}
