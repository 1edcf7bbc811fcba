// Package pipeline provides the high-level orchestration for podcast generation.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonathan/podcast-agent/internal/logging"
	"github.com/jonathan/podcast-agent/internal/metrics"
	"github.com/jonathan/podcast-agent/internal/tracing"
	"github.com/jonathan/podcast-agent/internal/types"
)

// Progress categories
const (
	CategoryStarted  = "started"
	CategoryFinished = "finished"
	CategoryFailed   = "failed"
	CategorySkipped  = "skipped"
	CategoryPoll     = "poll"
)

// StepRun is the step name of events about the run as a whole
const StepRun = "run"

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step     string `json:"step"`
	Category string `json:"category"`
	Message  string `json:"message"`
	RunID    string `json:"run_id,omitempty"`
	Content  any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// ImageGenerator produces the cover image
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (*types.MediaArtifact, error)
}

// ScriptGenerator produces the segmented script
type ScriptGenerator interface {
	GenerateScript(ctx context.Context, req types.GenerationRequest) (*types.Script, error)
}

// VideoGenerator produces the video from the script text
type VideoGenerator interface {
	GenerateVideo(ctx context.Context, script string, seed *types.MediaArtifact, onProgress types.VideoProgressFunc) (*types.MediaArtifact, error)
}

// Runner sequences the image, script and video stages for one topic.
// A Runner holds no per-run state; concurrent Run calls are independent.
type Runner struct {
	Image  ImageGenerator
	Script ScriptGenerator
	Video  VideoGenerator
	Logger *slog.Logger
	// OnProgress receives stage and polling events. It may be nil.
	OnProgress ProgressCallback
	// Now defaults to time.Now
	Now func() time.Time
}

// Run executes the requested stages in the fixed order image, script, video.
//
// Failures never abort the run: an image failure leaves the video unseeded, a
// script failure skips the video. Every failure is recorded on the result.
// The returned error is non-nil only when the request itself is invalid or a
// requested stage has no generator.
func (r *Runner) Run(ctx context.Context, req types.GenerationRequest) (*types.PipelineResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := r.checkGenerators(req); err != nil {
		return nil, err
	}

	run := &runState{
		Runner: r,
		result: &types.PipelineResult{
			RunID:     uuid.NewString(),
			Topic:     req.Topic,
			PartCount: req.PartCount,
			UseSearch: req.UseSearch,
			Errors:    []types.StageError{},
			Warnings:  []types.Warning{},
			Stages:    []types.StageOutcome{},
			StartedAt: r.now(),
		},
	}
	run.logger = logging.WithRunID(logging.WithComponent(r.Logger, "pipeline"), run.result.RunID)

	ctx, span := tracing.Tracer().Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run_id", run.result.RunID),
		attribute.Int("part_count", req.PartCount),
		attribute.Bool("use_search", req.UseSearch),
	))
	defer span.End()

	run.logger.Info("run started", "topic", req.Topic, "parts", req.PartCount, "search", req.UseSearch)
	run.emit(StepRun, CategoryStarted, fmt.Sprintf("Generating podcast about %q", req.Topic), nil)

	run.imageStage(ctx, req)
	scriptOK := run.scriptStage(ctx, req)
	run.videoStage(ctx, req, scriptOK)

	result := run.result
	result.FinishedAt = r.now()

	outcome := "success"
	if !result.Succeeded() {
		outcome = "partial"
		span.SetStatus(otelcodes.Error, fmt.Sprintf("%d stage errors", len(result.Errors)))
	}
	metrics.RunsTotal.WithLabelValues(outcome).Inc()
	run.logger.Info("run finished", "outcome", outcome, "errors", len(result.Errors),
		"warnings", len(result.Warnings), "elapsed", result.FinishedAt.Sub(result.StartedAt))
	run.emit(StepRun, CategoryFinished, fmt.Sprintf("Run finished: %s", outcome), result)

	return result, nil
}

func (r *Runner) checkGenerators(req types.GenerationRequest) error {
	missing := func(stage types.StageName) error {
		return &types.Error{Kind: types.KindInvalidRequest, Stage: stage, Message: "no generator configured for requested stage"}
	}
	if req.Wants(types.StageImage) && r.Image == nil {
		return missing(types.StageImage)
	}
	if req.Wants(types.StageScript) && r.Script == nil {
		return missing(types.StageScript)
	}
	if req.Wants(types.StageVideo) && r.Video == nil {
		return missing(types.StageVideo)
	}
	return nil
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// runState is the mutable state of a single Run invocation
type runState struct {
	*Runner
	result *types.PipelineResult
	script *types.Script
	logger *slog.Logger
}

func (s *runState) imageStage(ctx context.Context, req types.GenerationRequest) {
	if !req.Wants(types.StageImage) {
		s.record(types.StageImage, types.StatusNotRequested, 0, "")
		return
	}
	s.execute(ctx, types.StageImage, func(ctx context.Context) (string, error) {
		image, err := s.Image.GenerateImage(ctx, req.CustomImagePrompt)
		if err != nil {
			return "", err
		}
		s.result.Image = image
		return fmt.Sprintf("Generated image (%s)", humanize.Bytes(uint64(image.Size))), nil
	})
}

func (s *runState) scriptStage(ctx context.Context, req types.GenerationRequest) bool {
	if !req.Wants(types.StageScript) {
		s.record(types.StageScript, types.StatusNotRequested, 0, "")
		return false
	}
	return s.execute(ctx, types.StageScript, func(ctx context.Context) (string, error) {
		script, err := s.Script.GenerateScript(ctx, req)
		if err != nil {
			return "", err
		}
		s.script = script
		s.result.Script = script.Segments
		s.result.Grounding = script.Grounding
		s.result.Warnings = append(s.result.Warnings, script.Warnings...)

		msg := fmt.Sprintf("Generated %d-part script", len(script.Segments))
		if script.Grounding != nil {
			msg += fmt.Sprintf(" grounded in %d sources", len(script.Grounding.Sources))
		}
		return msg, nil
	})
}

func (s *runState) videoStage(ctx context.Context, req types.GenerationRequest, scriptOK bool) {
	switch {
	case !req.Wants(types.StageVideo):
		s.record(types.StageVideo, types.StatusNotRequested, 0, "")
		return
	case !scriptOK:
		reason := "script stage did not produce a script"
		s.logger.Warn("skipping video stage", "reason", reason)
		s.record(types.StageVideo, types.StatusSkipped, 0, reason)
		s.emit(string(types.StageVideo), CategorySkipped, "Skipped video: "+reason, nil)
		return
	}

	// A caller-supplied seed wins over the generated image; with neither the video is text-only.
	seed := req.SeedImage
	if seed == nil {
		seed = s.result.Image
	}

	s.execute(ctx, types.StageVideo, func(ctx context.Context) (string, error) {
		video, err := s.Video.GenerateVideo(ctx, s.script.FullText(), seed, func(p types.VideoProgress) {
			s.emit(string(types.StageVideo), CategoryPoll,
				fmt.Sprintf("Video job %s (poll %d, %s elapsed)", p.Status, p.Poll, p.Elapsed.Round(time.Second)), p)
		})
		if err != nil {
			return "", err
		}
		s.result.Video = video
		return fmt.Sprintf("Generated video (%s, seeded=%t)", humanize.Bytes(uint64(video.Size)), seed != nil), nil
	})
}

// execute runs one stage and records its outcome. It reports whether the stage succeeded.
func (s *runState) execute(ctx context.Context, stage types.StageName, fn func(context.Context) (string, error)) bool {
	ctx, span := tracing.Tracer().Start(ctx, "stage."+string(stage))
	defer span.End()

	logger := logging.WithStage(s.logger, string(stage))
	s.emit(string(stage), CategoryStarted, fmt.Sprintf("Starting %s stage", stage), nil)
	start := s.now()

	message, err := fn(ctx)
	elapsed := s.now().Sub(start)
	metrics.StageDurationSeconds.WithLabelValues(string(stage)).Observe(elapsed.Seconds())

	if err != nil {
		stageErr := types.ToStageError(err, stage)
		s.result.Errors = append(s.result.Errors, stageErr)
		s.record(stage, types.StatusFailed, elapsed, stageErr.Message)
		metrics.StageErrorsTotal.WithLabelValues(string(stage), string(stageErr.Kind)).Inc()

		span.RecordError(err)
		span.SetStatus(otelcodes.Error, stageErr.Message)
		logger.Warn("stage failed", "kind", stageErr.Kind, "elapsed", elapsed, "err", err)
		s.emit(string(stage), CategoryFailed, fmt.Sprintf("%s stage failed: %s", stage, stageErr.Message), stageErr)
		return false
	}

	s.record(stage, types.StatusSucceeded, elapsed, "")
	logger.Info("stage finished", "elapsed", elapsed)
	s.emit(string(stage), CategoryFinished, message, nil)
	return true
}

func (s *runState) record(stage types.StageName, status types.StageStatus, elapsed time.Duration, reason string) {
	s.result.Stages = append(s.result.Stages, types.StageOutcome{
		Stage:    stage,
		Status:   status,
		Duration: elapsed,
		Reason:   reason,
	})
	metrics.StageTotal.WithLabelValues(string(stage), string(status)).Inc()
}

// emit calls the progress callback if configured
func (s *runState) emit(step, category, message string, content any) {
	if s.OnProgress != nil {
		s.OnProgress(ProgressEvent{
			Step:     step,
			Category: category,
			Message:  message,
			RunID:    s.result.RunID,
			Content:  content,
		})
	}
}
