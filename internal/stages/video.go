package stages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/jonathan/podcast-agent/internal/backoff"
	"github.com/jonathan/podcast-agent/internal/extract"
	"github.com/jonathan/podcast-agent/internal/llm"
	"github.com/jonathan/podcast-agent/internal/logging"
	"github.com/jonathan/podcast-agent/internal/metrics"
	"github.com/jonathan/podcast-agent/internal/prompts"
	"github.com/jonathan/podcast-agent/internal/types"
)

// DefaultVideoMaxWait is the wall-clock ceiling for one video job
const DefaultVideoMaxWait = 10 * time.Minute

// VideoConfig configures the video stage
type VideoConfig struct {
	Model string
	// MaxWait bounds the whole job, from submission to the last status query
	MaxWait time.Duration
	// RequestTimeout bounds each submit, status and download request
	RequestTimeout time.Duration
	Poll           backoff.Policy
	AspectRatio    string
}

// VideoStage submits a video job and polls it to completion
type VideoStage struct {
	client llm.VideoModel
	config VideoConfig
	clock  Clock
	logger *slog.Logger
}

// VideoOption customizes a VideoStage
type VideoOption func(*VideoStage)

// WithClock replaces the wall clock, mainly for tests
func WithClock(clock Clock) VideoOption {
	return func(s *VideoStage) {
		s.clock = clock
	}
}

// NewVideoStage creates a video stage. Empty config fields take defaults.
func NewVideoStage(client llm.VideoModel, config VideoConfig, logger *slog.Logger, opts ...VideoOption) *VideoStage {
	if config.Model == "" {
		config.Model = llm.DefaultConfig().GetModel(llm.RoleVideo)
	}
	if config.MaxWait == 0 {
		config.MaxWait = DefaultVideoMaxWait
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	if config.Poll.Base == 0 {
		config.Poll = backoff.DefaultPolicy()
	}
	s := &VideoStage{
		client: client,
		config: config,
		clock:  RealClock{},
		logger: logging.WithComponent(logger, "video_stage"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateVideo submits a job for script, optionally seeded by an image, and
// polls until the job succeeds, fails, or outlives MaxWait. onProgress, when
// set, is called once per status query.
//
// Job states move SUBMITTED -> {PENDING, RUNNING}* -> SUCCEEDED | FAILED | TIMED_OUT.
// A timed out job is abandoned; nothing is queried after the ceiling passes.
func (s *VideoStage) GenerateVideo(ctx context.Context, script string, seed *types.MediaArtifact, onProgress types.VideoProgressFunc) (*types.MediaArtifact, error) {
	if s.client == nil {
		return nil, s.fail(types.KindInvalidRequest, "no video model configured", nil)
	}
	if strings.TrimSpace(script) == "" {
		return nil, s.fail(types.KindInvalidRequest, "script text is empty", nil)
	}

	job, err := s.submit(ctx, script, seed)
	if err != nil {
		return nil, err
	}
	logger := s.logger.With("handle", job.Handle)

	final, err := s.poll(ctx, job, logger, onProgress)
	if err != nil {
		return nil, err
	}
	return s.retrieve(ctx, final, logger)
}

func (s *VideoStage) submit(ctx context.Context, script string, seed *types.MediaArtifact) (*types.VideoJob, error) {
	prompt, err := prompts.VideoPrompt(script)
	if err != nil {
		return nil, types.WithStage(err, types.StageVideo)
	}

	s.logger.Info("submitting video job", "model", s.config.Model, "seeded", seed != nil, "script_chars", len(script))

	ack, err := withRetry(ctx, types.StageVideo, s.logger, func(ctx context.Context) (*llm.Response, error) {
		reqCtx, cancel := withTimeout(ctx, s.config.RequestTimeout)
		defer cancel()
		return s.client.SubmitVideo(reqCtx, llm.VideoRequest{
			Model:       s.config.Model,
			Prompt:      prompt,
			Image:       seed,
			AspectRatio: s.config.AspectRatio,
		})
	})
	if err != nil {
		return nil, types.WithStage(err, types.StageVideo)
	}

	state, err := extract.Operation(ack)
	if err != nil {
		return nil, types.WithStage(err, types.StageVideo)
	}
	if state.Handle == "" {
		return nil, &types.Error{Kind: types.KindUnparsable, Stage: types.StageVideo, Message: "submission returned no job handle", Raw: ack.Raw}
	}

	return &types.VideoJob{
		Handle:      state.Handle,
		Status:      types.JobPending,
		SubmittedAt: s.clock.Now(),
	}, nil
}

// poll queries the job immediately, then after each backoff delay, until a terminal state.
// It returns the response that reported success.
func (s *VideoStage) poll(ctx context.Context, job *types.VideoJob, logger *slog.Logger, onProgress types.VideoProgressFunc) (*llm.Response, error) {
	deadline := job.SubmittedAt.Add(s.config.MaxWait)
	rng := rand.New(rand.NewSource(job.SubmittedAt.UnixNano()))

	for {
		if err := ctx.Err(); err != nil {
			logger.Warn("video polling stopped by caller", "polls", job.Polls, "err", err)
			return nil, types.WithStage(llm.Classify(err), types.StageVideo)
		}

		hitCeiling := false
		resp, err := withRetry(ctx, types.StageVideo, logger, func(ctx context.Context) (*llm.Response, error) {
			reqCtx, cancel, capped := s.pollContext(ctx, deadline)
			defer cancel()
			if capped && reqCtx.Err() != nil && ctx.Err() == nil {
				hitCeiling = true
				return nil, reqCtx.Err()
			}
			resp, err := s.client.GetOperation(reqCtx, job.Handle)
			if err != nil && capped && errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
				hitCeiling = true
			}
			return resp, err
		})
		job.Polls++
		if hitCeiling {
			return nil, s.timedOut(job, logger)
		}
		if err != nil {
			return nil, types.WithStage(err, types.StageVideo)
		}

		state, err := extract.Operation(resp)
		if err != nil {
			return nil, types.WithStage(err, types.StageVideo)
		}
		job.Status = state.Status
		metrics.VideoPollsTotal.WithLabelValues(string(job.Status)).Inc()

		now := s.clock.Now()
		delay := time.Duration(0)
		if !job.Status.IsTerminal() {
			delay = s.config.Poll.Delay(job.Polls-1, rng)
			if remaining := deadline.Sub(now); delay > remaining {
				delay = max(remaining, 0)
			}
		}
		if onProgress != nil {
			onProgress(types.VideoProgress{
				Handle:    job.Handle,
				Status:    job.Status,
				Elapsed:   now.Sub(job.SubmittedAt),
				Poll:      job.Polls,
				NextDelay: delay,
			})
		}
		logger.Debug("video job status", "status", job.Status, "poll", job.Polls, "next_delay", delay)

		switch job.Status {
		case types.JobSucceeded:
			logger.Info("video job finished", "polls", job.Polls, "elapsed", now.Sub(job.SubmittedAt))
			return resp, nil
		case types.JobFailed:
			reason := state.Reason
			if reason == "" {
				reason = "no reason given"
			}
			logger.Warn("video job failed", "polls", job.Polls, "reason", reason)
			return nil, &types.Error{
				Kind:    types.KindGenerationFailed,
				Stage:   types.StageVideo,
				Message: fmt.Sprintf("video job failed: %s", reason),
				Raw:     resp.Raw,
			}
		}

		if !now.Before(deadline) {
			return nil, s.timedOut(job, logger)
		}
		if err := s.clock.Sleep(ctx, delay); err != nil {
			logger.Warn("video polling stopped by caller", "polls", job.Polls, "err", err)
			return nil, types.WithStage(llm.Classify(err), types.StageVideo)
		}
		if !s.clock.Now().Before(deadline) {
			return nil, s.timedOut(job, logger)
		}
	}
}

// pollContext bounds one status query by RequestTimeout and by what is left
// of the job's ceiling. capped reports that the ceiling is the tighter bound.
func (s *VideoStage) pollContext(ctx context.Context, deadline time.Time) (context.Context, context.CancelFunc, bool) {
	remaining := max(deadline.Sub(s.clock.Now()), 0)
	if s.config.RequestTimeout > 0 && s.config.RequestTimeout < remaining {
		reqCtx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
		return reqCtx, cancel, false
	}
	reqCtx, cancel := context.WithTimeout(ctx, remaining)
	return reqCtx, cancel, true
}

func (s *VideoStage) timedOut(job *types.VideoJob, logger *slog.Logger) error {
	job.Status = types.JobTimedOut
	logger.Warn("video job abandoned", "polls", job.Polls, "max_wait", s.config.MaxWait)
	return &types.Error{
		Kind:    types.KindTimeout,
		Stage:   types.StageVideo,
		Message: fmt.Sprintf("video job %s did not finish within %s", job.Handle, s.config.MaxWait),
	}
}

// retrieve turns the finished operation into a video artifact, downloading it when needed
func (s *VideoStage) retrieve(ctx context.Context, final *llm.Response, logger *slog.Logger) (*types.MediaArtifact, error) {
	out, err := extract.Video(final)
	if err != nil {
		return nil, types.WithStage(err, types.StageVideo)
	}
	if len(out.Bytes) > 0 {
		return types.NewMediaArtifact(types.MediaVideo, out.Bytes, out.MIMEType), nil
	}

	type download struct {
		data []byte
		mime string
	}
	got, err := withRetry(ctx, types.StageVideo, logger, func(ctx context.Context) (download, error) {
		reqCtx, cancel := withTimeout(ctx, s.config.RequestTimeout)
		defer cancel()
		data, mime, err := s.client.Download(reqCtx, out.URI)
		return download{data: data, mime: mime}, err
	})
	if err != nil {
		return nil, types.WithStage(err, types.StageVideo)
	}
	if len(got.data) == 0 {
		return nil, s.fail(types.KindGenerationFailed, "downloaded video is empty", nil)
	}

	mime := out.MIMEType
	if got.mime != "" && !strings.HasPrefix(got.mime, "application/octet-stream") {
		mime = got.mime
	}
	logger.Info("video downloaded", "bytes", len(got.data), "mime_type", mime)
	return types.NewMediaArtifact(types.MediaVideo, got.data, mime), nil
}

func (s *VideoStage) fail(kind types.ErrorKind, message string, cause error) error {
	return &types.Error{Kind: kind, Stage: types.StageVideo, Message: message, Cause: cause}
}
