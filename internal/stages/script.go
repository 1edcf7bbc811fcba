package stages

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonathan/podcast-agent/internal/extract"
	"github.com/jonathan/podcast-agent/internal/llm"
	"github.com/jonathan/podcast-agent/internal/logging"
	"github.com/jonathan/podcast-agent/internal/metrics"
	"github.com/jonathan/podcast-agent/internal/prompts"
	"github.com/jonathan/podcast-agent/internal/segment"
	"github.com/jonathan/podcast-agent/internal/types"
)

// DefaultTemperature keeps scripts conversational without drifting off topic
const DefaultTemperature float32 = 0.7

// ScriptConfig configures the script stage
type ScriptConfig struct {
	Model           string
	Temperature     float32
	MaxOutputTokens int
	RequestTimeout  time.Duration
}

// ScriptStage produces a segmented script and its grounding metadata
type ScriptStage struct {
	client    llm.TextModel
	config    ScriptConfig
	segmenter *segment.Segmenter
	logger    *slog.Logger
}

// NewScriptStage creates a script stage. A nil segmenter uses the default strategies.
func NewScriptStage(client llm.TextModel, config ScriptConfig, segmenter *segment.Segmenter, logger *slog.Logger) *ScriptStage {
	if config.Model == "" {
		config.Model = llm.DefaultConfig().GetModel(llm.RoleText)
	}
	if config.Temperature == 0 {
		config.Temperature = DefaultTemperature
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	if segmenter == nil {
		segmenter = segment.New()
	}
	return &ScriptStage{
		client:    client,
		config:    config,
		segmenter: segmenter,
		logger:    logging.WithComponent(logger, "script_stage"),
	}
}

// GenerateScript asks the text model for req.PartCount parts about req.Topic.
// A part count mismatch is reported as a warning on the returned script.
func (s *ScriptStage) GenerateScript(ctx context.Context, req types.GenerationRequest) (*types.Script, error) {
	if s.client == nil {
		return nil, &types.Error{Kind: types.KindInvalidRequest, Stage: types.StageScript, Message: "no text model configured"}
	}
	parts := req.PartCount
	if parts < 1 {
		parts = types.DefaultPartCount
	}

	prompt, err := prompts.ScriptPrompt(req.Topic, parts, req.UseSearch)
	if err != nil {
		return nil, types.WithStage(err, types.StageScript)
	}

	s.logger.Info("generating script", "model", s.config.Model, "parts", parts, "search", req.UseSearch)

	resp, err := withRetry(ctx, types.StageScript, s.logger, func(ctx context.Context) (*llm.Response, error) {
		reqCtx, cancel := withTimeout(ctx, s.config.RequestTimeout)
		defer cancel()
		return s.client.GenerateText(reqCtx, llm.TextRequest{
			Model:           s.config.Model,
			Prompt:          prompt,
			Temperature:     s.config.Temperature,
			MaxOutputTokens: s.config.MaxOutputTokens,
			UseSearch:       req.UseSearch,
		})
	})
	if err != nil {
		return nil, types.WithStage(err, types.StageScript)
	}

	text, shape, err := extract.TextWithShape(resp)
	if err != nil {
		s.logger.Warn("script response had no text", "raw_bytes", len(resp.Raw))
		return nil, types.WithStage(err, types.StageScript)
	}

	partition := s.segmenter.Segment(text, parts)
	if len(partition.Segments) == 0 {
		return nil, &types.Error{
			Kind:    types.KindUnparsable,
			Stage:   types.StageScript,
			Message: "script text contained no usable segments",
			Raw:     resp.Raw,
		}
	}

	script := &types.Script{
		Segments:  partition.Segments,
		Grounding: extract.Grounding(resp),
		Strategy:  partition.Strategy,
	}
	if partition.Warning != nil {
		metrics.SegmentWarningsTotal.Inc()
		s.logger.Warn("script part count mismatch", "detail", partition.Warning.Message)
		script.Warnings = append(script.Warnings, *partition.Warning)
	}

	attrs := []any{"shape", shape, "strategy", partition.Strategy, "segments", len(partition.Segments)}
	if script.Grounding != nil {
		attrs = append(attrs, "queries", len(script.Grounding.SearchQueries), "sources", len(script.Grounding.Sources))
	}
	s.logger.Info("script generated", attrs...)
	return script, nil
}
