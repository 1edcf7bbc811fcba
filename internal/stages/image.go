// Package stages implements the three generation stages: image, script and video.
// Each stage owns one injected model client and turns its responses into typed
// artifacts or taxonomy errors. Stages never touch the filesystem.
package stages

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonathan/podcast-agent/internal/extract"
	"github.com/jonathan/podcast-agent/internal/llm"
	"github.com/jonathan/podcast-agent/internal/logging"
	"github.com/jonathan/podcast-agent/internal/prompts"
	"github.com/jonathan/podcast-agent/internal/types"
)

// DefaultRequestTimeout bounds a single request/response call
const DefaultRequestTimeout = 2 * time.Minute

// ImageConfig configures the image stage
type ImageConfig struct {
	Model          string
	RequestTimeout time.Duration
	AspectRatio    string
}

// ImageStage produces one still image from a prompt
type ImageStage struct {
	client llm.ImageModel
	config ImageConfig
	logger *slog.Logger
}

// NewImageStage creates an image stage. Empty config fields take defaults.
func NewImageStage(client llm.ImageModel, config ImageConfig, logger *slog.Logger) *ImageStage {
	if config.Model == "" {
		config.Model = llm.DefaultConfig().GetModel(llm.RoleImage)
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	return &ImageStage{
		client: client,
		config: config,
		logger: logging.WithComponent(logger, "image_stage"),
	}
}

// GenerateImage requests one image. An empty prompt uses the default studio scene.
func (s *ImageStage) GenerateImage(ctx context.Context, prompt string) (*types.MediaArtifact, error) {
	if s.client == nil {
		return nil, &types.Error{Kind: types.KindInvalidRequest, Stage: types.StageImage, Message: "no image model configured"}
	}

	prompt, err := prompts.ImagePrompt(prompt)
	if err != nil {
		return nil, types.WithStage(err, types.StageImage)
	}

	s.logger.Info("generating image", "model", s.config.Model, "prompt_chars", len(prompt))

	resp, err := withRetry(ctx, types.StageImage, s.logger, func(ctx context.Context) (*llm.Response, error) {
		reqCtx, cancel := withTimeout(ctx, s.config.RequestTimeout)
		defer cancel()
		return s.client.GenerateImages(reqCtx, llm.ImageRequest{
			Model:       s.config.Model,
			Prompt:      prompt,
			Count:       1,
			AspectRatio: s.config.AspectRatio,
		})
	})
	if err != nil {
		return nil, types.WithStage(err, types.StageImage)
	}

	image, err := extract.Image(resp)
	if err != nil {
		return nil, types.WithStage(err, types.StageImage)
	}

	s.logger.Info("image generated", "mime_type", image.MIMEType, "bytes", image.Size)
	return image, nil
}
