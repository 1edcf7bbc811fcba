// Package types provides type definitions for structured data used throughout the podcast-agent system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// StageName identifies one unit of the pipeline
type StageName string

// Stage names, in execution order
const (
	StageImage  StageName = "image"
	StageScript StageName = "script"
	StageVideo  StageName = "video"
)

// AllStages lists every stage in the order the pipeline runs them
var AllStages = []StageName{StageImage, StageScript, StageVideo}

// DefaultPartCount is the number of script parts requested when none is given
const DefaultPartCount = 3

// MaxPartCount bounds how many parts a single script may be split into
const MaxPartCount = 10

// GenerationRequest is the immutable input of one pipeline run.
type GenerationRequest struct {
	Topic             string         `json:"topic" validate:"required,notblank"`
	PartCount         int            `json:"part_count" validate:"min=1,max=10"`
	UseSearch         bool           `json:"use_search"`
	CustomImagePrompt string         `json:"custom_image_prompt,omitempty"`
	SeedImage         *MediaArtifact `json:"-"`
	Stages            []StageName    `json:"stages,omitempty" validate:"dive,oneof=image script video"`
}

// RequestOption customizes a GenerationRequest at construction time
type RequestOption func(*GenerationRequest)

// WithPartCount sets the number of script parts
func WithPartCount(n int) RequestOption {
	return func(r *GenerationRequest) { r.PartCount = n }
}

// WithSearch enables search grounding for the script stage
func WithSearch(enabled bool) RequestOption {
	return func(r *GenerationRequest) { r.UseSearch = enabled }
}

// WithImagePrompt overrides the default image prompt
func WithImagePrompt(prompt string) RequestOption {
	return func(r *GenerationRequest) { r.CustomImagePrompt = strings.TrimSpace(prompt) }
}

// WithSeedImage supplies the starting frame for the video stage
func WithSeedImage(data []byte, mimeType string) RequestOption {
	return func(r *GenerationRequest) {
		if len(data) == 0 {
			return
		}
		if mimeType == "" {
			mimeType = "image/png"
		}
		r.SeedImage = &MediaArtifact{Kind: MediaImage, Bytes: data, MIMEType: mimeType}
	}
}

// WithStages restricts the run to a subset of stages
func WithStages(stages ...StageName) RequestOption {
	return func(r *GenerationRequest) { r.Stages = append([]StageName(nil), stages...) }
}

// NewGenerationRequest builds a request with defaults applied and validates it.
func NewGenerationRequest(topic string, opts ...RequestOption) (GenerationRequest, error) {
	req := GenerationRequest{
		Topic:     strings.TrimSpace(topic),
		PartCount: DefaultPartCount,
	}
	for _, opt := range opts {
		opt(&req)
	}
	if err := req.Validate(); err != nil {
		return GenerationRequest{}, err
	}
	return req, nil
}

// Wants reports whether the given stage should run for this request
func (r GenerationRequest) Wants(stage StageName) bool {
	if len(r.Stages) == 0 {
		return true
	}
	for _, s := range r.Stages {
		if s == stage {
			return true
		}
	}
	return false
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared struct validator with the custom tags registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		err := validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		if err != nil {
			panic(fmt.Sprintf("register notblank validation: %v", err))
		}
	})
	return validate
}

// Validate checks the request invariants
func (r GenerationRequest) Validate() error {
	if err := Validator().Struct(r); err != nil {
		return &Error{Kind: KindInvalidRequest, Message: "invalid generation request", Cause: err}
	}
	if r.Wants(StageVideo) && !r.Wants(StageScript) {
		return &Error{Kind: KindInvalidRequest, Message: "the video stage needs the script stage"}
	}
	return nil
}
