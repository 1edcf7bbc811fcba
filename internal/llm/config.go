// Package llm provides centralized model configuration and client abstractions for the
// image, text and video generation services.
package llm

// ModelRole identifies which remote model serves a pipeline stage
type ModelRole string

const (
	// RoleImage is the still-image model
	RoleImage ModelRole = "image"
	// RoleText is the script model
	RoleText ModelRole = "text"
	// RoleVideo is the long-running video model
	RoleVideo ModelRole = "video"
)

// Backend selects how the text model is reached
type Backend string

// Backend constants define supported transports
const (
	// BackendREST talks to the Generative Language REST API directly
	BackendREST Backend = "rest"
	// BackendSDK uses the generative-ai-go SDK (text only, no search grounding)
	BackendSDK Backend = "sdk"
)

// Default endpoint settings
const (
	DefaultBaseURL    = "https://generativelanguage.googleapis.com"
	DefaultAPIVersion = "v1beta"
)

// Config holds the model configuration for the application
type Config struct {
	Backend    Backend
	Models     map[ModelRole]string
	BaseURL    string
	APIVersion string
}

// DefaultConfig returns the default configuration (currently Gemini)
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Backend: BackendREST,
		Models: map[ModelRole]string{
			RoleImage: "imagen-3.0-generate-002",
			RoleText:  "gemini-2.0-flash",
			RoleVideo: "veo-3.0-generate-preview",
		},
		BaseURL:    DefaultBaseURL,
		APIVersion: DefaultAPIVersion,
	}
}

// GetModel returns the model name for a given role.
// Roles do not fall back to each other: an image model cannot write a script.
func (c *Config) GetModel(role ModelRole) string {
	if model, ok := c.Models[role]; ok {
		return model
	}
	return ""
}

// WithModel returns a new Config with a specific model for a role
func (c *Config) WithModel(role ModelRole, model string) *Config {
	newConfig := &Config{
		Backend:    c.Backend,
		Models:     make(map[ModelRole]string),
		BaseURL:    c.BaseURL,
		APIVersion: c.APIVersion,
	}
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[role] = model
	return newConfig
}

func (c *Config) endpoint() string {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	version := c.APIVersion
	if version == "" {
		version = DefaultAPIVersion
	}
	return base + "/" + version
}
