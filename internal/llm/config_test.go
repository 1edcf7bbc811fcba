package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, BackendREST, config.Backend)
	assert.Equal(t, "imagen-3.0-generate-002", config.GetModel(RoleImage))
	assert.Equal(t, "gemini-2.0-flash", config.GetModel(RoleText))
	assert.Equal(t, "veo-3.0-generate-preview", config.GetModel(RoleVideo))
}

func TestGetModel_NoCrossRoleFallback(t *testing.T) {
	config := &Config{
		Models: map[ModelRole]string{
			RoleText: "text-only",
		},
	}

	assert.Equal(t, "", config.GetModel(RoleVideo))
	assert.Equal(t, "", config.GetModel("unknown"))
}

func TestWithModel(t *testing.T) {
	config := DefaultConfig()
	newConfig := config.WithModel(RoleVideo, "veo-custom")

	// Original should be unchanged
	assert.Equal(t, "veo-3.0-generate-preview", config.GetModel(RoleVideo))

	// New config should have custom model
	assert.Equal(t, "veo-custom", newConfig.GetModel(RoleVideo))

	// Other roles and endpoint settings should be copied
	assert.Equal(t, "gemini-2.0-flash", newConfig.GetModel(RoleText))
	assert.Equal(t, config.BaseURL, newConfig.BaseURL)
}

func TestEndpoint(t *testing.T) {
	assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta", (&Config{}).endpoint())
	assert.Equal(t, "http://127.0.0.1:9/v1", (&Config{BaseURL: "http://127.0.0.1:9", APIVersion: "v1"}).endpoint())
}

func TestRoleConstants(t *testing.T) {
	assert.Equal(t, ModelRole("image"), RoleImage)
	assert.Equal(t, ModelRole("text"), RoleText)
	assert.Equal(t, ModelRole("video"), RoleVideo)
}
