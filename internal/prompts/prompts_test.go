package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFor(t *testing.T) {
	t.Run("should add tool rules for raw chat backends", func(t *testing.T) {
		p := For("deepseek")
		assert.True(t, strings.HasPrefix(p, strings.TrimRight(SystemPrompt, "\n")))
		assert.Contains(t, p, "at most ONE tool per reply")
	})

	t.Run("should use the base prompt for the managed backend", func(t *testing.T) {
		assert.Equal(t, SystemPrompt, For("anthropic"))
	})
}

func TestSystemPrompt(t *testing.T) {
	assert.Contains(t, SystemPrompt, "`flutter_ops`")
	assert.Contains(t, SystemPrompt, "`scaffold_clean_arch`")
	assert.Contains(t, SystemPrompt, "`lib/src/{core, features, shared}`")
	assert.NotEmpty(t, Greeting)
}
