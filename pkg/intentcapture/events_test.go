// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package intentcapture

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvelope_Kind_ClassifiesByTool(t *testing.T) {
	assert.Equal(t, KindPromptSubmit, Envelope{Tool: "Prompt"}.Kind())
	assert.Equal(t, KindSessionStart, Envelope{}.Kind())
	assert.Equal(t, KindToolUse, Envelope{Tool: "Read"}.Kind())
}

func TestEnvelope_Validate_RequiresSessionID(t *testing.T) {
	err := Envelope{Tool: "Read"}.Validate()
	assert.Error(t, err)
}

func TestEnvelope_Validate_PromptSubmitRequiresPrompt(t *testing.T) {
	err := Envelope{Tool: "Prompt", SessionID: "s1"}.Validate()
	assert.Error(t, err)

	err = Envelope{Tool: "Prompt", SessionID: "s1", Prompt: "fix auth"}.Validate()
	assert.NoError(t, err)
}

func TestEnvelope_Validate_SessionStartRequiresProject(t *testing.T) {
	err := Envelope{SessionID: "s1"}.Validate()
	assert.Error(t, err)

	err = Envelope{SessionID: "s1", Project: "proj"}.Validate()
	assert.NoError(t, err)
}

func TestExtractPaths_ReadEditWriteUseFilePath(t *testing.T) {
	for _, tool := range []string{"Read", "Edit", "Write"} {
		e := Envelope{Tool: tool, ToolInput: map[string]any{"file_path": "a.go"}}
		assert.Equal(t, []string{"a.go"}, e.ExtractPaths())
	}
}

func TestExtractPaths_FallsBackToPathField(t *testing.T) {
	e := Envelope{Tool: "Read", ToolInput: map[string]any{"path": "b.go"}}
	assert.Equal(t, []string{"b.go"}, e.ExtractPaths())
}

func TestExtractPaths_GrepGlobSearchUsePathOrInclude(t *testing.T) {
	e := Envelope{Tool: "Grep", ToolInput: map[string]any{"include": "*.go"}}
	assert.Equal(t, []string{"*.go"}, e.ExtractPaths())
}

func TestExtractPaths_BashHasNoPaths(t *testing.T) {
	e := Envelope{Tool: "Bash", ToolInput: map[string]any{"command": "ls"}}
	assert.Empty(t, e.ExtractPaths())
}
