// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package tokenize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText_SplitsOnDashAndDot(t *testing.T) {
	assert.Equal(t, []string{"tree", "sitter"}, Text("tree-sitter"))
	assert.Equal(t, []string{"app", "post"}, Text("app.post"))
}

func TestText_KeepsUnderscore(t *testing.T) {
	assert.Equal(t, []string{"tree_sitter"}, Text("tree_sitter"))
}

func TestText_EmitsLowercaseVariant(t *testing.T) {
	got := Text("HandleRequest")
	assert.Equal(t, []string{"HandleRequest", "handlerequest"}, got)
}

func TestText_NoLowercaseDuplicateWhenAlreadyLower(t *testing.T) {
	got := Text("handler")
	assert.Equal(t, []string{"handler"}, got)
}

func TestText_DiscardsShortAndPureDigitTokens(t *testing.T) {
	got := Text("a 12 ab x9 99999")
	assert.Equal(t, []string{"ab", "x9"}, got)
}

func TestLines_TracksLineNumbers(t *testing.T) {
	content := "package main\n\nfunc Handle() {}\n"
	toks := Lines(content)
	var found bool
	for _, tok := range toks {
		if tok.Text == "Handle" {
			found = true
			assert.Equal(t, 3, tok.Line)
		}
	}
	assert.True(t, found)
}

func TestFilenameStem_Basic(t *testing.T) {
	got := FilenameStem("/src/auth-handler.go")
	assert.Contains(t, got, "auth")
	assert.Contains(t, got, "handler")
}

func TestFilenameStem_UnderscoreKept(t *testing.T) {
	got := FilenameStem("/pkg/tree_sitter_test.go")
	assert.Contains(t, got, "tree_sitter_test")
}
