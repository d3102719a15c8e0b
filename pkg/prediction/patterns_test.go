// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package prediction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTagsFor_MatchesMultiplePatternsAndDedupes(t *testing.T) {
	tags := TagsFor("fix the auth login flow in the api handler", "Edit")
	assert.Contains(t, tags, "#authentication")
	assert.Contains(t, tags, "#security")
	assert.Contains(t, tags, "#api")
	assert.Contains(t, tags, "#editing")
}

func TestTagsFor_CaseInsensitive(t *testing.T) {
	tags := TagsFor("REDIS CACHE layer", "")
	assert.Contains(t, tags, "#caching")
}

func TestTagsFor_UnknownToolYieldsNoSyntheticTag(t *testing.T) {
	tags := TagsFor("nothing special here", "Unknown")
	assert.NotContains(t, tags, "#reading")
}

func TestExtractKeywords_LowercasesStripsPunctuationAndStopWords(t *testing.T) {
	kws := ExtractKeywords("Fix the Auth, Login & Session handling!")
	assert.Contains(t, kws, "fix")
	assert.Contains(t, kws, "auth")
	assert.Contains(t, kws, "login")
	assert.Contains(t, kws, "session")
	assert.Contains(t, kws, "handling")
	assert.NotContains(t, kws, "the")
	assert.NotContains(t, kws, "and")
}

func TestExtractKeywords_DedupesPreservingFirstOccurrence(t *testing.T) {
	kws := ExtractKeywords("auth auth auth config")
	assert.Equal(t, []string{"auth", "config"}, kws)
}

func TestFingerprint_IsOrderIndependent(t *testing.T) {
	a := Fingerprint([]string{"beta", "alpha"})
	b := Fingerprint([]string{"alpha", "beta"})
	assert.Equal(t, a, b)
	assert.Equal(t, "alpha|beta", a)
}

func TestTagsForKeywords_AppliesPatternsAcrossKeywordSet(t *testing.T) {
	tags := TagsForKeywords([]string{"database", "migration"})
	assert.Contains(t, tags, "#database")
}
