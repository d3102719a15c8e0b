// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package prediction

import (
	"regexp"
	"sort"
	"strings"
)

// intentPattern is one row of the INTENT_PATTERNS table.
type intentPattern struct {
	re   *regexp.Regexp
	tags []string
}

// intentPatterns is the normative intent-keyword enumeration. Each
// pattern runs case-insensitively against the combined prompt text plus
// any file paths under consideration.
var intentPatterns = compilePatterns([]struct {
	pattern string
	tags    []string
}{
	{`auth|login|session|oauth|jwt|token|credential`, []string{"#authentication", "#security"}},
	{`test[s]?[/_]|_test\.|\bspec[s]?\b`, []string{"#testing"}},
	{`config|settings|\.env|environ`, []string{"#configuration"}},
	{`api|endpoint|route|handler|middleware`, []string{"#api"}},
	{`index|search|query|scorer|ranking`, []string{"#search"}},
	{`database|\bdb\b|schema|migration`, []string{"#database"}},
	{`log|logger|logging`, []string{"#logging"}},
	{`redis|cache|memo`, []string{"#caching"}},
	{`docker|compose|supervisor|deploy|ci|cd|pipeline`, []string{"#devops"}},
	{`payment|stripe|checkout|billing`, []string{"#payments"}},
	{`ml|model|training|inference|embedding`, []string{"#machine-learning"}},
	{`ui|react|component|render`, []string{"#ui"}},
})

func compilePatterns(rows []struct {
	pattern string
	tags    []string
}) []intentPattern {
	out := make([]intentPattern, len(rows))
	for i, r := range rows {
		out[i] = intentPattern{re: regexp.MustCompile("(?i)" + r.pattern), tags: r.tags}
	}
	return out
}

// ToolTag is the synthetic tag contributed by the tool itself, per
// the "Per-tool synthetic tags" row.
func ToolTag(tool string) string {
	switch tool {
	case "Read":
		return "#reading"
	case "Edit":
		return "#editing"
	case "Write":
		return "#creating"
	case "Grep", "Glob", "Search":
		return "#searching"
	case "Bash":
		return "#running"
	default:
		return ""
	}
}

// TagsFor returns the union-deduplicated set of tags inferred for the
// combined text (a prompt, a set of paths, or both), plus the synthetic
// tool tag if tool is non-empty.
func TagsFor(text, tool string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(tag string) {
		if tag == "" {
			return
		}
		if _, ok := seen[tag]; !ok {
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}

	for _, p := range intentPatterns {
		if p.re.MatchString(text) {
			for _, t := range p.tags {
				add(t)
			}
		}
	}
	add(ToolTag(tool))

	sort.Strings(out)
	return out
}

// stopWords is removed during keyword extraction.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"to": {}, "of": {}, "in": {}, "on": {}, "for": {}, "with": {}, "and": {},
	"or": {}, "but": {}, "at": {}, "by": {}, "from": {}, "this": {}, "that": {},
	"it": {}, "be": {}, "as": {}, "i": {}, "we": {}, "you": {}, "me": {},
	"my": {}, "our": {}, "can": {}, "do": {}, "does": {}, "did": {}, "have": {},
	"has": {}, "had": {}, "will": {}, "would": {}, "should": {}, "could": {},
}

var punctuation = regexp.MustCompile(`[^\w\s-]`)
var whitespace = regexp.MustCompile(`\s+`)

// ExtractKeywords lowercases intent, strips punctuation, and removes
// stop words. Order of first occurrence is
// preserved, duplicates removed.
func ExtractKeywords(intent string) []string {
	lowered := strings.ToLower(intent)
	stripped := punctuation.ReplaceAllString(lowered, " ")
	fields := whitespace.Split(strings.TrimSpace(stripped), -1)

	seen := make(map[string]struct{})
	var out []string
	for _, f := range fields {
		if f == "" {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// Fingerprint computes the stable cache key for a keyword set:
// the sorted keyword list joined by `|`.
func Fingerprint(keywords []string) string {
	sorted := append([]string(nil), keywords...)
	sort.Strings(sorted)
	return strings.Join(sorted, "|")
}

// TagsForKeywords applies INTENT_PATTERNS to each keyword individually
// and unions the result.
func TagsForKeywords(keywords []string) []string {
	return TagsFor(strings.Join(keywords, " "), "")
}
