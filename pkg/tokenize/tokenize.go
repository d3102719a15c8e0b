// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package tokenize implements the normative identifier tokenizer shared by
// the Symbol Index and the tag-inference stage of Intent Capture.
//
// Splitting rule: every character that is not a letter, digit, or
// underscore is a splitter, including '-' and '.'. Underscores are kept
// as part of a token. Each raw token is emitted alongside its lowercase
// form; tokens shorter than two characters or consisting entirely of
// digits are discarded.
package tokenize

import (
	"path/filepath"
	"strings"
	"unicode"
)

// minTokenLen is the shortest token kept by the tokenizer.
const minTokenLen = 2

// Token is one occurrence of an identifier-like token in a line of text.
type Token struct {
	Text string // as it appeared (or its lowercase form, see Lower)
	Line int    // 1-based line number
	Lower bool  // true if Text is the lowercased form of a mixed-case token
}

// Text splits s on every rune that is not a letter, digit, or underscore,
// discards short/pure-digit tokens, and returns both the raw and
// lowercased form of every surviving token. Order is stable: a token's
// raw form always precedes its lowercase form when they differ.
func Text(s string) []string {
	var out []string
	for _, raw := range splitFields(s) {
		if !keep(raw) {
			continue
		}
		out = append(out, raw)
		if lower := strings.ToLower(raw); lower != raw {
			out = append(out, lower)
		}
	}
	return out
}

// Lines tokenizes a file's content line by line, returning one Token per
// surviving (raw or lowercased) occurrence with its 1-based line number.
func Lines(content string) []Token {
	var out []Token
	lineNo := 0
	for _, line := range strings.Split(content, "\n") {
		lineNo++
		for _, raw := range splitFields(line) {
			if !keep(raw) {
				continue
			}
			out = append(out, Token{Text: raw, Line: lineNo})
			if lower := strings.ToLower(raw); lower != raw {
				out = append(out, Token{Text: lower, Line: lineNo, Lower: true})
			}
		}
	}
	return out
}

// FilenameStem tokenizes the basename of path with its extension
// stripped, using the same splitter rules as file content.
func FilenameStem(path string) []string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return Text(stem)
}

// splitFields splits s on every rune that is not a letter, digit, or
// underscore.
func splitFields(s string) []string {
	isSplit := func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	}
	return strings.FieldsFunc(s, isSplit)
}

// keep reports whether a raw token survives the minimum-length and
// pure-digit stoplist filters.
func keep(tok string) bool {
	if len(tok) < minTokenLen {
		return false
	}
	for _, r := range tok {
		if !unicode.IsDigit(r) {
			return true
		}
	}
	return false // pure digits
}
