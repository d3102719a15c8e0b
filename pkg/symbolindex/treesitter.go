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

package symbolindex

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/nextread/nextread/pkg/tokenize"
)

// identifierNodeTypes lists the tree-sitter node kinds treated as
// identifier-like across the three supported grammars. A generic
// identifier collector (rather than the full function/type/call graph a
// richer ingestion pipeline would build) is all the Symbol Index needs:
// it only ever ranks file+line hits by token, never by AST shape.
var identifierNodeTypes = map[string]struct{}{
	"identifier":       {},
	"type_identifier":  {},
	"field_identifier": {},
	"property_identifier": {},
}

// Extractor produces the token stream IndexPath consumes from a file's
// content, using a tree-sitter grammar when one is registered for the
// file's extension and falling back to pkg/tokenize otherwise.
type Extractor struct {
	logger    *slog.Logger
	languages map[string]*sitter.Language
}

// NewExtractor returns an Extractor wired with the Go, TypeScript, and
// Python grammars. Extensions outside this set always fall back to the
// plain tokenizer.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		logger: logger,
		languages: map[string]*sitter.Language{
			".go":  golang.GetLanguage(),
			".ts":  typescript.GetLanguage(),
			".tsx": typescript.GetLanguage(),
			".py":  python.GetLanguage(),
		},
	}
}

// Extract tokenizes content for path. On a tree-sitter parse error, or
// for an unregistered extension, it falls back to tokenize.Lines so a
// syntax error in one file never removes it from the index.
func (e *Extractor) Extract(path string, content []byte) []tokenize.Token {
	lang, ok := e.languages[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return tokenize.Lines(string(content))
	}

	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		e.logger.Warn("symbolindex.treesitter.parse_error", "path", path, "error", err)
		return tokenize.Lines(string(content))
	}
	defer tree.Close()

	root := tree.RootNode()
	var out []tokenize.Token
	walkIdentifiers(root, content, &out)

	// Syntax errors don't abort extraction: tree-sitter is error-tolerant
	// and still yields identifiers around the damaged region, which is
	// strictly better for recall than dropping the whole file.
	return out
}

// walkIdentifiers recursively collects every identifier-like leaf node,
// appending one Token per occurrence (plus its lowercase variant when
// distinct, matching pkg/tokenize's emission rule).
func walkIdentifiers(node *sitter.Node, content []byte, out *[]tokenize.Token) {
	if node == nil {
		return
	}
	if _, ok := identifierNodeTypes[node.Type()]; ok {
		text := node.Content(content)
		if keepIdentifier(text) {
			line := int(node.StartPoint().Row) + 1
			*out = append(*out, tokenize.Token{Text: text, Line: line})
			if lower := strings.ToLower(text); lower != text {
				*out = append(*out, tokenize.Token{Text: lower, Line: line, Lower: true})
			}
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkIdentifiers(node.Child(i), content, out)
	}
}

// keepIdentifier applies the same length/digit filter pkg/tokenize uses,
// so tree-sitter and fallback extraction populate the index consistently.
func keepIdentifier(s string) bool {
	if len(s) < minIdentifierLen {
		return false
	}
	allDigits := true
	for _, r := range s {
		if r < '0' || r > '9' {
			allDigits = false
			break
		}
	}
	return !allDigits
}

const minIdentifierLen = 2
