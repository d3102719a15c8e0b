// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package intentcapture

import (
	"strings"

	"github.com/nextread/nextread/pkg/prediction"
)

// tagsFor infers the union-deduplicated tag set for a tool-use event:
// INTENT_PATTERNS matched against the combined prompt-plus-paths text
//, plus the synthetic per-tool tag ( "Tag
// inference"). The table itself lives in pkg/prediction; see
// DESIGN.md for why.
func tagsFor(e Envelope, paths []string) []string {
	text := strings.Join(append(append([]string(nil), paths...), e.Prompt), " ")
	return prediction.TagsFor(text, e.Tool)
}
