// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package intentcapture

import "errors"

// ErrUnknownEvent is returned when an envelope's Tool names neither a
// recognized tool-use event nor one of the two synthetic kinds
//.
var ErrUnknownEvent = errors.New("intentcapture: unknown event kind")

// Kind identifies which of the three accepted event shapes an Envelope
// carries (the closed tagged-variant table: tool-use-post,
// prompt-submit, session-start).
type Kind int

const (
	KindToolUse Kind = iota
	KindPromptSubmit
	KindSessionStart
)

// Envelope is the wire shape of POST /intent. See Kind for
// how the event's kind is inferred from its fields.
type Envelope struct {
	Tool      string         `json:"tool"`
	ToolInput map[string]any `json:"tool_input,omitempty"`
	Prompt    string         `json:"prompt,omitempty"`
	SessionID string         `json:"session_id"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Timestamp int64          `json:"timestamp"` // epoch ms
	Project   string         `json:"project,omitempty"`
}

// Kind classifies e per the envelope's own event table. The envelope
// carries no explicit kind discriminant: "Prompt" is one of Tool's
// enumerated values for prompt-submit events; an empty Tool (no
// tool-use fields at all) signals session-start; anything else is a
// tool-use-post event keyed by tool name.
func (e Envelope) Kind() Kind {
	switch {
	case e.Tool == "Prompt":
		return KindPromptSubmit
	case e.Tool == "":
		return KindSessionStart
	default:
		return KindToolUse
	}
}

// Validate checks the required fields for e's Kind.
func (e Envelope) Validate() error {
	if e.SessionID == "" {
		return errors.New("intentcapture: session_id is required")
	}
	switch e.Kind() {
	case KindPromptSubmit:
		if e.Prompt == "" {
			return errors.New("intentcapture: prompt is required for prompt-submit events")
		}
	case KindSessionStart:
		if e.Project == "" {
			return errors.New("intentcapture: project is required for session-start events")
		}
	}
	return nil
}

// ExtractPaths returns the file or directory paths associated with a
// tool-use event, "Path extraction per tool" table.
// Bash and any unrecognized tool yield no paths.
func (e Envelope) ExtractPaths() []string {
	get := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := e.ToolInput[k]; ok {
				if s, ok := v.(string); ok && s != "" {
					return s
				}
			}
		}
		return ""
	}

	switch e.Tool {
	case "Read", "Edit", "Write":
		if p := get("file_path", "path"); p != "" {
			return []string{p}
		}
	case "Grep", "Glob", "Search":
		if p := get("path", "include"); p != "" {
			return []string{p}
		}
	}
	return nil
}
