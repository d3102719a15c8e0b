// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"net/http"

	"github.com/nextread/nextread/internal/contract"
	"github.com/nextread/nextread/pkg/intentcapture"
)

// intentResult mirrors the two possible POST /intent bodies:
// `{ok:true}` or `{ok:false, reason}`.
type intentResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// handleIntent answers POST /intent, the host-assistant hook transport
//. Submission is fire-and-forget: once the envelope
// is structurally valid it is queued and the request returns without
// waiting for the Ranking Store writes or prediction the event
// triggers.
func (s *Server) handleIntent(w http.ResponseWriter, r *http.Request) (any, error) {
	deps, err := s.deps(r)
	if err != nil {
		return nil, err
	}
	var e intentcapture.Envelope
	if err := decodeJSON(r, &e); err != nil {
		return intentResult{OK: false, Reason: "malformed request body"}, nil
	}
	if e.Project == "" {
		e.Project = deps.Project
	}
	if v := contract.ValidateEnvelopeSize(len(e.Prompt) + envelopeInputSize(e.ToolInput)); !v.OK {
		return intentResult{OK: false, Reason: v.Message}, nil
	}

	if err := deps.Pipeline.Submit(e); err != nil {
		return intentResult{OK: false, Reason: err.Error()}, nil
	}
	return intentResult{OK: true}, nil
}

// envelopeInputSize approximates tool_input's wire size for the soft
// size check above, without re-marshaling the whole envelope.
func envelopeInputSize(input map[string]any) int {
	n := 0
	for k, v := range input {
		n += len(k)
		if s, ok := v.(string); ok {
			n += len(s)
		} else {
			n += 16
		}
	}
	return n
}
