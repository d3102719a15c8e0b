// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"net/http"

	"github.com/nextread/nextread/pkg/prediction"
	"github.com/nextread/nextread/pkg/rankingstore"
)

// selectedArmResult is the shared response shape for GET /tuner/weights
// and GET /tuner/best.
type selectedArmResult struct {
	Arm     int                  `json:"arm"`
	Weights rankingstore.Weights `json:"weights"`
}

// handleTunerWeights answers GET /tuner/weights: a fresh Thompson sample
//.
func (s *Server) handleTunerWeights(w http.ResponseWriter, r *http.Request) (any, error) {
	deps, err := s.deps(r)
	if err != nil {
		return nil, err
	}
	sel, err := deps.Engine.Tuner().SelectArm(r.Context())
	if err != nil {
		return nil, internalErr("select_arm failed", err)
	}
	return selectedArmResult{Arm: sel.Index, Weights: sel.Weights}, nil
}

// handleTunerBest answers GET /tuner/best: the exploitation-only pick
//.
func (s *Server) handleTunerBest(w http.ResponseWriter, r *http.Request) (any, error) {
	deps, err := s.deps(r)
	if err != nil {
		return nil, err
	}
	sel, err := deps.Engine.Tuner().BestArm(r.Context())
	if err != nil {
		return nil, internalErr("best_arm failed", err)
	}
	return selectedArmResult{Arm: sel.Index, Weights: sel.Weights}, nil
}

// handleTunerStats answers GET /tuner/stats: the full arm table.
func (s *Server) handleTunerStats(w http.ResponseWriter, r *http.Request) (any, error) {
	deps, err := s.deps(r)
	if err != nil {
		return nil, err
	}
	reports, err := deps.Engine.Tuner().Stats(r.Context())
	if err != nil {
		return nil, internalErr("tuner stats failed", err)
	}
	return map[string]any{"arms": reports}, nil
}

// tunerFeedbackRequest is POST /tuner/feedback's body.
type tunerFeedbackRequest struct {
	ArmIdx int  `json:"arm_idx"`
	Hit    bool `json:"hit"`
}

func (s *Server) handleTunerFeedback(w http.ResponseWriter, r *http.Request) (any, error) {
	deps, err := s.deps(r)
	if err != nil {
		return nil, err
	}
	var req tunerFeedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}
	if req.ArmIdx < 0 || req.ArmIdx >= prediction.NumArms {
		return nil, badRequest("arm_idx out of range", nil)
	}
	if err := deps.Engine.Tuner().UpdateArm(r.Context(), req.ArmIdx, req.Hit); err != nil {
		return nil, internalErr("update_arm failed", err)
	}
	return intentResult{OK: true}, nil
}

func (s *Server) handleTunerReset(w http.ResponseWriter, r *http.Request) (any, error) {
	deps, err := s.deps(r)
	if err != nil {
		return nil, err
	}
	if err := deps.Engine.Tuner().ResetArms(r.Context()); err != nil {
		return nil, internalErr("reset_arms failed", err)
	}
	return intentResult{OK: true}, nil
}
