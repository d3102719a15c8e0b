// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package prediction

import (
	"context"
	"math"
	"math/rand"

	"github.com/nextread/nextread/pkg/rankingstore"
)

// Arm is one fixed weight configuration the tuner can select.
type Arm struct {
	Name      string  `json:"name"`
	Recency   float64 `json:"recency"`
	Frequency float64 `json:"frequency"`
	Tag       float64 `json:"tag"`
	Trans     float64 `json:"trans"`
}

// arms is the fixed 8-arm enumeration. Index is the arm's k.
var arms = []Arm{
	{Name: "recency-heavy", Recency: 0.50, Frequency: 0.30, Tag: 0.20, Trans: 0.20},
	{Name: "balanced-rf", Recency: 0.40, Frequency: 0.40, Tag: 0.20, Trans: 0.20},
	{Name: "default", Recency: 0.40, Frequency: 0.30, Tag: 0.30, Trans: 0.20},
	{Name: "frequency-heavy", Recency: 0.30, Frequency: 0.40, Tag: 0.30, Trans: 0.20},
	{Name: "tag-heavy", Recency: 0.30, Frequency: 0.30, Tag: 0.40, Trans: 0.20},
	{Name: "low-recency", Recency: 0.20, Frequency: 0.40, Tag: 0.40, Trans: 0.20},
	{Name: "high-rec-low-freq", Recency: 0.50, Frequency: 0.20, Tag: 0.30, Trans: 0.20},
	{Name: "equal", Recency: 0.33, Frequency: 0.33, Tag: 0.34, Trans: 0.20},
}

// NumArms is the fixed arm count.
const NumArms = len(arms)

// Tuner picks and updates weight-configuration arms via Thompson
// sampling over Beta(alpha, beta) posteriors.
type Tuner struct {
	store   *rankingstore.Store
	project string
	rng     *rand.Rand
}

// NewTuner returns a Tuner scoped to project, persisting arm state
// through store.
func NewTuner(store *rankingstore.Store, project string) *Tuner {
	return &Tuner{store: store, project: project, rng: rand.New(rand.NewSource(1))}
}

// SelectedArm is the result of SelectArm and BestArm: the chosen arm
// index and its weights.
type SelectedArm struct {
	Index   int
	Weights rankingstore.Weights
}

// SelectArm draws θ_k ~ Beta(α_k, β_k) for every arm and returns the
// arm with the highest draw. Thompson
// sampling is inherently fair across arms: an under-explored arm's wide
// posterior gives it a real chance to win any single draw.
func (t *Tuner) SelectArm(ctx context.Context) (SelectedArm, error) {
	states, err := t.store.ArmStates(ctx, t.project, NumArms)
	if err != nil {
		return SelectedArm{}, err
	}

	best := 0
	bestDraw := -1.0
	for k, st := range states {
		draw := sampleBeta(t.rng, st.Alpha, st.Beta)
		if draw > bestDraw {
			bestDraw = draw
			best = k
		}
	}
	return SelectedArm{Index: best, Weights: weightsOf(best)}, nil
}

// BestArm returns the arm with the highest posterior mean α/(α+β), the
// exploitation view used for reporting.
func (t *Tuner) BestArm(ctx context.Context) (SelectedArm, error) {
	states, err := t.store.ArmStates(ctx, t.project, NumArms)
	if err != nil {
		return SelectedArm{}, err
	}
	best := 0
	bestMean := -1.0
	for k, st := range states {
		mean := st.Alpha / (st.Alpha + st.Beta)
		if mean > bestMean {
			bestMean = mean
			best = k
		}
	}
	return SelectedArm{Index: best, Weights: weightsOf(best)}, nil
}

// UpdateArm records a hit or miss for arm k.
func (t *Tuner) UpdateArm(ctx context.Context, k int, hit bool) error {
	return t.store.UpdateArm(ctx, t.project, k, hit)
}

// ResetArms resets every arm to Beta(1,1).
func (t *Tuner) ResetArms(ctx context.Context) error {
	return t.store.ResetArms(ctx, t.project, NumArms)
}

// Stats returns every arm's name, weights, and current posterior, used
// by GET /tuner/stats.
func (t *Tuner) Stats(ctx context.Context) ([]ArmReport, error) {
	states, err := t.store.ArmStates(ctx, t.project, NumArms)
	if err != nil {
		return nil, err
	}
	out := make([]ArmReport, NumArms)
	for k, st := range states {
		out[k] = ArmReport{Index: k, Arm: arms[k], State: st}
	}
	return out, nil
}

// ArmReport is one row of Stats' output.
type ArmReport struct {
	Index int                   `json:"index"`
	Arm   Arm                   `json:"arm"`
	State rankingstore.ArmState `json:"state"`
}

func weightsOf(k int) rankingstore.Weights {
	a := arms[k]
	return rankingstore.Weights{Recency: a.Recency, Frequency: a.Frequency, Tag: a.Tag, Trans: a.Trans}
}

// sampleBeta draws from Beta(alpha, beta) via two Gamma draws, the
// standard construction: X/(X+Y) ~ Beta(alpha, beta) for independent
// X ~ Gamma(alpha, 1), Y ~ Gamma(beta, 1).
func sampleBeta(rng *rand.Rand, alpha, beta float64) float64 {
	x := sampleGamma(rng, alpha)
	y := sampleGamma(rng, beta)
	if x+y == 0 {
		return 0.5
	}
	return x / (x + y)
}

// sampleGamma implements Marsaglia & Tsang's method for shape >= 1, with
// the standard boost trick (Gamma(a) = Gamma(a+1) * U^(1/a)) for the
// shape < 1 case Beta(1,1) priors start from.
func sampleGamma(rng *rand.Rand, shape float64) float64 {
	if shape < 1 {
		u := rng.Float64()
		return sampleGamma(rng, shape+1) * math.Pow(u, 1/shape)
	}

	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)
	for {
		var x, v float64
		for {
			x = rng.NormFloat64()
			v = 1 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1-0.0331*(x*x)*(x*x) {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}
