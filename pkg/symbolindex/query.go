// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package symbolindex

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/nextread/nextread/pkg/tokenize"
)

// ErrBadQuery is returned for malformed queries: an invalid regex, or a
// multi-AND query with no tokens.
var ErrBadQuery = errors.New("symbolindex: bad query")

// nameBoostAlpha is chosen so an exact filename-stem match always
// outranks a non-filename match of equal density: the maximum possible
// density is 1.0 (every query token fully concentrated in one path), so
// any alpha > 1.0 keeps name_boost=3 above density=1 + name_boost=0.
const nameBoostAlpha = 2.0

// Result is one ranked match from Symbol or MultiAND.
type Result struct {
	Path  string  `json:"path"`
	Line  int     `json:"line"`
	Score float64 `json:"score"`
}

// Match is one match from Regex.
type Match struct {
	Path  string `json:"path"`
	Line  int    `json:"line"`
	Match string `json:"match"`
}

// Symbol answers a single/multi-token OR query: any path containing at
// least one of the query's tokens is a candidate, ranked by the
// density+name-boost formula in 
func (idx *Index) Symbol(query string, limit int) (results []Result, truncated bool, err error) {
	terms := tokenize.Text(query)
	if len(terms) == 0 {
		return nil, false, nil
	}
	return idx.rank(terms, limit, false)
}

// MultiAND answers a query requiring every given token to be present in
// the path, ranked by summed density and filename boost. An empty token
// set is a BadQuery.
func (idx *Index) MultiAND(tokens []string, limit int) (results []Result, truncated bool, err error) {
	if len(tokens) == 0 {
		return nil, false, ErrBadQuery
	}
	return idx.rank(tokens, limit, true)
}

// rank implements the shared scoring path for Symbol (and=false) and
// MultiAND (and=true).
func (idx *Index) rank(terms []string, limit int, and bool) ([]Result, bool, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	totalCount := make(map[string]int, len(terms))
	for _, t := range terms {
		sum := 0
		for _, p := range idx.postings[t] {
			sum += p.count
		}
		totalCount[t] = sum
		if and && sum == 0 {
			// Unknown token: AND query with any unknown token is empty.
			return nil, false, nil
		}
	}

	candidates := make(map[string]struct{})
	if and {
		first := true
		for _, t := range terms {
			next := make(map[string]struct{})
			for p := range idx.postings[t] {
				next[p] = struct{}{}
			}
			if first {
				candidates = next
				first = false
				continue
			}
			for p := range candidates {
				if _, ok := next[p]; !ok {
					delete(candidates, p)
				}
			}
		}
	} else {
		for _, t := range terms {
			for p := range idx.postings[t] {
				candidates[p] = struct{}{}
			}
		}
	}

	results := make([]Result, 0, len(candidates))
	for p := range candidates {
		results = append(results, Result{
			Path:  p,
			Line:  idx.firstLine(p, terms),
			Score: idx.score(p, terms, totalCount),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if len(results[i].Path) != len(results[j].Path) {
			return len(results[i].Path) < len(results[j].Path)
		}
		return results[i].Path < results[j].Path
	})

	truncated := false
	if limit > 0 && len(results) > limit {
		results = results[:limit]
		truncated = true
	}
	return results, truncated, nil
}

// firstLine returns the earliest line at which any of terms occurs in p,
// used only to give the caller a useful jump target.
func (idx *Index) firstLine(p string, terms []string) int {
	best := 0
	for _, t := range terms {
		post, ok := idx.postings[t][p]
		if !ok {
			continue
		}
		for _, l := range post.lines {
			if best == 0 || l < best {
				best = l
			}
		}
	}
	return best
}

// score computes density(p,Q) + alpha*name_boost(p,Q)
func (idx *Index) score(p string, terms []string, totalCount map[string]int) float64 {
	var density float64
	totalOfTerms := 0
	matched := 0
	for _, t := range terms {
		totalOfTerms += totalCount[t]
		if post, ok := idx.postings[t][p]; ok {
			matched += post.count
		}
	}
	if totalOfTerms > 0 {
		density = float64(matched) / float64(totalOfTerms)
	}
	return density + nameBoostAlpha*float64(idx.nameBoost(p, terms))
}

// nameBoost scores: 3 for an exact filename-stem match,
// 2 for a stem prefix match, 1 for a stem substring match, 0 otherwise.
func (idx *Index) nameBoost(p string, terms []string) int {
	base := filepath.Base(p)
	ext := filepath.Ext(base)
	stem := strings.ToLower(strings.TrimSuffix(base, ext))

	best := 0
	for _, t := range terms {
		lt := strings.ToLower(t)
		switch {
		case lt == stem:
			return 3
		case strings.HasPrefix(stem, lt):
			if best < 2 {
				best = 2
			}
		case strings.Contains(stem, lt):
			if best < 1 {
				best = 1
			}
		}
	}
	return best
}

// Regex scans the bounded working set for pattern. It has no recency
// filter; callers that need one pre-filter the working set themselves
// via the Ranking Store and pass it through RegexIn instead.
func (idx *Index) Regex(ctx context.Context, pattern string, limit int) ([]Match, bool, error) {
	return idx.RegexIn(ctx, pattern, idx.WorkingSet(), limit)
}

// RegexIn scans exactly the given paths (already bounded by the caller)
// for pattern, honoring ctx cancellation between files.
func (idx *Index) RegexIn(ctx context.Context, pattern string, paths []string, limit int) ([]Match, bool, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, false, ErrBadQuery
	}
	if len(paths) > maxWorkingSet {
		paths = paths[:maxWorkingSet]
	}

	var matches []Match
	truncated := false
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return matches, true, nil
		default:
		}

		content, err := os.ReadFile(filepath.Join(idx.root, p))
		if err != nil {
			continue // unreadable file: skipped without logging; the caller is not told
		}
		for i, line := range strings.Split(string(content), "\n") {
			if loc := re.FindStringIndex(line); loc != nil {
				matches = append(matches, Match{Path: p, Line: i + 1, Match: line[loc[0]:loc[1]]})
				if limit > 0 && len(matches) >= limit {
					truncated = len(matches) < len(paths)
					return matches, truncated, nil
				}
			}
		}
	}
	return matches, false, nil
}

// deadline returns a context derived from context.Background that is
// canceled after d.
func deadline(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}

// Snippet reads the first n lines of path for a prediction response.
// A read failure is reported to the caller, which must omit the
// snippet but still return the path — it must not fail the whole prediction.
func (idx *Index) Snippet(path string, n int) (string, error) {
	content, err := os.ReadFile(filepath.Join(idx.root, path))
	if err != nil {
		return "", err
	}
	lines := strings.Split(string(content), "\n")
	if n > 0 && n < len(lines) {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n"), nil
}
