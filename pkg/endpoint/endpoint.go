// Package endpoint discovers and caches a reachable base URL for each external service
// the indexer depends on.
package endpoint

import (
	"context"
	"strings"
)

// Kind identifies an external service.
type Kind string

const (
	KindInscription Kind = "inscription"
	KindTransaction Kind = "transaction"
)

func (k Kind) String() string {
	return string(k)
}

// Source describes where a candidate address comes from. Candidates are tried in
// the order override, colocated, local, public.
type Source string

const (
	SourceOverride  Source = "override"
	SourceColocated Source = "colocated"
	SourceLocal     Source = "local"
	SourcePublic    Source = "public"
)

// Reachability is the last known probe result of a candidate.
type Reachability int8

const (
	Untested Reachability = iota
	Reachable
	Unreachable
)

func (r Reachability) String() string {
	switch r {
	case Reachable:
		return "reachable"
	case Unreachable:
		return "unreachable"
	default:
		return "untested"
	}
}

// Candidate is one possible address of a service.
type Candidate struct {
	URL          string
	Source       Source
	Reachability Reachability
}

// Prober checks whether a service answers at url.
type Prober interface {
	Probe(ctx context.Context, kind Kind, url string) error
}

var (
	colocatedURLs = map[Kind][]string{
		KindInscription: {"http://ord:80", "http://ord-server:8080"},
		KindTransaction: {"http://mempool-api:8999/api", "http://mempool:8999/api"},
	}
	localURLs = map[Kind][]string{
		KindInscription: {"http://127.0.0.1:80", "http://localhost:8080"},
		KindTransaction: {"http://127.0.0.1:3006/api"},
	}
	publicURLs = map[Kind]string{
		KindInscription: "https://ordinals.com",
		KindTransaction: "https://mempool.space/api",
	}
)

// DefaultCandidates returns the ordered candidate list of kind. A non-empty override is placed first.
func DefaultCandidates(kind Kind, override string) []Candidate {
	candidates := make([]Candidate, 0, 5)
	if override = strings.TrimSpace(override); override != "" {
		candidates = append(candidates, Candidate{URL: strings.TrimSuffix(override, "/"), Source: SourceOverride})
	}
	for _, url := range colocatedURLs[kind] {
		candidates = append(candidates, Candidate{URL: url, Source: SourceColocated})
	}
	for _, url := range localURLs[kind] {
		candidates = append(candidates, Candidate{URL: url, Source: SourceLocal})
	}
	if url, ok := publicURLs[kind]; ok {
		candidates = append(candidates, Candidate{URL: url, Source: SourcePublic})
	}
	return dedupe(candidates)
}

func dedupe(candidates []Candidate) []Candidate {
	seen := make(map[string]struct{}, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		if _, ok := seen[c.URL]; ok {
			continue
		}
		seen[c.URL] = struct{}{}
		out = append(out, c)
	}
	return out
}
