package endpoint

import (
	"context"
	"sync"
	"time"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/common/errs"
	"github.com/gaze-network/inscription-indexer/pkg/logger"
	"github.com/gaze-network/inscription-indexer/pkg/logger/slogx"
)

const (
	DefaultProbeTimeout     = 3 * time.Second
	DefaultFailureThreshold = 3
)

type Config struct {
	// ProbeTimeout bounds a single probe of a candidate.
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`

	// FailureThreshold is the number of consecutive failures of the cached endpoint
	// after which the other candidates are re-probed.
	FailureThreshold int `mapstructure:"failure_threshold"`
}

// ChangeFunc is called after the cached endpoint of a kind changes.
type ChangeFunc func(kind Kind, from, to Candidate)

type Option func(*Resolver)

// WithChangeFunc registers fn to be called on every endpoint change.
func WithChangeFunc(fn ChangeFunc) Option {
	return func(r *Resolver) {
		r.onChange = append(r.onChange, fn)
	}
}

// Resolver resolves a base URL per service kind. Safe for concurrent use.
type Resolver struct {
	config   Config
	prober   Prober
	services map[Kind]*service
	onChange []ChangeFunc
}

type service struct {
	mu         sync.RWMutex
	kind       Kind
	candidates []Candidate
	current    int // index into candidates, -1 until resolved
	failures   int
}

// New creates a resolver over the candidate lists of each kind.
func New(config Config, prober Prober, candidates map[Kind][]Candidate, opts ...Option) (*Resolver, error) {
	if prober == nil {
		return nil, errors.Wrap(errs.InvalidArgument, "prober is required")
	}
	r := &Resolver{
		config: Config{
			ProbeTimeout:     utils.Default(config.ProbeTimeout, DefaultProbeTimeout),
			FailureThreshold: utils.Default(config.FailureThreshold, DefaultFailureThreshold),
		},
		prober:   prober,
		services: make(map[Kind]*service, len(candidates)),
	}
	for kind, list := range candidates {
		if len(list) == 0 {
			return nil, errors.Wrapf(errs.InvalidArgument, "no candidates for %q service", kind)
		}
		r.services[kind] = &service{
			kind:       kind,
			candidates: append([]Candidate(nil), list...),
			current:    -1,
		}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Resolver) service(kind Kind) (*service, error) {
	s, ok := r.services[kind]
	if !ok {
		return nil, errors.Wrapf(errs.Unsupported, "unknown service kind %q", kind)
	}
	return s, nil
}

// Resolve returns the base URL of kind. On first use candidates are probed in order and the
// first reachable one is cached. If none answers, the public fallback is returned.
func (r *Resolver) Resolve(ctx context.Context, kind Kind) (string, error) {
	s, err := r.service(kind)
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	if s.current >= 0 {
		url := s.candidates[s.current].URL
		s.mu.RUnlock()
		return url, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current >= 0 {
		return s.candidates[s.current].URL, nil
	}

	ctx = logger.WithContext(ctx, slogx.String("package", "endpoint"), slogx.Stringer("service", kind))
	idx := r.probeInOrder(ctx, s, -1)
	if err := ctx.Err(); err != nil {
		return "", errors.WithStack(err)
	}
	if idx < 0 {
		idx = s.fallbackIndex()
		logger.WarnContext(ctx, "No endpoint candidate is reachable, using public fallback",
			slogx.String("event", "endpoint_fallback"),
			slogx.String("url", s.candidates[idx].URL),
		)
	}
	r.switchTo(ctx, s, idx)
	return s.candidates[idx].URL, nil
}

// ReportSuccess resets the consecutive failure count of url.
func (r *Resolver) ReportSuccess(kind Kind, url string) {
	s, err := r.service(kind)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current >= 0 && s.candidates[s.current].URL == url {
		s.failures = 0
		s.candidates[s.current].Reachability = Reachable
	}
}

// ReportFailure records a failed call to url. Reports for a URL that is no longer cached are ignored.
// Once the failure threshold is reached the other candidates are re-probed and the first reachable
// one replaces the cached endpoint, falling back to the public candidate when none answers.
func (r *Resolver) ReportFailure(ctx context.Context, kind Kind, url string) {
	s, err := r.service(kind)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current < 0 || s.candidates[s.current].URL != url {
		return
	}
	s.failures++
	if s.failures < r.config.FailureThreshold {
		return
	}

	ctx = logger.WithContext(ctx, slogx.String("package", "endpoint"), slogx.Stringer("service", kind))
	failed := s.current
	s.candidates[failed].Reachability = Unreachable
	logger.WarnContext(ctx, "Endpoint failed repeatedly, re-probing other candidates",
		slogx.String("event", "endpoint_reprobe"),
		slogx.String("url", url),
		slogx.Int("failures", s.failures),
	)

	idx := r.probeInOrder(ctx, s, failed)
	if ctx.Err() != nil {
		return
	}
	if idx < 0 {
		idx = s.fallbackIndex()
	}
	s.failures = 0
	r.switchTo(ctx, s, idx)
}

// Candidates returns a snapshot of the candidate list of kind.
func (r *Resolver) Candidates(kind Kind) []Candidate {
	s, err := r.service(kind)
	if err != nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Candidate(nil), s.candidates...)
}

// probeInOrder returns the index of the first reachable candidate other than skip, or -1.
// Caller must hold s.mu.
func (r *Resolver) probeInOrder(ctx context.Context, s *service, skip int) int {
	for i := range s.candidates {
		if i == skip {
			continue
		}
		if ctx.Err() != nil {
			return -1
		}
		c := &s.candidates[i]
		probeCtx, cancel := context.WithTimeout(ctx, r.config.ProbeTimeout)
		err := r.prober.Probe(probeCtx, s.kind, c.URL)
		cancel()
		if err != nil {
			c.Reachability = Unreachable
			logger.DebugContext(ctx, "Endpoint candidate is unreachable",
				slogx.String("url", c.URL),
				slogx.String("source", string(c.Source)),
				slogx.Error(err),
			)
			continue
		}
		c.Reachability = Reachable
		return i
	}
	return -1
}

// switchTo caches idx as the endpoint of s and logs when it differs from the previous one.
// Caller must hold s.mu.
func (r *Resolver) switchTo(ctx context.Context, s *service, idx int) {
	if s.current == idx {
		return
	}
	var from Candidate
	if s.current >= 0 {
		from = s.candidates[s.current]
	}
	s.current = idx
	to := s.candidates[idx]
	logger.InfoContext(ctx, "Endpoint selected",
		slogx.String("event", "endpoint_changed"),
		slogx.String("from", from.URL),
		slogx.String("url", to.URL),
		slogx.String("source", string(to.Source)),
		slogx.Stringer("reachability", to.Reachability),
	)
	for _, fn := range r.onChange {
		fn(s.kind, from, to)
	}
}

// fallbackIndex returns the last public candidate, or the last candidate when none is public.
func (s *service) fallbackIndex() int {
	for i := len(s.candidates) - 1; i >= 0; i-- {
		if s.candidates[i].Source == SourcePublic {
			return i
		}
	}
	return len(s.candidates) - 1
}
