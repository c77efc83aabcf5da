package datasources

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/common/errs"
	"github.com/gaze-network/inscription-indexer/pkg/endpoint"
	"github.com/gaze-network/inscription-indexer/pkg/httpclient"
)

// DefaultRequestTimeout bounds a single request to an external service.
const DefaultRequestTimeout = 20 * time.Second

// serviceClient issues requests against the resolved endpoint of kind and reports
// every outcome back to the resolver.
type serviceClient struct {
	kind     endpoint.Kind
	resolver EndpointResolver
	timeout  time.Duration
	debug    bool

	mu      sync.Mutex
	clients map[string]*httpclient.Client
}

func newServiceClient(kind endpoint.Kind, resolver EndpointResolver, timeout time.Duration, debug bool) *serviceClient {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &serviceClient{
		kind:     kind,
		resolver: resolver,
		timeout:  timeout,
		debug:    debug,
		clients:  make(map[string]*httpclient.Client),
	}
}

func (s *serviceClient) client(baseURL string) (*httpclient.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clients[baseURL]; ok {
		return c, nil
	}
	c, err := httpclient.New(baseURL, httpclient.Config{
		Debug:   s.debug,
		Timeout: s.timeout,
		Headers: map[string]string{"Accept": "application/json"},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "invalid %s endpoint", s.kind)
	}
	s.clients[baseURL] = c
	return c, nil
}

// get requests path on the current endpoint. Connection errors, 5xx and 429 answers are
// reported as failures and returned as [errs.TransientService]; 404 is returned as [errs.NotFound].
func (s *serviceClient) get(ctx context.Context, path string, query url.Values) (*httpclient.HttpResponse, error) {
	baseURL, err := s.resolver.Resolve(ctx, s.kind)
	if err != nil {
		return nil, errors.Wrapf(errs.TransientService, "can't resolve %s endpoint: %v", s.kind, err)
	}
	c, err := s.client(baseURL)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	resp, err := c.Get(ctx, path, httpclient.RequestOptions{Query: query})
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.WithStack(ctx.Err())
		}
		s.resolver.ReportFailure(ctx, s.kind, baseURL)
		return nil, errors.Wrapf(errs.TransientService, "%s service request failed: %v", s.kind, err)
	}

	switch code := resp.StatusCode(); {
	case code >= http.StatusOK && code < http.StatusMultipleChoices:
		s.resolver.ReportSuccess(s.kind, baseURL)
		return resp, nil
	case code == http.StatusNotFound:
		s.resolver.ReportSuccess(s.kind, baseURL)
		return nil, errors.Wrapf(errs.NotFound, "%s not found on %s service", path, s.kind)
	case code == http.StatusTooManyRequests || code >= http.StatusInternalServerError:
		s.resolver.ReportFailure(ctx, s.kind, baseURL)
		return nil, errors.Wrapf(errs.TransientService, "%s service answered %d for %s", s.kind, code, resp.URL)
	default:
		s.resolver.ReportSuccess(s.kind, baseURL)
		return nil, errors.Wrapf(errs.InternalError, "%s service answered %d for %s: %s", s.kind, code, resp.URL, resp.Body())
	}
}
