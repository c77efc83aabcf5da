package httpclient

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/pkg/logger"
	"github.com/valyala/fasthttp"
)

// DefaultTimeout bounds a single request when [Config.Timeout] is zero.
const DefaultTimeout = 30 * time.Second

type Config struct {
	// Enable debug mode
	Debug bool

	// Timeout of a single request, including connect and read.
	Timeout time.Duration

	// Default headers
	Headers map[string]string
}

type Client struct {
	baseURL *url.URL
	Config
}

func New(baseURL string, config ...Config) (*Client, error) {
	parsedBaseURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "can't parse base url")
	}
	if parsedBaseURL.Scheme == "" || parsedBaseURL.Host == "" {
		return nil, errors.Errorf("base url %q must be absolute", baseURL)
	}
	var cf Config
	if len(config) > 0 {
		cf = config[0]
	}
	if len(cf.Headers) == 0 {
		cf.Headers = make(map[string]string)
	}
	if cf.Timeout <= 0 {
		cf.Timeout = DefaultTimeout
	}
	return &Client{
		baseURL: parsedBaseURL,
		Config:  cf,
	}, nil
}

type RequestOptions struct {
	path   string
	method string
	Body   []byte
	Query  url.Values
	Header map[string]string

	// Timeout overrides [Config.Timeout] for this request.
	Timeout time.Duration
}

type HttpResponse struct {
	URL string
	fasthttp.Response
}

// ContentType returns the media type of the response without parameters, lower-cased.
func (r *HttpResponse) ContentType() string {
	ct := strings.ToLower(string(r.Header.ContentType()))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}

func (r *HttpResponse) UnmarshalBody(out any) error {
	body, err := r.BodyUncompressed()
	if err != nil {
		return errors.Wrapf(err, "can't uncompress body from %v", r.URL)
	}
	switch r.ContentType() {
	case "application/json":
		if err := json.Unmarshal(body, out); err != nil {
			return errors.Wrapf(err, "can't unmarshal json body from %s, %q", r.URL, string(body))
		}
		return nil
	case "text/plain":
		return errors.Errorf("can't unmarshal plain text %q", string(body))
	default:
		return errors.Errorf("unsupported content type: %s, contents: %v", r.Header.ContentType(), string(body))
	}
}

func (h *Client) request(ctx context.Context, reqOptions RequestOptions) (*HttpResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	start := time.Now()
	req := fasthttp.AcquireRequest()
	req.Header.SetMethod(reqOptions.method)
	for k, v := range h.Headers {
		req.Header.Set(k, v)
	}
	for k, v := range reqOptions.Header {
		req.Header.Set(k, v)
	}

	parsedUrl := h.BaseURL()
	parsedUrl.Path = path.Join(parsedUrl.Path, reqOptions.path)
	if len(reqOptions.Query) > 0 {
		parsedUrl.RawQuery = reqOptions.Query.Encode()
	}
	url := parsedUrl.String()
	req.SetRequestURI(url)
	if reqOptions.Body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(reqOptions.Body)
	}

	timeout := h.Timeout
	if reqOptions.Timeout > 0 {
		timeout = reqOptions.Timeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	resp := fasthttp.AcquireResponse()
	defer func() {
		if h.Debug {
			logger.DebugContext(ctx, "Finished make request",
				slog.String("package", "httpclient"),
				slog.String("method", reqOptions.method),
				slog.String("url", url),
				slog.Int("status_code", resp.StatusCode()),
				slog.Duration("duration", time.Since(start)),
				slog.Int("resp_content_length", len(resp.Body())),
			)
		}
		fasthttp.ReleaseResponse(resp)
		fasthttp.ReleaseRequest(req)
	}()

	if err := fasthttp.DoTimeout(req, resp, timeout); err != nil {
		return nil, errors.Wrapf(err, "url: %s", url)
	}

	httpResponse := HttpResponse{
		URL: url,
	}
	resp.CopyTo(&httpResponse.Response)

	return &httpResponse, nil
}

// BaseURL returns the cloned base URL of the client.
func (h *Client) BaseURL() *url.URL {
	u := *h.baseURL
	return &u
}

func (h *Client) Do(ctx context.Context, method, path string, reqOptions RequestOptions) (*HttpResponse, error) {
	reqOptions.path = path
	reqOptions.method = method
	return h.request(ctx, reqOptions)
}

func (h *Client) Get(ctx context.Context, path string, reqOptions RequestOptions) (*HttpResponse, error) {
	reqOptions.path = path
	reqOptions.method = fasthttp.MethodGet
	return h.request(ctx, reqOptions)
}
