package endpoint

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/common/errs"
	"github.com/gaze-network/inscription-indexer/pkg/httpclient"
)

// HealthPaths are the paths requested by [HTTPProber] per kind.
var HealthPaths = map[Kind]string{
	KindInscription: "/blockheight",
	KindTransaction: "/blocks/tip/height",
}

// HTTPProber probes a candidate with a GET on the health path of its kind.
// Any 2xx answer counts as reachable.
type HTTPProber struct{}

var _ Prober = HTTPProber{}

func (HTTPProber) Probe(ctx context.Context, kind Kind, url string) error {
	healthPath, ok := HealthPaths[kind]
	if !ok {
		return errors.Wrapf(errs.Unsupported, "no health path for %q service", kind)
	}
	client, err := httpclient.New(url)
	if err != nil {
		return errors.WithStack(err)
	}
	resp, err := client.Get(ctx, healthPath, httpclient.RequestOptions{})
	if err != nil {
		return errors.Wrap(errs.TransientService, err.Error())
	}
	if code := resp.StatusCode(); code < http.StatusOK || code >= http.StatusMultipleChoices {
		return errors.Wrapf(errs.TransientService, "unexpected status code %d from %s", code, resp.URL)
	}
	return nil
}
