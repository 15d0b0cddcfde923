// Package reporting forwards per-asset failures to Sentry when a DSN is
// configured. A nil *Reporter is valid and drops everything.
package reporting

import (
	"time"

	"github.com/getsentry/sentry-go"

	"media-deriver/internal/mediatypes"
)

// Config configures Sentry.
type Config struct {
	DSN         string
	Environment string
	Release     string
}

// Reporter captures asset failures on its own Sentry hub.
type Reporter struct {
	hub *sentry.Hub
}

// New returns a Reporter, or nil when no DSN is configured.
func New(cfg Config) (*Reporter, error) {
	if cfg.DSN == "" {
		return nil, nil
	}
	return newWithOptions(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
	})
}

func newWithOptions(opts sentry.ClientOptions) (*Reporter, error) {
	client, err := sentry.NewClient(opts)
	if err != nil {
		return nil, err
	}
	return &Reporter{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// AssetFailure reports err for asset, tagged with the failure reason.
func (r *Reporter) AssetFailure(asset mediatypes.Asset, reason string, err error) {
	if r == nil || err == nil {
		return
	}
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("asset.kind", string(asset.Classification()))
		scope.SetTag("failure.reason", reason)
		scope.SetContext("asset", sentry.Context{
			"path":         asset.Path,
			"content_type": asset.ContentType,
			"size":         asset.Size,
		})
		r.hub.CaptureException(err)
	})
}

// Flush waits up to timeout for buffered events to be sent.
func (r *Reporter) Flush(timeout time.Duration) bool {
	if r == nil {
		return true
	}
	return r.hub.Flush(timeout)
}
