package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"media-deriver/internal/events"
	"media-deriver/internal/logging"
	"media-deriver/internal/mediatypes"
	"media-deriver/internal/metrics"
)

// ErrRemote is returned when a remote worker rejects or fails a request.
var ErrRemote = errors.New("remote worker failed")

// maxErrorExcerpt bounds how much of a failed response body is kept.
const maxErrorExcerpt = 512

// RemotePool sends each asset to a remote worker over HTTP. Slot i is the
// worker at urls[i]; each worker runs one asset at a time.
type RemotePool struct {
	slots
	urls   []string
	client *http.Client
	source string
}

// NewRemotePool creates a pool with one slot per worker URL. A nil client
// uses a client without a timeout; calls are then bounded by ctx.
func NewRemotePool(urls []string, client *http.Client, source string) (*RemotePool, error) {
	var clean []string
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			clean = append(clean, u)
		}
	}
	if len(clean) == 0 {
		return nil, errors.New("remote pool needs at least one worker URL")
	}
	if client == nil {
		client = &http.Client{}
	}
	if source == "" {
		source = "media-deriver/dispatch"
	}
	return &RemotePool{slots: newSlots(len(clean)), urls: clean, client: client, source: source}, nil
}

// Name implements WorkerPool.
func (p *RemotePool) Name() string {
	return "remote"
}

// Invoke posts the asset as a structured CloudEvent. Only 200 is success.
func (p *RemotePool) Invoke(ctx context.Context, slot int, asset mediatypes.Asset, opts mediatypes.ProcessingOptions) (err error) {
	url := p.urls[slot]
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.RemoteInvocationsTotal.WithLabelValues(status).Inc()
		metrics.RemoteInvocationDuration.Observe(time.Since(start).Seconds())
	}()

	env, err := events.NewAssetEnvelope(p.source, asset, opts)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrRemote, err)
	}
	body, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("%w: encode request: %v", ErrRemote, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemote, err)
	}
	req.Header.Set("Content-Type", events.ContentTypeCloudEvents)

	logging.With("asset", asset.Path, "worker", url).Debugw("Invoking remote worker", "event_id", env.ID)

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %s: %w", ErrRemote, url, ctx.Err())
		}
		return fmt.Errorf("%w: %s: %v", ErrRemote, url, err)
	}
	defer resp.Body.Close()

	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorExcerpt))
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %d: %s", ErrRemote, url, resp.StatusCode, strings.TrimSpace(string(excerpt)))
	}
	return nil
}
