package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"media-deriver/internal/dispatch"
	"media-deriver/internal/events"
	"media-deriver/internal/logging"
	"media-deriver/internal/processor"
)

// maxTriggerBody bounds the request body of a trigger.
const maxTriggerBody = 1 << 20

// TriggerResponse is returned for a processed single-asset trigger.
type TriggerResponse struct {
	Status  string `json:"status"`
	Asset   string `json:"asset"`
	EventID string `json:"eventId,omitempty"`
}

// BulkResponse is returned for a bulk trigger.
type BulkResponse struct {
	dispatch.Summary
	Folder    string `json:"folder"`
	Recursive bool   `json:"recursive"`
}

// Trigger handles single-asset and bulk requests. Assets that are skipped
// (derived, unsupported, already processed) are acknowledged with 200.
// Processing failures return 500 with the error text, which remote
// dispatchers record as the failure reason.
func (h *Handlers) Trigger(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxTriggerBody+1))
	if err != nil {
		writeJSONError(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	if len(body) > maxTriggerBody {
		writeJSONError(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	trig, err := events.Decode(body, r.Header)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch trig.Kind {
	case events.KindBulkFolder:
		h.handleBulk(w, r, trig)
	default:
		h.handleSingle(w, r, trig)
	}
}

func (h *Handlers) handleSingle(w http.ResponseWriter, r *http.Request, trig events.Trigger) {
	asset := trig.Single.Asset
	log := logging.With("asset", asset.Path, "event_id", trig.ID)
	log.Infow("Received trigger", "content_type", asset.ContentType)

	outcome, err := h.proc.Process(r.Context(), asset, trig.Single.Options)
	if err != nil {
		writeJSONError(w, fmt.Sprintf("%s: %v", processor.Reason(err), err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, TriggerResponse{Status: string(outcome), Asset: asset.Path, EventID: trig.ID})
}

func (h *Handlers) handleBulk(w http.ResponseWriter, r *http.Request, trig events.Trigger) {
	if h.bulk == nil {
		writeJSONError(w, "bulk processing is not enabled on this instance", http.StatusNotImplemented)
		return
	}

	b := trig.Bulk
	logging.Info("Received bulk processing request for folder %q (recursive=%v)", b.Folder, b.Recursive)

	summary, err := h.bulk(r.Context(), b.Folder, b.Recursive, b.Options)
	resp := BulkResponse{Summary: summary, Folder: b.Folder, Recursive: b.Recursive}
	switch {
	case errors.Is(err, dispatch.ErrInterrupted):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, resp)
		return
	case err != nil:
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	logging.Info("Bulk processing complete: %d successful, %d failed", summary.Succeeded, summary.Failed)
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, resp)
}
