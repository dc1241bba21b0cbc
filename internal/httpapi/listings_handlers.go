package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/events"
	"jobscout-engine/internal/store"
)

type ListingsHandler struct {
	Store *store.Store
	Hub   *events.Hub
}

func (h ListingsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := store.ListOpts{
		Source: strings.TrimSpace(q.Get("source")),
		Status: strings.TrimSpace(q.Get("status")),
		Limit:  500,
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			WriteError(w, r, http.StatusBadRequest, "bad_limit", "limit must be a positive integer")
			return
		}
		opts.Limit = n
	}
	if opts.Status != "" {
		if _, err := domain.ParseStatus(opts.Status); err != nil {
			WriteError(w, r, http.StatusBadRequest, "bad_status", err.Error())
			return
		}
	}

	listings, err := h.Store.List(r.Context(), opts)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	writeJSON(w, listings)
}

func (h ListingsHandler) GetByPath(w http.ResponseWriter, r *http.Request) {
	id := listingIDFromPath(r.URL.Path)
	if id == "" {
		WriteError(w, r, http.StatusBadRequest, "bad_id", "missing listing id")
		return
	}

	l, err := h.Store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		WriteError(w, r, http.StatusNotFound, "not_found", "listing not found")
		return
	}
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "get_failed", err.Error())
		return
	}
	writeJSON(w, l)
}

type transitionReq struct {
	Status string `json:"status"`
}

// TransitionByPath handles POST /listings/{id}/status. Illegal moves
// come back as 409 so the UI can surface them without retrying.
func (h ListingsHandler) TransitionByPath(w http.ResponseWriter, r *http.Request) {
	id := listingIDFromPath(r.URL.Path)
	if id == "" {
		WriteError(w, r, http.StatusBadRequest, "bad_id", "missing listing id")
		return
	}

	var req transitionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}
	to, err := domain.ParseStatus(req.Status)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_status", err.Error())
		return
	}

	l, err := h.Store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		WriteError(w, r, http.StatusNotFound, "not_found", "listing not found")
		return
	}
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "get_failed", err.Error())
		return
	}

	from := l.Status
	if err := l.Transition(to, time.Now().UTC()); err != nil {
		if errors.Is(err, domain.ErrIllegalTransition) {
			WriteError(w, r, http.StatusConflict, "illegal_transition", err.Error())
			return
		}
		WriteError(w, r, http.StatusInternalServerError, "transition_failed", err.Error())
		return
	}

	if from != l.Status {
		if err := h.Store.SaveTransition(r.Context(), l); err != nil {
			WriteError(w, r, http.StatusInternalServerError, "save_failed", err.Error())
			return
		}
		reqID := RequestIDFrom(r.Context())
		h.Hub.Publish(events.MakeEvent(reqID, events.TypeListingTransition, 1, map[string]any{
			"id":   l.ID,
			"from": from,
			"to":   l.Status,
		}))
	}
	writeJSON(w, l)
}

// listingIDFromPath extracts {id} from /listings/{id} and
// /listings/{id}/status.
func listingIDFromPath(path string) string {
	rest := strings.TrimPrefix(path, "/listings/")
	rest = strings.TrimSuffix(rest, "/status")
	rest = strings.Trim(rest, "/")
	if strings.Contains(rest, "/") {
		return ""
	}
	return rest
}
