package event

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Merchously/iRun/internal"
	"github.com/Merchously/iRun/internal/transport"
	"github.com/go-chi/chi"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
	}
}

// eventRequest is the admin write body. Distances are decoded one by one so a malformed
// entry is skipped instead of rejecting the request.
type eventRequest struct {
	EventInput
	Distances *[]json.RawMessage `json:"distances"`
}

func (h *Handler) decodeEventRequest(w http.ResponseWriter, r *http.Request) (EventInput, []DistanceInput, error) {
	var req eventRequest
	if err := h.DecodeJSON(w, r, &req); err != nil {
		return EventInput{}, nil, err
	}
	if req.Distances == nil {
		return req.EventInput, nil, nil
	}

	distances := make([]DistanceInput, 0, len(*req.Distances))
	for i, raw := range *req.Distances {
		var d DistanceInput
		if err := json.Unmarshal(raw, &d); err != nil {
			h.Logger.DebugContext(r.Context(), "skipping undecodable distance", "index", i, "error", err)
			continue
		}
		distances = append(distances, d)
	}
	return req.EventInput, distances, nil
}

// ListEvents handles GET /events
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	filters, perr := ParseFilters(r.URL.Query())
	if perr != nil {
		h.WriteAppError(w, r, perr)
		return
	}
	// the public catalog only ever shows published events
	filters.Status = StatusPublished

	page, err := h.Service.GetFilteredEvents(r.Context(), filters)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) FeaturedEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Service.GetFeaturedEvents(r.Context(), transport.QueryInt(r, "limit", defaultShelfLimit))
	h.writeList(w, r, events, err)
}

func (h *Handler) UpcomingEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Service.GetUpcomingEvents(r.Context(), transport.QueryInt(r, "limit", defaultShelfLimit))
	h.writeList(w, r, events, err)
}

func (h *Handler) EventsByTerrain(w http.ResponseWriter, r *http.Request) {
	events, err := h.Service.GetEventsByCategory(r.Context(), chi.URLParam(r, "terrain"), transport.QueryInt(r, "limit", defaultShelfLimit))
	h.writeList(w, r, events, err)
}

func (h *Handler) writeList(w http.ResponseWriter, r *http.Request, events []Event, err error) {
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

// GetEventBySlug handles GET /events/{slug}. Drafts are hidden; a successful read
// counts as a view.
func (h *Handler) GetEventBySlug(w http.ResponseWriter, r *http.Request) {
	e, err := h.Service.GetEventBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	if e.Status == StatusDraft {
		h.WriteAppError(w, r, internal.ErrEventNotFound)
		return
	}

	h.Service.RecordView(r.Context(), e)
	h.WriteJSON(w, http.StatusOK, e)
}

// ToggleRsvp handles POST /events/{id}/rsvp
func (h *Handler) ToggleRsvp(w http.ResponseWriter, r *http.Request) {
	saved, err := h.Service.ToggleRsvp(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]bool{"saved": saved})
}

// ListAllEvents handles GET /admin/events
func (h *Handler) ListAllEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Service.ListAllEvents(r.Context())
	h.writeList(w, r, events, err)
}

// GetEvent handles GET /admin/events/{id}
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	e, err := h.Service.GetEventByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, e)
}

// CreateEvent handles POST /admin/events
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	in, distances, err := h.decodeEventRequest(w, r)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	e, err := h.Service.CreateEvent(r.Context(), internal.UserIDFromContext(r.Context()), in, distances)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, e)
}

// UpdateEvent handles PUT /admin/events/{id}
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	in, distances, err := h.decodeEventRequest(w, r)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	e, err := h.Service.UpdateEvent(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "id"), in, distances)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) PublishEvent(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, h.Service.PublishEvent)
}

func (h *Handler) UnpublishEvent(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, h.Service.UnpublishEvent)
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, h.Service.DeleteEvent)
}

func (h *Handler) command(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actorID, id string) error) {
	if err := fn(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
