package audit

import (
	"context"
	"net/http"

	"github.com/Merchously/iRun/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context, page, limit int) (*ListResult, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// ListEntries handles GET /admin/audit
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	page := transport.QueryInt(r, "page", 1)
	limit := transport.QueryInt(r, "limit", defaultListLimit)

	result, err := h.Service.List(r.Context(), page, limit)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}
