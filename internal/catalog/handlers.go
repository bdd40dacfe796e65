package catalog

import (
	"errors"
	"net/http"

	"github.com/martadelgado/pg-product-form/internal/common"
	"github.com/martadelgado/pg-product-form/internal/upstream"
)

// Handler exposes catalog lookup endpoints.
type Handler struct {
	Service *Service
}

// Options serves the dropdown option list. Upstream failure is non-fatal for
// the order form: the client keeps the dropdown disabled and retries.
func (h *Handler) Options(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	options, err := h.Service.Options(r.Context())
	if err != nil {
		if errors.Is(err, upstream.ErrUnavailable) {
			err = common.NewAppError("UPSTREAM_UNAVAILABLE", "catalog lookup unavailable", http.StatusBadGateway, err)
		}
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": options})
}
