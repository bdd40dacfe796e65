package outlet

import (
	"errors"
	"net/http"

	"github.com/martadelgado/pg-product-form/internal/common"
	"github.com/martadelgado/pg-product-form/internal/upstream"
)

// Handler exposes outlet lookup endpoints.
type Handler struct {
	Service *Service
}

// Options serves the outlet dropdown option list.
func (h *Handler) Options(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "outlet service not configured", nil)
		return
	}
	options, err := h.Service.Options(r.Context())
	if err != nil {
		if errors.Is(err, upstream.ErrUnavailable) {
			err = common.NewAppError("UPSTREAM_UNAVAILABLE", "outlet lookup unavailable", http.StatusBadGateway, err)
		}
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": options})
}
