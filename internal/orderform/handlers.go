package orderform

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/martadelgado/pg-product-form/internal/catalog"
	"github.com/martadelgado/pg-product-form/internal/common"
	"github.com/martadelgado/pg-product-form/internal/outlet"
	"github.com/martadelgado/pg-product-form/internal/pricing"
	"github.com/martadelgado/pg-product-form/internal/upstream"
)

// Handler exposes the draft order endpoints.
type Handler struct {
	Service  *Service
	Validate *validator.Validate
}

// Routes mounts the order form routes on the provided router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/orders", h.Create)
	r.Route("/orders/{orderId}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Post("/lines", h.AddLine)
		r.Patch("/lines/{index}", h.UpdateLine)
		r.Delete("/lines/{index}", h.RemoveLine)
		r.Put("/outlet", h.SelectOutlet)
		r.Post("/submit", h.Submit)
	})
}

type updateLineRequest struct {
	Op    string `json:"op" validate:"required,oneof=select-item set-quantity set-discount"`
	EAN   string `json:"ean" validate:"required_if=Op select-item"`
	Value string `json:"value"`
}

type selectOutletRequest struct {
	ID string `json:"id" validate:"required"`
}

// Create opens a new draft.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order service not configured", nil)
		return
	}
	order := h.Service.Create(r.Context())
	common.JSON(w, http.StatusCreated, map[string]any{"data": order})
}

// Get returns the current draft snapshot.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	order, err := h.Service.Get(id)
	if err != nil {
		h.renderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": order})
}

// AddLine appends an empty line to the draft.
func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	order, err := h.Service.AddLine(r.Context(), id)
	if err != nil {
		h.renderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": order})
}

// RemoveLine deletes a line from the draft.
func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	index, ok := h.lineIndex(w, r)
	if !ok {
		return
	}
	order, err := h.Service.RemoveLine(r.Context(), id, index)
	if err != nil {
		h.renderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": order})
}

// UpdateLine applies one edit to a line: item selection, a quantity entry, or
// a manual discount entry.
func (h *Handler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	index, ok := h.lineIndex(w, r)
	if !ok {
		return
	}
	var req updateLineRequest
	if !h.decode(w, r, &req) {
		return
	}
	var (
		order Order
		err   error
	)
	switch req.Op {
	case "select-item":
		order, err = h.Service.SelectItem(r.Context(), id, index, req.EAN)
	case "set-quantity":
		order, err = h.Service.SetQuantity(r.Context(), id, index, req.Value)
	case "set-discount":
		order, err = h.Service.SetDiscount(r.Context(), id, index, req.Value)
	}
	if err != nil {
		h.renderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": order})
}

// SelectOutlet assigns an outlet to the draft.
func (h *Handler) SelectOutlet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	var req selectOutletRequest
	if !h.decode(w, r, &req) {
		return
	}
	order, err := h.Service.SelectOutlet(r.Context(), id, req.ID)
	if err != nil {
		h.renderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": order})
}

// Submit hands the finished order to the submission collaborator.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	order, err := h.Service.Submit(r.Context(), id)
	if err != nil {
		h.renderError(w, err)
		return
	}
	common.JSON(w, http.StatusAccepted, map[string]any{"data": order})
}

func (h *Handler) orderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return uuid.UUID{}, false
	}
	return id, true
}

func (h *Handler) lineIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid line index", nil)
		return 0, false
	}
	return index, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(dst); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return false
		}
	}
	return true
}

func (h *Handler) renderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrLineNotFound),
		errors.Is(err, catalog.ErrNotFound), errors.Is(err, outlet.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrProtectedLine):
		common.JSONError(w, http.StatusUnprocessableEntity, "PROTECTED_LINE", "the first line cannot be removed", nil)
	case errors.Is(err, pricing.ErrInvalidQuantity), errors.Is(err, pricing.ErrInvalidDiscount):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_INPUT", "edit rejected; previous value retained", nil)
	case errors.Is(err, ErrNotSubmittable):
		common.JSONError(w, http.StatusConflict, "NOT_SUBMITTABLE", err.Error(), nil)
	case errors.Is(err, upstream.ErrUnavailable):
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "lookup unavailable", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
