// Package rest exposes the order service over HTTP.
package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	ordererrors "github.com/abgdnv/orders/internal/errors"
	"github.com/abgdnv/orders/internal/service"
	"github.com/abgdnv/orders/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

// Handler handles HTTP requests related to orders.
type Handler struct {
	service  service.OrderService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new instance of Handler with the provided service.
func NewHandler(service service.OrderService, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes sets up the order routes. Every order route requires a
// bearer credential; the health probe does not.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(web.AuthMiddleware)
		r.Route("/api/v1/orders", func(r chi.Router) {
			r.Get("/", h.list)
			r.Post("/", h.create)
			r.Get("/count", h.count)
			r.Get("/client/{clientId}", h.listByClient)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.findByID)
				r.Put("/", h.update)
				r.Delete("/", h.deleteByID)
			})
		})
	})
	r.Get("/healthz", h.health)
}

// list returns one page of orders.
// GET /api/v1/orders?page=1&limit=10
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerWithReqID(r)
	page, ok := web.ParseValidateGte(r, w, logger, "page", 1)
	if !ok {
		return
	}
	limit, ok := web.ParseValidateBetween(r, w, logger, "limit", 1, service.MaxPageSize)
	if !ok {
		return
	}

	orders, err := h.service.List(r.Context(), page, limit)
	if err != nil {
		logger.Error("Failed to list orders", "error", err)
		web.RespondError(w, logger, http.StatusInternalServerError, "Failed to list orders")
		return
	}
	web.RespondJSON(w, logger, http.StatusOK, orders)
}

// create assembles a new order from the request body.
// POST /api/v1/orders
func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerWithReqID(r)
	credential, ok := web.GetCredentialOrAbort(w, r, logger)
	if !ok {
		return
	}

	var dto service.OrderCreateDto
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		logger.Error("Failed to decode request body", "error", err)
		web.RespondError(w, logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.validateStruct(w, logger, &dto) {
		return
	}

	order, stocks, err := h.service.Create(r.Context(), credential, dto)
	if err != nil {
		h.respondServiceError(w, logger, err, "Failed to create order")
		return
	}
	web.RespondJSON(w, logger, http.StatusCreated, map[string]any{
		"order":  order,
		"stocks": stocks,
	})
}

// count returns the total number of orders.
// GET /api/v1/orders/count
func (h *Handler) count(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerWithReqID(r)
	total, err := h.service.Count(r.Context())
	if err != nil {
		logger.Error("Failed to count orders", "error", err)
		web.RespondError(w, logger, http.StatusInternalServerError, "Failed to count orders")
		return
	}
	web.RespondJSON(w, logger, http.StatusOK, map[string]int64{"total_orders": total})
}

// listByClient returns all orders placed by one client.
// GET /api/v1/orders/client/{clientId}
func (h *Handler) listByClient(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerWithReqID(r)
	clientID, ok := web.ParseUUID(w, r, logger, "clientId")
	if !ok {
		return
	}

	orders, err := h.service.FindByClient(r.Context(), clientID)
	if err != nil {
		logger.Error("Failed to list client orders", "clientId", clientID, "error", err)
		web.RespondError(w, logger, http.StatusInternalServerError, "Failed to list client orders")
		return
	}
	web.RespondJSON(w, logger, http.StatusOK, map[string]any{"orders": orders})
}

// findByID returns a single order with its items.
// GET /api/v1/orders/{id}
func (h *Handler) findByID(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerWithReqID(r)
	id, ok := web.ParseUUID(w, r, logger, "id")
	if !ok {
		return
	}

	order, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, logger, err, "Failed to find order")
		return
	}
	web.RespondJSON(w, logger, http.StatusOK, order)
}

// update replaces the order's item list.
// PUT /api/v1/orders/{id}
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerWithReqID(r)
	credential, ok := web.GetCredentialOrAbort(w, r, logger)
	if !ok {
		return
	}
	id, ok := web.ParseUUID(w, r, logger, "id")
	if !ok {
		return
	}

	var dto service.OrderUpdateDto
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		logger.Error("Failed to decode request body", "error", err)
		web.RespondError(w, logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.validateStruct(w, logger, &dto) {
		return
	}

	order, stocks, err := h.service.Update(r.Context(), credential, id, dto)
	if err != nil {
		h.respondServiceError(w, logger, err, "Failed to update order")
		return
	}
	web.RespondJSON(w, logger, http.StatusOK, map[string]any{
		"order":  order,
		"stocks": stocks,
	})
}

// deleteByID removes an order and returns the removed aggregate.
// DELETE /api/v1/orders/{id}
func (h *Handler) deleteByID(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerWithReqID(r)
	id, ok := web.ParseUUID(w, r, logger, "id")
	if !ok {
		return
	}

	order, err := h.service.Delete(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, logger, err, "Failed to delete order")
		return
	}
	web.RespondJSON(w, logger, http.StatusOK, order)
}

// health is the liveness probe.
// GET /healthz
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	web.RespondJSON(w, h.loggerWithReqID(r), http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateStruct(w http.ResponseWriter, logger *slog.Logger, dto any) bool {
	if err := h.validate.Struct(dto); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			details := make(map[string]string, len(validationErrors))
			for _, fieldError := range validationErrors {
				details[fieldError.Field()] = fieldError.Tag()
			}
			logger.Error("Validation failed", "details", details)
			web.RespondJSON(w, logger, http.StatusBadRequest, map[string]any{"validation_errors": details})
			return false
		}
		logger.Error("Validation failed", "error", err)
		web.RespondError(w, logger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// respondServiceError maps domain errors to HTTP status codes. Structural
// request problems map to 400, missing references to 404 and everything
// else, including upstream and reconciliation failures, to 500.
func (h *Handler) respondServiceError(w http.ResponseWriter, logger *slog.Logger, err error, message string) {
	switch {
	case errors.Is(err, ordererrors.ErrOrderNotFound),
		errors.Is(err, ordererrors.ErrProductNotFound),
		errors.Is(err, ordererrors.ErrServiceNotFound),
		errors.Is(err, ordererrors.ErrClientNotFound),
		errors.Is(err, ordererrors.ErrStoreNotFound):
		logger.Error(message, "error", err)
		web.RespondError(w, logger, http.StatusNotFound, err.Error())
	case errors.Is(err, ordererrors.ErrEmptyOrder),
		errors.Is(err, ordererrors.ErrInvalidItemKind),
		errors.Is(err, ordererrors.ErrInvalidQuantity),
		errors.Is(err, ordererrors.ErrInsufficientStock):
		logger.Error(message, "error", err)
		web.RespondError(w, logger, http.StatusBadRequest, err.Error())
	default:
		logger.Error(message, "error", err)
		web.RespondError(w, logger, http.StatusInternalServerError, message)
	}
}

// loggerWithReqID returns a logger with the request ID attached.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	return h.logger.With("request_id", middleware.GetReqID(r.Context()))
}
