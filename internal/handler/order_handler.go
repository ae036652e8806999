package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"orderdesk/internal/model"
	"orderdesk/internal/service"

	"github.com/rs/zerolog"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r, h.logger)
	if !ok {
		return
	}

	var req model.OrderRequest
	if !h.decode(w, r, &req) {
		return
	}

	order, err := h.service.CreateOrder(r.Context(), caller, &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// List handles GET /api/orders requests.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r, h.logger)
	if !ok {
		return
	}

	q := r.URL.Query()
	params := service.ListParams{}

	var err error
	if params.Page, err = intParam(q.Get("page")); err != nil {
		h.badParam(w, r, "page", "must be a positive integer")
		return
	}
	if params.Limit, err = intParam(q.Get("limit")); err != nil {
		h.badParam(w, r, "limit", "must be a positive integer")
		return
	}
	if s := q.Get("status"); s != "" {
		status := model.OrderStatus(s)
		params.Status = &status
	}
	if params.StartDate, params.EndDate, ok = h.dateRange(w, r); !ok {
		return
	}

	resp, err := h.service.ListOrders(r.Context(), caller, params)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/orders/{id} requests.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r, h.logger)
	if !ok {
		return
	}

	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), caller, orderID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// UpdateStatus handles PUT /api/orders/{id}/status requests.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r, h.logger)
	if !ok {
		return
	}

	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}

	var req model.StatusUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Status == "" {
		writeServiceError(w, r, model.NewMissingFieldError("status"), h.logger)
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), caller, orderID, &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Stats handles GET /api/orders/stats requests.
func (h *OrderHandler) Stats(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r, h.logger)
	if !ok {
		return
	}

	start, end, ok := h.dateRange(w, r)
	if !ok {
		return
	}

	stats, err := h.service.Stats(r.Context(), caller, start, end)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *OrderHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst); err != nil {
		message := "invalid request body"
		if errors.Is(err, io.EOF) {
			message = "request body is empty"
		}
		writeError(w, r, http.StatusBadRequest, model.ErrorResponse{
			Error:   model.ErrCodeInvalidJSON,
			Message: message,
		}, h.logger)
		return false
	}
	return true
}

func (h *OrderHandler) orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.badParam(w, r, "id", "must be a positive order id")
		return 0, false
	}
	return id, true
}

func (h *OrderHandler) dateRange(w http.ResponseWriter, r *http.Request) (start, end *time.Time, ok bool) {
	q := r.URL.Query()

	start, err := parseDate(q.Get("startDate"), false)
	if err != nil {
		h.badParam(w, r, "startDate", "must be RFC3339 or YYYY-MM-DD")
		return nil, nil, false
	}
	end, err = parseDate(q.Get("endDate"), true)
	if err != nil {
		h.badParam(w, r, "endDate", "must be RFC3339 or YYYY-MM-DD")
		return nil, nil, false
	}
	if start != nil && end != nil && !end.After(*start) {
		h.badParam(w, r, "endDate", "must be after startDate")
		return nil, nil, false
	}
	return start, end, true
}

func (h *OrderHandler) badParam(w http.ResponseWriter, r *http.Request, field, message string) {
	writeServiceError(w, r, &model.ValidationError{Field: field, Message: message}, h.logger)
}

// intParam parses an optional positive integer; empty means zero.
func intParam(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, errors.New("not positive")
	}
	return n, nil
}

// parseDate accepts RFC3339 or a bare YYYY-MM-DD date in UTC. A bare end
// date is moved to the start of the next day so the whole day is included.
func parseDate(value string, end bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, err
	}
	if end {
		t = t.AddDate(0, 0, 1)
	}
	return &t, nil
}
