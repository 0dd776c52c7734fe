package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"gotour/internal/bookings/events"
	"gotour/internal/bookings/service"
	apperrors "gotour/pkg/errors"
	httputil "gotour/pkg/http"
	"gotour/pkg/locale"
	"gotour/pkg/logger"
	"gotour/pkg/middleware"
	"gotour/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const (
	basePath = "/api/v1/bookings"

	// mine shares the /:kind segment because httprouter cannot register a
	// static child next to a wildcard.
	mine = "me"
)

type BookingHandler struct {
	service       service.BookingService
	log           *logger.Logger
	defaultLocale locale.Locale
}

func NewBookingHandler(service service.BookingService, log *logger.Logger, defaultLocale locale.Locale) *BookingHandler {
	return &BookingHandler{
		service:       service,
		log:           log,
		defaultLocale: defaultLocale,
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST(basePath+"/:kind", h.Create)
	router.GET(basePath+"/:kind", h.List)
	router.GET(basePath+"/:kind/id/:id", h.GetByID)
	router.GET(basePath+"/:kind/id/:id/details", h.GetDetails)
	router.PATCH(basePath+"/:kind/id/:id/status", h.UpdateStatus)
	router.PATCH(basePath+"/:kind/id/:id/payment", h.UpdatePaymentStatus)
	router.POST(basePath+"/:kind/id/:id/cancel", h.Cancel)
	router.DELETE(basePath+"/:kind/id/:id", h.Delete)
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, actor, ok := h.caller(w, r, "Create")
	if !ok {
		return
	}

	var req model.BookingRequest
	if err := decodeBody(r, &req, false); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	booking, err := h.service.Create(ctx, actor, model.BookingKind(ps.ByName("kind")), &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

// List serves both the caller's merged bookings (/me) and the admin listing
// of one kind.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if ps.ByName("kind") == mine {
		h.ListMine(w, r, ps)
		return
	}
	h.ListAll(w, r, ps)
}

func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, actor, ok := h.caller(w, r, "ListMine")
	if !ok {
		return
	}

	query := model.MyBookingsQuery{
		Type:   r.URL.Query().Get("type"),
		Status: r.URL.Query().Get("status"),
	}
	paginated := httputil.HasPagination(r)
	if paginated {
		limit, offset, err := httputil.ExtractLimitOffset(r)
		if err != nil {
			h.writeError(w, "ListMine", err)
			return
		}
		query.Limit, query.Offset = limit, offset
	}

	loc := h.localeOf(r)
	views, total, err := h.service.ListMine(ctx, actor, query, loc)
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	w.Header().Set("Content-Language", string(loc))
	if paginated {
		if err := httputil.WritePaginated(w, views, int64(total), query.Limit, query.Offset); err != nil {
			h.log.Error("failed to write paginated response", "handler", "ListMine", "operation", "WritePaginated", "error", err)
		}
		return
	}
	if err := httputil.WriteList(w, views, len(views)); err != nil {
		h.log.Error("failed to write list response", "handler", "ListMine", "operation", "WriteList", "error", err)
	}
}

func (h *BookingHandler) ListAll(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, actor, ok := h.caller(w, r, "ListAll")
	if !ok {
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListAll", err)
		return
	}

	from, to, err := httputil.ExtractDateRange(r)
	if err != nil {
		h.writeError(w, "ListAll", err)
		return
	}

	query := r.URL.Query()
	filter := model.BookingFilter{
		Status:        query.Get("status"),
		PaymentStatus: query.Get("payment_status"),
		UserID:        query.Get("user_id"),
		From:          from,
		To:            to,
	}

	kind := model.BookingKind(ps.ByName("kind"))
	bookings, total, err := h.service.ListAll(ctx, actor, kind, filter, limit, offset)
	if err != nil {
		h.writeError(w, "ListAll", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, actor, ok := h.caller(w, r, "GetByID")
	if !ok {
		return
	}

	booking, err := h.service.GetByID(ctx, actor, model.BookingKind(ps.ByName("kind")), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) GetDetails(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, actor, ok := h.caller(w, r, "GetDetails")
	if !ok {
		return
	}

	booking, err := h.service.GetDetails(ctx, actor, model.BookingKind(ps.ByName("kind")), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetDetails", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetDetails", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, actor, ok := h.caller(w, r, "UpdateStatus")
	if !ok {
		return
	}

	var body model.StatusUpdate
	if err := decodeBody(r, &body, false); err != nil {
		h.writeError(w, "UpdateStatus", err)
		return
	}

	booking, err := h.service.UpdateStatus(ctx, actor, model.BookingKind(ps.ByName("kind")), ps.ByName("id"), body.Status)
	if err != nil {
		h.writeError(w, "UpdateStatus", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "UpdateStatus", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, actor, ok := h.caller(w, r, "UpdatePaymentStatus")
	if !ok {
		return
	}

	var body model.PaymentUpdate
	if err := decodeBody(r, &body, false); err != nil {
		h.writeError(w, "UpdatePaymentStatus", err)
		return
	}

	booking, err := h.service.UpdatePaymentStatus(ctx, actor, model.BookingKind(ps.ByName("kind")), ps.ByName("id"), body.PaymentStatus)
	if err != nil {
		h.writeError(w, "UpdatePaymentStatus", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "UpdatePaymentStatus", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, actor, ok := h.caller(w, r, "Cancel")
	if !ok {
		return
	}

	var body model.CancelRequest
	if err := decodeBody(r, &body, true); err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	booking, err := h.service.Cancel(ctx, actor, model.BookingKind(ps.ByName("kind")), ps.ByName("id"), body.Reason)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, actor, ok := h.caller(w, r, "Delete")
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, actor, model.BookingKind(ps.ByName("kind")), ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

// caller resolves the gateway actor and carries the request id into the
// context used for event correlation.
func (h *BookingHandler) caller(w http.ResponseWriter, r *http.Request, name string) (context.Context, model.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok || actor.UserID == "" {
		h.writeError(w, name, apperrors.Unauthorized("Authentication required"))
		return nil, model.Actor{}, false
	}
	ctx := events.WithRequestID(r.Context(), middleware.RequestIDFromContext(r.Context()))
	return ctx, actor, true
}

func (h *BookingHandler) localeOf(r *http.Request) locale.Locale {
	if l, ok := locale.Parse(r.URL.Query().Get("lang")); ok {
		return l
	}
	return locale.FromAcceptLanguage(r.Header.Get("Accept-Language"), h.defaultLocale)
}

func (h *BookingHandler) writeError(w http.ResponseWriter, name string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", name, "operation", "WriteError", "error", writeErr)
	}
}

// decodeBody decodes a JSON body into dst. allowEmpty accepts a missing body.
func decodeBody(r *http.Request, dst any, allowEmpty bool) error {
	if r.Body == nil {
		if allowEmpty {
			return nil
		}
		return apperrors.InvalidInput("Request body is required")
	}

	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		if allowEmpty {
			return nil
		}
		return apperrors.InvalidInput("Request body is required")
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return apperrors.New(apperrors.CodeBadRequest, "Request body too large", http.StatusRequestEntityTooLarge)
	}
	return apperrors.InvalidInput("Invalid request body")
}
