package handler

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/backoffice/internal/model"
)

// Notifier is satisfied by *notify.Dispatcher.
type Notifier interface {
	NotifyNewJobApplication(ctx context.Context, a model.JobApplication)
	NotifyNewLead(ctx context.Context, l model.Lead)
	NotifyNewReview(ctx context.Context, r model.Review)
	NotifySystemAlert(ctx context.Context, a model.SystemAlert)
}

// EventHandler accepts business events over HTTP. Notification runs before
// the response is written, and its failures never change the status code.
type EventHandler struct {
	BaseHandler
	notifier Notifier
}

func NewEventHandler(n Notifier, log *zap.SugaredLogger) *EventHandler {
	return &EventHandler{BaseHandler: NewBaseHandler(log), notifier: n}
}

// decodeEvent reads and validates a payload, writing the error response
// itself when it returns false.
func decodeEvent[T any](h *EventHandler, w http.ResponseWriter, r *http.Request) (T, bool) {
	var payload T
	if err := h.readJSON(w, r, &payload); err != nil {
		h.badRequestResponse(w, r, err)
		return payload, false
	}
	if errs := h.validateStruct(payload); errs != nil {
		h.failedValidationResponse(w, r, errs)
		return payload, false
	}
	return payload, true
}

func (h *EventHandler) created(w http.ResponseWriter, r *http.Request, message string) {
	if err := h.writeJSON(w, http.StatusCreated, envelope{"message": message}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

func (h *EventHandler) JobApplication(w http.ResponseWriter, r *http.Request) {
	a, ok := decodeEvent[model.JobApplication](h, w, r)
	if !ok {
		return
	}
	h.notifier.NotifyNewJobApplication(r.Context(), a)
	h.created(w, r, "job application received")
}

func (h *EventHandler) Lead(w http.ResponseWriter, r *http.Request) {
	l, ok := decodeEvent[model.Lead](h, w, r)
	if !ok {
		return
	}
	h.notifier.NotifyNewLead(r.Context(), l)
	h.created(w, r, "lead received")
}

func (h *EventHandler) Review(w http.ResponseWriter, r *http.Request) {
	rv, ok := decodeEvent[model.Review](h, w, r)
	if !ok {
		return
	}
	h.notifier.NotifyNewReview(r.Context(), rv)
	h.created(w, r, "review received")
}

// SystemAlert is mounted behind the admin token.
func (h *EventHandler) SystemAlert(w http.ResponseWriter, r *http.Request) {
	a, ok := decodeEvent[model.SystemAlert](h, w, r)
	if !ok {
		return
	}
	h.notifier.NotifySystemAlert(r.Context(), a)
	h.created(w, r, "system alert dispatched")
}
