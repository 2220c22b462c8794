package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/ShatskikhS/NotifyMe/internal/api/middleware"
	"github.com/ShatskikhS/NotifyMe/internal/domain"
	"github.com/ShatskikhS/NotifyMe/internal/service"
)

// NotificationHandler handles the /notifications endpoints.
type NotificationHandler struct {
	svc    *service.NotificationService
	debug  bool
	logger *zap.Logger
}

// NewNotificationHandler builds the handler. debug switches error bodies to
// their detailed form.
func NewNotificationHandler(svc *service.NotificationService, debug bool, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, debug: debug, logger: logger}
}

type createResponse struct {
	Status         domain.Status `json:"status"`
	NotificationID int64         `json:"notificationId"`
	Time           int64         `json:"time"`
}

type updateResponse struct {
	Status  string               `json:"status"`
	Time    time.Time            `json:"time"`
	Updated *domain.Notification `json:"updated"`
}

type deleteResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

// Create handles POST /notifications
//
// @Summary     Create a notification
// @Tags        notifications
// @Accept      json
// @Produce     json
// @Param       body  body      domain.CreateNotificationRequest  true  "Notification payload"
// @Success     200   {object}  createResponse                    "Delivered right away"
// @Success     202   {object}  createResponse                    "Scheduled for sendAt"
// @Failure     400   {object}  map[string]string
// @Router      /notifications [post]
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateNotificationRequest
	if err := decodeJSON(r, &req); err != nil {
		h.warn(r, "create notification: bad body", err)
		mapError(w, err, h.debug)
		return
	}

	n, err := h.svc.Create(r.Context(), req)
	if err != nil {
		h.warn(r, "create notification failed", err)
		mapError(w, err, h.debug)
		return
	}

	status := http.StatusOK
	if n.IsDeferred() {
		status = http.StatusAccepted
	}
	respondJSON(w, status, createResponse{
		Status:         n.Status,
		NotificationID: n.ID,
		Time:           time.Now().UnixMilli(),
	})
}

// List handles GET /notifications
//
// @Summary  All stored notifications keyed by id
// @Tags     notifications
// @Produce  json
// @Success  200  {object}  map[string]domain.Notification
// @Router   /notifications [get]
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.svc.List(r.Context())
	if err != nil {
		h.warn(r, "list notifications failed", err)
		mapError(w, err, h.debug)
		return
	}
	respondJSON(w, http.StatusOK, all)
}

// GetByID handles GET /notifications/{id}
//
// @Summary  Get a notification by id
// @Tags     notifications
// @Produce  json
// @Param    id   path      int  true  "Notification id"
// @Success  200  {object}  domain.Notification
// @Failure  400  {object}  map[string]string
// @Failure  404  {object}  map[string]string
// @Router   /notifications/{id} [get]
func (h *NotificationHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		mapError(w, err, h.debug)
		return
	}
	n, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		mapError(w, err, h.debug)
		return
	}
	respondJSON(w, http.StatusOK, n)
}

// Update handles PATCH /notifications/{id}
//
// @Summary  Change fields of a notification
// @Tags     notifications
// @Accept   json
// @Produce  json
// @Param    id    path      int                               true  "Notification id"
// @Param    body  body      domain.UpdateNotificationRequest  true  "Fields to change"
// @Success  200   {object}  updateResponse
// @Failure  400   {object}  map[string]string
// @Failure  404   {object}  map[string]string
// @Failure  409   {object}  map[string]string
// @Router   /notifications/{id} [patch]
func (h *NotificationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.warn(r, "id parameter validation error", err)
		mapError(w, err, h.debug)
		return
	}

	var req domain.UpdateNotificationRequest
	if err := decodeJSON(r, &req); err != nil {
		h.warn(r, "update notification: bad body", err)
		mapError(w, err, h.debug)
		return
	}

	n, err := h.svc.Update(r.Context(), id, req)
	if err != nil {
		h.warn(r, "update notification failed", err)
		mapError(w, err, h.debug)
		return
	}
	respondJSON(w, http.StatusOK, updateResponse{Status: "ok", Time: time.Now().UTC(), Updated: n})
}

// Cancel handles DELETE /notifications/{id}
//
// @Summary  Cancel a scheduled notification
// @Tags     notifications
// @Param    id   path      int  true  "Notification id"
// @Success  200  {object}  deleteResponse
// @Failure  400  {object}  map[string]string
// @Failure  404  {object}  map[string]string
// @Failure  409  {object}  map[string]string
// @Router   /notifications/{id} [delete]
func (h *NotificationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.warn(r, "id parameter validation error", err)
		mapError(w, err, h.debug)
		return
	}
	if err := h.svc.Cancel(r.Context(), id); err != nil {
		h.warn(r, "cancel notification failed", err)
		mapError(w, err, h.debug)
		return
	}
	respondJSON(w, http.StatusOK, deleteResponse{Status: "ok", Time: time.Now().UTC()})
}

func (h *NotificationHandler) warn(r *http.Request, msg string, err error) {
	h.logger.Warn(msg,
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
		zap.Error(err),
	)
}
