package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fittrack/fittrack/internal/middleware"
	"github.com/fittrack/fittrack/internal/telemetry/tracing"
	"github.com/fittrack/fittrack/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type notificationsService interface {
	ListForUser(ctx context.Context, userID int64, page, size int) ([]Notification, error)
	ListForAdmin(ctx context.Context) ([]Notification, error)
	MarkRead(ctx context.Context, id, userID int64) error
	MarkReadAdmin(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	MarkAllReadAdmin(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id, userID int64) error
	DeleteAdmin(ctx context.Context, id int64) error
}

type Handler struct {
	service notificationsService
}

func NewHandler(service notificationsService) *Handler {
	return &Handler{
		service: service,
	}
}

const defaultPageSize = 20

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.notifications.list")
	defer span.End()

	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		pkg.WriteError(w, "unauthorized", "authentication required", http.StatusUnauthorized)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(r.URL.Query().Get("size"))
	if err != nil || size < 1 {
		size = defaultPageSize
	}

	notifs, err := h.service.ListForUser(ctx, claims.UserID, page, size)
	if err != nil {
		log.Errorf("list notifications for user %d: %s", claims.UserID, err)
		pkg.WriteError(w, "internal", "failed to list notifications", http.StatusInternalServerError)
		return
	}

	writeJson(w, notifs)
}

func (h *Handler) HandleListForAdmin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.notifications.listforadmin")
	defer span.End()

	notifs, err := h.service.ListForAdmin(ctx)
	if err != nil {
		log.Errorf("list admin notifications: %s", err)
		pkg.WriteError(w, "internal", "failed to list notifications", http.StatusInternalServerError)
		return
	}

	writeJson(w, notifs)
}

func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.notifications.markread")
	defer span.End()

	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		pkg.WriteError(w, "unauthorized", "authentication required", http.StatusUnauthorized)
		return
	}

	id, err := idVar(r)
	if err != nil {
		pkg.WriteError(w, "validation", "invalid notification id", http.StatusBadRequest)
		return
	}

	if err := h.service.MarkRead(ctx, id, claims.UserID); err != nil {
		if errors.Is(err, ErrNotificationNotFound) {
			pkg.WriteError(w, "not_found", "notification not found", http.StatusNotFound)
			return
		}
		log.Errorf("mark notification %d read: %s", id, err)
		pkg.WriteError(w, "internal", "failed to mark notification read", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSONResponseOK(w, `{"read":true}`)
}

func (h *Handler) HandleMarkReadAdmin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.notifications.markreadadmin")
	defer span.End()

	id, err := idVar(r)
	if err != nil {
		pkg.WriteError(w, "validation", "invalid notification id", http.StatusBadRequest)
		return
	}

	if err := h.service.MarkReadAdmin(ctx, id); err != nil {
		if errors.Is(err, ErrNotificationNotFound) {
			pkg.WriteError(w, "not_found", "notification not found", http.StatusNotFound)
			return
		}
		log.Errorf("mark admin notification %d read: %s", id, err)
		pkg.WriteError(w, "internal", "failed to mark notification read", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSONResponseOK(w, `{"read":true}`)
}

func (h *Handler) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.notifications.markallread")
	defer span.End()

	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		pkg.WriteError(w, "unauthorized", "authentication required", http.StatusUnauthorized)
		return
	}

	updated, err := h.service.MarkAllRead(ctx, claims.UserID)
	if err != nil {
		log.Errorf("mark all notifications read for user %d: %s", claims.UserID, err)
		pkg.WriteError(w, "internal", "failed to mark notifications read", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSONResponseOK(w, fmt.Sprintf(`{"updated":%d}`, updated))
}

func (h *Handler) HandleMarkAllReadAdmin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.notifications.markallreadadmin")
	defer span.End()

	updated, err := h.service.MarkAllReadAdmin(ctx)
	if err != nil {
		log.Errorf("mark all admin notifications read: %s", err)
		pkg.WriteError(w, "internal", "failed to mark notifications read", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSONResponseOK(w, fmt.Sprintf(`{"updated":%d}`, updated))
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.notifications.delete")
	defer span.End()

	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		pkg.WriteError(w, "unauthorized", "authentication required", http.StatusUnauthorized)
		return
	}

	id, err := idVar(r)
	if err != nil {
		pkg.WriteError(w, "validation", "invalid notification id", http.StatusBadRequest)
		return
	}

	if err := h.service.Delete(ctx, id, claims.UserID); err != nil {
		if errors.Is(err, ErrNotificationNotFound) {
			pkg.WriteError(w, "not_found", "notification not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete notification %d: %s", id, err)
		pkg.WriteError(w, "internal", "failed to delete notification", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSONResponseOK(w, `{"deleted":true}`)
}

func (h *Handler) HandleDeleteAdmin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.notifications.deleteadmin")
	defer span.End()

	id, err := idVar(r)
	if err != nil {
		pkg.WriteError(w, "validation", "invalid notification id", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteAdmin(ctx, id); err != nil {
		if errors.Is(err, ErrNotificationNotFound) {
			pkg.WriteError(w, "not_found", "notification not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete admin notification %d: %s", id, err)
		pkg.WriteError(w, "internal", "failed to delete notification", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSONResponseOK(w, `{"deleted":true}`)
}

func writeJson(w http.ResponseWriter, v interface{}) {
	respJson, err := json.Marshal(v)
	if err != nil {
		log.Errorf("marshal response: %s", err)
		pkg.WriteError(w, "internal", "failed to encode response", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func idVar(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}
