package settings

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fittrack/fittrack/internal/telemetry/tracing"
	"github.com/fittrack/fittrack/pkg"

	log "github.com/sirupsen/logrus"
)

type settingsRepo interface {
	Get(ctx context.Context) (*Settings, error)
	Update(ctx context.Context, s *Settings) error
}

type Handler struct {
	repo settingsRepo
}

func NewHandler(repo settingsRepo) *Handler {
	return &Handler{
		repo: repo,
	}
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.settings.get")
	defer span.End()

	s, err := h.repo.Get(ctx)
	if err != nil {
		log.Errorf("failed to get settings: %s", err)
		pkg.WriteError(w, "internal", "failed to get settings", http.StatusInternalServerError)
		return
	}

	settingsJson, err := json.Marshal(s)
	if err != nil {
		log.Errorf("failed to marshal settings: %s", err)
		pkg.WriteError(w, "internal", "failed to get settings", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, settingsJson)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.settings.update")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		pkg.WriteError(w, "validation", "invalid content type", http.StatusBadRequest)
		return
	}

	var s Settings
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		log.Tracef("update settings, unmarshal json params: %s", err)
		pkg.WriteError(w, "validation", "invalid settings payload", http.StatusBadRequest)
		return
	}

	if s.DefaultRole != "user" && s.DefaultRole != "admin" {
		pkg.WriteError(w, "validation", "invalid default role", http.StatusBadRequest)
		return
	}

	if err := h.repo.Update(ctx, &s); err != nil {
		log.Errorf("failed to update settings: %s", err)
		pkg.WriteError(w, "internal", "failed to update settings", http.StatusInternalServerError)
		return
	}

	log.Debugf("settings updated: %+v", s)
	pkg.WriteJSONResponseOK(w, `{"updated":true}`)
}
