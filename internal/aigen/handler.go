package aigen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fittrack/fittrack/internal/telemetry/tracing"
	"github.com/fittrack/fittrack/internal/workout"
	"github.com/fittrack/fittrack/pkg"

	log "github.com/sirupsen/logrus"
)

type generationService interface {
	Generate(ctx context.Context, prompt string) (*workout.Plan, error)
}

type Handler struct {
	service generationService
}

func NewHandler(service generationService) *Handler {
	return &Handler{
		service: service,
	}
}

func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.aigen.generate")
	defer span.End()

	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.WriteError(w, "validation", "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Prompt == "" {
		pkg.WriteError(w, "validation", "prompt is required", http.StatusBadRequest)
		return
	}

	plan, err := h.service.Generate(ctx, req.Prompt)
	if err != nil {
		switch {
		case errors.Is(err, ErrUpstreamTimeout):
			pkg.WriteError(w, "upstream_timeout", "workout generation timed out", http.StatusGatewayTimeout)
		case errors.Is(err, workout.ErrPlanExists):
			pkg.WriteError(w, "conflict", "workout plan with that name already exists", http.StatusConflict)
		default:
			log.Errorf("generate workout plan: %s", err)
			pkg.WriteError(w, "internal", "failed to generate workout plan", http.StatusInternalServerError)
		}
		return
	}

	respJson, err := json.Marshal(plan)
	if err != nil {
		log.Errorf("marshal generated plan: %s", err)
		pkg.WriteError(w, "internal", "failed to encode response", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusCreated)
}
