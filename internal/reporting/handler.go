package reporting

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/fittrack/fittrack/internal/telemetry/tracing"
	"github.com/fittrack/fittrack/pkg"

	log "github.com/sirupsen/logrus"
)

type reportingService interface {
	RecentActivities(ctx context.Context, limit, windowDays int) ([]Activity, error)
	UserGrowth(ctx context.Context, days, intervalDays int) ([]GrowthPoint, error)
	PopularWorkoutPlans(ctx context.Context) ([]PlanPopularity, error)
}

type Handler struct {
	service reportingService
}

func NewHandler(service reportingService) *Handler {
	return &Handler{
		service: service,
	}
}

func (h *Handler) HandleRecentActivities(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.reporting.activities")
	defer span.End()

	limit := queryInt(r, "limit", 20)
	windowDays := queryInt(r, "days", 7)

	activities, err := h.service.RecentActivities(ctx, limit, windowDays)
	if err != nil {
		log.Errorf("recent activities: %s", err)
		pkg.WriteError(w, "internal", "failed to get recent activities", http.StatusInternalServerError)
		return
	}

	writeJson(w, activities)
}

func (h *Handler) HandleUserGrowth(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.reporting.usergrowth")
	defer span.End()

	days := queryInt(r, "days", 30)
	interval := queryInt(r, "interval", 1)

	points, err := h.service.UserGrowth(ctx, days, interval)
	if err != nil {
		log.Errorf("user growth: %s", err)
		pkg.WriteError(w, "internal", "failed to get user growth", http.StatusInternalServerError)
		return
	}

	writeJson(w, points)
}

func (h *Handler) HandlePopularPlans(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.reporting.popularplans")
	defer span.End()

	rankings, err := h.service.PopularWorkoutPlans(ctx)
	if err != nil {
		log.Errorf("popular workout plans: %s", err)
		pkg.WriteError(w, "internal", "failed to get popular workout plans", http.StatusInternalServerError)
		return
	}

	writeJson(w, rankings)
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

func queryInt(r *http.Request, name string, fallback int) int {
	value, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
