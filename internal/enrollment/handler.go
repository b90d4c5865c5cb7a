package enrollment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/fittrack/fittrack/internal/middleware"
	"github.com/fittrack/fittrack/internal/telemetry/metrics"
	"github.com/fittrack/fittrack/internal/telemetry/tracing"
	"github.com/fittrack/fittrack/internal/workout"
	"github.com/fittrack/fittrack/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type enrollmentService interface {
	Enroll(ctx context.Context, userID, workoutPlanID int64) (*Enrollment, error)
	CompleteDay(ctx context.Context, params CompleteDayParams) (*Enrollment, bool, error)
	Restart(ctx context.Context, userID, enrollmentID int64) (*Enrollment, error)
	Remove(ctx context.Context, userID, workoutPlanID int64) error
	ListActive(ctx context.Context, userID int64) ([]Enrollment, error)
	ListCompleted(ctx context.Context, userID int64) ([]Enrollment, error)
}

type Handler struct {
	service        enrollmentService
	metricsManager *metrics.Manager
}

func NewHandler(service enrollmentService, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		service:        service,
		metricsManager: metricsManager,
	}
}

func (h *Handler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.enrollment.enroll")
	defer span.End()

	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		pkg.WriteError(w, "unauthorized", "authentication required", http.StatusUnauthorized)
		return
	}

	planID, err := idVar(r)
	if err != nil {
		pkg.WriteError(w, "validation", "invalid workout plan id", http.StatusBadRequest)
		return
	}

	e, err := h.service.Enroll(ctx, claims.UserID, planID)
	if err != nil {
		switch {
		case errors.Is(err, ErrEnrollmentExists):
			pkg.WriteError(w, "conflict", "workout plan already in your list", http.StatusConflict)
		case errors.Is(err, workout.ErrPlanNotFound), errors.Is(err, ErrEnrollmentNotFound):
			pkg.WriteError(w, "not_found", "workout plan not found", http.StatusNotFound)
		default:
			log.Errorf("enroll user %d to plan %d: %s", claims.UserID, planID, err)
			pkg.WriteError(w, "internal", "failed to add workout plan", http.StatusInternalServerError)
		}
		return
	}

	h.metricsManager.CounterEnrollments.Inc()
	writeJsonStatus(w, e, http.StatusCreated)
}

type completeDayRequest struct {
	WorkoutDayID   int64 `json:"workoutDayId"`
	Duration       int   `json:"duration"`
	CaloriesBurned int   `json:"caloriesBurned"`
	IsRestDay      bool  `json:"isRestDay"`
}

type completeDayResponse struct {
	Enrollment      *Enrollment `json:"enrollment"`
	ProgramComplete bool        `json:"programComplete"`
}

func (h *Handler) HandleCompleteDay(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.enrollment.completeday")
	defer span.End()

	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		pkg.WriteError(w, "unauthorized", "authentication required", http.StatusUnauthorized)
		return
	}

	enrollmentID, err := idVar(r)
	if err != nil {
		pkg.WriteError(w, "validation", "invalid enrollment id", http.StatusBadRequest)
		return
	}

	var req completeDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("complete day, unmarshal json params: %s", err)
		pkg.WriteError(w, "validation", "invalid payload", http.StatusBadRequest)
		return
	}
	if req.WorkoutDayID == 0 {
		pkg.WriteError(w, "validation", "workoutDayId is required", http.StatusBadRequest)
		return
	}

	e, programComplete, err := h.service.CompleteDay(ctx, CompleteDayParams{
		UserID:         claims.UserID,
		EnrollmentID:   enrollmentID,
		WorkoutDayID:   req.WorkoutDayID,
		Duration:       req.Duration,
		CaloriesBurned: req.CaloriesBurned,
		IsRestDay:      req.IsRestDay,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrEnrollmentNotFound), errors.Is(err, workout.ErrDayNotFound):
			pkg.WriteError(w, "not_found", "enrollment or workout day not found", http.StatusNotFound)
		case errors.Is(err, ErrEnrollmentInactive):
			pkg.WriteError(w, "precondition_failed", "enrollment is not active, restart it first", http.StatusPreconditionFailed)
		default:
			log.Errorf("complete day for enrollment %d: %s", enrollmentID, err)
			pkg.WriteError(w, "internal", "failed to complete workout day", http.StatusInternalServerError)
		}
		return
	}

	h.metricsManager.CounterCompletedDays.Inc()
	writeJson(w, completeDayResponse{Enrollment: e, ProgramComplete: programComplete})
}

func (h *Handler) HandleRestart(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.enrollment.restart")
	defer span.End()

	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		pkg.WriteError(w, "unauthorized", "authentication required", http.StatusUnauthorized)
		return
	}

	enrollmentID, err := idVar(r)
	if err != nil {
		pkg.WriteError(w, "validation", "invalid enrollment id", http.StatusBadRequest)
		return
	}

	e, err := h.service.Restart(ctx, claims.UserID, enrollmentID)
	if err != nil {
		if errors.Is(err, ErrEnrollmentNotFound) {
			pkg.WriteError(w, "not_found", "enrollment not found", http.StatusNotFound)
			return
		}
		log.Errorf("restart enrollment %d: %s", enrollmentID, err)
		pkg.WriteError(w, "internal", "failed to restart workout plan", http.StatusInternalServerError)
		return
	}

	writeJson(w, e)
}

func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.enrollment.remove")
	defer span.End()

	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		pkg.WriteError(w, "unauthorized", "authentication required", http.StatusUnauthorized)
		return
	}

	planID, err := idVar(r)
	if err != nil {
		pkg.WriteError(w, "validation", "invalid workout plan id", http.StatusBadRequest)
		return
	}

	if err := h.service.Remove(ctx, claims.UserID, planID); err != nil {
		if errors.Is(err, ErrEnrollmentNotFound) {
			pkg.WriteError(w, "not_found", "workout plan is not in your list", http.StatusNotFound)
			return
		}
		log.Errorf("remove enrollment, user %d plan %d: %s", claims.UserID, planID, err)
		pkg.WriteError(w, "internal", "failed to remove workout plan", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, `{"removed":true}`)
}

func (h *Handler) HandleListActive(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.enrollment.listactive")
	defer span.End()

	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		pkg.WriteError(w, "unauthorized", "authentication required", http.StatusUnauthorized)
		return
	}

	enrollments, err := h.service.ListActive(ctx, claims.UserID)
	if err != nil {
		log.Errorf("list active enrollments for user %d: %s", claims.UserID, err)
		pkg.WriteError(w, "internal", "failed to list workouts", http.StatusInternalServerError)
		return
	}

	writeJson(w, enrollments)
}

func (h *Handler) HandleListCompleted(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.enrollment.listcompleted")
	defer span.End()

	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		pkg.WriteError(w, "unauthorized", "authentication required", http.StatusUnauthorized)
		return
	}

	enrollments, err := h.service.ListCompleted(ctx, claims.UserID)
	if err != nil {
		log.Errorf("list completed enrollments for user %d: %s", claims.UserID, err)
		pkg.WriteError(w, "internal", "failed to list workouts", http.StatusInternalServerError)
		return
	}

	writeJson(w, enrollments)
}

func writeJson(w http.ResponseWriter, v interface{}) {
	writeJsonStatus(w, v, http.StatusOK)
}

func writeJsonStatus(w http.ResponseWriter, v interface{}, status int) {
	respJson, err := json.Marshal(v)
	if err != nil {
		log.Errorf("marshal response: %s", err)
		pkg.WriteError(w, "internal", "failed to encode response", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, status)
}

func idVar(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}
