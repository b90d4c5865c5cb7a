package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fittrack/fittrack/internal/enrollment"
	"github.com/fittrack/fittrack/internal/middleware"
	"github.com/fittrack/fittrack/internal/telemetry/tracing"
	"github.com/fittrack/fittrack/internal/workout"
	"github.com/fittrack/fittrack/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

type scheduleService interface {
	Schedule(ctx context.Context, params ScheduleParams) (*ScheduledWorkout, error)
	ListForDate(ctx context.Context, userID int64, date time.Time) ([]ScheduledWorkout, error)
	ListUpcoming(ctx context.Context, userID int64) ([]ScheduledWorkout, error)
	Delete(ctx context.Context, userID, scheduleID int64) error
	UpdateStatus(ctx context.Context, userID, scheduleID int64, status string) (*ScheduledWorkout, error)
}

type Handler struct {
	service scheduleService
}

func NewHandler(service scheduleService) *Handler {
	return &Handler{
		service: service,
	}
}

type scheduleRequest struct {
	WorkoutPlanID   int64  `json:"workoutPlanId"`
	WorkoutDayID    int64  `json:"workoutDayId"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	ReminderEnabled bool   `json:"reminderEnabled"`
}

func (h *Handler) HandleSchedule(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.schedule.create")
	defer span.End()

	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		pkg.WriteError(w, "unauthorized", "authentication required", http.StatusUnauthorized)
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("schedule workout, unmarshal json params: %s", err)
		pkg.WriteError(w, "validation", "invalid schedule payload", http.StatusBadRequest)
		return
	}
	if req.WorkoutPlanID == 0 || req.WorkoutDayID == 0 {
		pkg.WriteError(w, "validation", "workoutPlanId and workoutDayId are required", http.StatusBadRequest)
		return
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		pkg.WriteError(w, "validation", "invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	sw, err := h.service.Schedule(ctx, ScheduleParams{
		UserID:          claims.UserID,
		WorkoutPlanID:   req.WorkoutPlanID,
		WorkoutDayID:    req.WorkoutDayID,
		Date:            date,
		Time:            req.Time,
		ReminderEnabled: req.ReminderEnabled,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNoActiveEnrollment):
			pkg.WriteError(w, "precondition_failed", "add the workout plan to your list first", http.StatusPreconditionFailed)
		case errors.Is(err, workout.ErrDayNotFound):
			pkg.WriteError(w, "not_found", "workout day not found", http.StatusNotFound)
		default:
			log.Errorf("schedule workout for user %d: %s", claims.UserID, err)
			pkg.WriteError(w, "validation", "failed to schedule workout", http.StatusBadRequest)
		}
		return
	}

	writeJsonStatus(w, sw, http.StatusCreated)
}

func (h *Handler) HandleListForDate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.schedule.listfordate")
	defer span.End()

	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		pkg.WriteError(w, "unauthorized", "authentication required", http.StatusUnauthorized)
		return
	}

	date, err := time.Parse(dateLayout, mux.Vars(r)["date"])
	if err != nil {
		pkg.WriteError(w, "validation", "invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	schedules, err := h.service.ListForDate(ctx, claims.UserID, date)
	if err != nil {
		log.Errorf("list schedules for user %d on %s: %s", claims.UserID, date.Format(dateLayout), err)
		pkg.WriteError(w, "internal", "failed to list scheduled workouts", http.StatusInternalServerError)
		return
	}

	writeJson(w, schedules)
}

func (h *Handler) HandleListUpcoming(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.schedule.listupcoming")
	defer span.End()

	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		pkg.WriteError(w, "unauthorized", "authentication required", http.StatusUnauthorized)
		return
	}

	schedules, err := h.service.ListUpcoming(ctx, claims.UserID)
	if err != nil {
		log.Errorf("list upcoming schedules for user %d: %s", claims.UserID, err)
		pkg.WriteError(w, "internal", "failed to list upcoming workouts", http.StatusInternalServerError)
		return
	}

	writeJson(w, schedules)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.schedule.delete")
	defer span.End()

	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		pkg.WriteError(w, "unauthorized", "authentication required", http.StatusUnauthorized)
		return
	}

	id, err := idVar(r)
	if err != nil {
		pkg.WriteError(w, "validation", "invalid schedule id", http.StatusBadRequest)
		return
	}

	if err := h.service.Delete(ctx, claims.UserID, id); err != nil {
		if errors.Is(err, ErrScheduleNotFound) {
			pkg.WriteError(w, "not_found", "scheduled workout not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete schedule %d for user %d: %s", id, claims.UserID, err)
		pkg.WriteError(w, "internal", "failed to delete scheduled workout", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, `{"deleted":true}`)
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.schedule.updatestatus")
	defer span.End()

	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		pkg.WriteError(w, "unauthorized", "authentication required", http.StatusUnauthorized)
		return
	}

	id, err := idVar(r)
	if err != nil {
		pkg.WriteError(w, "validation", "invalid schedule id", http.StatusBadRequest)
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.WriteError(w, "validation", "invalid payload", http.StatusBadRequest)
		return
	}

	sw, err := h.service.UpdateStatus(ctx, claims.UserID, id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidStatus):
			pkg.WriteError(w, "validation", "invalid status", http.StatusBadRequest)
		case errors.Is(err, ErrScheduleNotFound):
			pkg.WriteError(w, "not_found", "scheduled workout not found", http.StatusNotFound)
		case errors.Is(err, ErrStatusFinal):
			pkg.WriteError(w, "precondition_failed", "scheduled workout status is final", http.StatusPreconditionFailed)
		case errors.Is(err, enrollment.ErrEnrollmentInactive):
			pkg.WriteError(w, "precondition_failed", "enrollment is not active", http.StatusPreconditionFailed)
		default:
			log.Errorf("update schedule %d status: %s", id, err)
			pkg.WriteError(w, "internal", "failed to update status", http.StatusInternalServerError)
		}
		return
	}

	writeJson(w, sw)
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
