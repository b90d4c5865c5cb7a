package workout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fittrack/fittrack/internal/telemetry/tracing"
	"github.com/fittrack/fittrack/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type workoutsRepo interface {
	AddPlan(ctx context.Context, p Plan) (*Plan, error)
	GetPlanDetails(ctx context.Context, id int64) (*Plan, error)
	ListPlans(ctx context.Context, params ListPlansParams) ([]Plan, error)
	UpdatePlan(ctx context.Context, p *Plan) error
	DeletePlan(ctx context.Context, id int64) error
	AddDay(ctx context.Context, d Day) (*Day, error)
	DeleteDay(ctx context.Context, id int64) error
	AddDayExercise(ctx context.Context, de DayExercise) (*DayExercise, error)
	RemoveDayExercise(ctx context.Context, id int64) error
}

type adminNotifier interface {
	NotifyAdmin(ctx context.Context, title, message, ntype string, relatedID int64, relatedType string) error
}

type Handler struct {
	repo     workoutsRepo
	notifier adminNotifier
}

func NewHandler(repo workoutsRepo, notifier adminNotifier) *Handler {
	return &Handler{
		repo:     repo,
		notifier: notifier,
	}
}

// HandleListPlans serves the user-facing catalog: active plans,
// optional level and goal filters.
func (h *Handler) HandleListPlans(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.listplans")
	defer span.End()

	plans, err := h.repo.ListPlans(ctx, ListPlansParams{
		Level:      r.URL.Query().Get("level"),
		Goal:       r.URL.Query().Get("goal"),
		ActiveOnly: true,
	})
	if err != nil {
		log.Errorf("list workout plans: %s", err)
		pkg.WriteError(w, "internal", "failed to list workout plans", http.StatusInternalServerError)
		return
	}

	writeJson(w, plans)
}

// HandleListAllPlans is the admin variant: inactive plans included.
func (h *Handler) HandleListAllPlans(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.listallplans")
	defer span.End()

	plans, err := h.repo.ListPlans(ctx, ListPlansParams{
		Level: r.URL.Query().Get("level"),
		Goal:  r.URL.Query().Get("goal"),
	})
	if err != nil {
		log.Errorf("list all workout plans: %s", err)
		pkg.WriteError(w, "internal", "failed to list workout plans", http.StatusInternalServerError)
		return
	}

	writeJson(w, plans)
}

func (h *Handler) HandleGetPlan(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.getplan")
	defer span.End()

	id, err := idVar(r)
	if err != nil {
		pkg.WriteError(w, "validation", "invalid workout plan id", http.StatusBadRequest)
		return
	}

	p, err := h.repo.GetPlanDetails(ctx, id)
	if err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			pkg.WriteError(w, "not_found", "workout plan not found", http.StatusNotFound)
			return
		}
		log.Errorf("get workout plan %d: %s", id, err)
		pkg.WriteError(w, "internal", "failed to get workout plan", http.StatusInternalServerError)
		return
	}

	writeJson(w, p)
}

func (h *Handler) HandleAddPlan(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.addplan")
	defer span.End()

	var p Plan
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		log.Tracef("add workout plan, unmarshal json params: %s", err)
		pkg.WriteError(w, "validation", "invalid workout plan payload", http.StatusBadRequest)
		return
	}
	if p.Name == "" {
		pkg.WriteError(w, "validation", "workout plan name is required", http.StatusBadRequest)
		return
	}
	p.IsActive = true

	added, err := h.repo.AddPlan(ctx, p)
	if err != nil {
		if errors.Is(err, ErrPlanExists) {
			pkg.WriteError(w, "conflict", "workout plan name already taken", http.StatusConflict)
			return
		}
		log.Errorf("add workout plan [%s]: %s", p.Name, err)
		pkg.WriteError(w, "internal", "failed to add workout plan", http.StatusInternalServerError)
		return
	}

	// best effort, failures never abort the create
	if err := h.notifier.NotifyAdmin(
		ctx, "New workout plan",
		fmt.Sprintf("workout plan %q was created", added.Name),
		"new_workout", added.ID, "WorkoutPlan",
	); err != nil {
		log.Errorf("add workout plan, notify admin: %s", err)
	}

	log.Debugf("new workout plan added: %s [id %d]", added.Name, added.ID)
	addedJson, err := json.Marshal(added)
	if err != nil {
		log.Errorf("marshal workout plan: %s", err)
		pkg.WriteError(w, "internal", "failed to add workout plan", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedJson, http.StatusCreated)
}

func (h *Handler) HandleUpdatePlan(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.updateplan")
	defer span.End()

	id, err := idVar(r)
	if err != nil {
		pkg.WriteError(w, "validation", "invalid workout plan id", http.StatusBadRequest)
		return
	}

	var p Plan
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		pkg.WriteError(w, "validation", "invalid workout plan payload", http.StatusBadRequest)
		return
	}
	if p.Name == "" {
		pkg.WriteError(w, "validation", "workout plan name is required", http.StatusBadRequest)
		return
	}
	p.ID = id

	if err := h.repo.UpdatePlan(ctx, &p); err != nil {
		switch {
		case errors.Is(err, ErrPlanNotFound):
			pkg.WriteError(w, "not_found", "workout plan not found", http.StatusNotFound)
		case errors.Is(err, ErrPlanExists):
			pkg.WriteError(w, "conflict", "workout plan name already taken", http.StatusConflict)
		default:
			log.Errorf("update workout plan %d: %s", id, err)
			pkg.WriteError(w, "internal", "failed to update workout plan", http.StatusInternalServerError)
		}
		return
	}
	pkg.WriteJSONResponseOK(w, `{"updated":true}`)
}

func (h *Handler) HandleDeletePlan(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.deleteplan")
	defer span.End()

	id, err := idVar(r)
	if err != nil {
		pkg.WriteError(w, "validation", "invalid workout plan id", http.StatusBadRequest)
		return
	}

	if err := h.repo.DeletePlan(ctx, id); err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			pkg.WriteError(w, "not_found", "workout plan not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete workout plan %d: %s", id, err)
		pkg.WriteError(w, "internal", "failed to delete workout plan", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, fmt.Sprintf(`{"deletedId":%d}`, id))
}

func (h *Handler) HandleAddDay(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.addday")
	defer span.End()

	planID, err := idVar(r)
	if err != nil {
		pkg.WriteError(w, "validation", "invalid workout plan id", http.StatusBadRequest)
		return
	}

	var d Day
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		pkg.WriteError(w, "validation", "invalid workout day payload", http.StatusBadRequest)
		return
	}
	if d.DayNumber < 1 {
		pkg.WriteError(w, "validation", "day number must be positive", http.StatusBadRequest)
		return
	}
	d.WorkoutPlanID = planID

	added, err := h.repo.AddDay(ctx, d)
	if err != nil {
		switch {
		case errors.Is(err, ErrPlanNotFound):
			pkg.WriteError(w, "not_found", "workout plan not found", http.StatusNotFound)
		case errors.Is(err, ErrDayExists):
			pkg.WriteError(w, "conflict", "day number already exists in the plan", http.StatusConflict)
		default:
			log.Errorf("add day to plan %d: %s", planID, err)
			pkg.WriteError(w, "internal", "failed to add workout day", http.StatusInternalServerError)
		}
		return
	}

	addedJson, err := json.Marshal(added)
	if err != nil {
		log.Errorf("marshal workout day: %s", err)
		pkg.WriteError(w, "internal", "failed to add workout day", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedJson, http.StatusCreated)
}

func (h *Handler) HandleDeleteDay(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.deleteday")
	defer span.End()

	id, err := idVar(r)
	if err != nil {
		pkg.WriteError(w, "validation", "invalid workout day id", http.StatusBadRequest)
		return
	}

	if err := h.repo.DeleteDay(ctx, id); err != nil {
		if errors.Is(err, ErrDayNotFound) {
			pkg.WriteError(w, "not_found", "workout day not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete workout day %d: %s", id, err)
		pkg.WriteError(w, "internal", "failed to delete workout day", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSONResponseOK(w, fmt.Sprintf(`{"deletedId":%d}`, id))
}

func (h *Handler) HandleAddDayExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.adddayexercise")
	defer span.End()

	dayID, err := idVar(r)
	if err != nil {
		pkg.WriteError(w, "validation", "invalid workout day id", http.StatusBadRequest)
		return
	}

	var de DayExercise
	if err := json.NewDecoder(r.Body).Decode(&de); err != nil {
		pkg.WriteError(w, "validation", "invalid prescription payload", http.StatusBadRequest)
		return
	}
	if de.ExerciseID == 0 {
		pkg.WriteError(w, "validation", "exerciseId is required", http.StatusBadRequest)
		return
	}
	de.WorkoutDayID = dayID
	if de.Sets < 1 {
		de.Sets = 3
	}
	if de.Reps < 1 {
		de.Reps = 10
	}
	if de.RestTime < 1 {
		de.RestTime = 60
	}

	added, err := h.repo.AddDayExercise(ctx, de)
	if err != nil {
		switch {
		case errors.Is(err, ErrDayNotFound):
			pkg.WriteError(w, "not_found", "workout day not found", http.StatusNotFound)
		case errors.Is(err, ErrExerciseInDay):
			pkg.WriteError(w, "conflict", "exercise already prescribed for that day", http.StatusConflict)
		default:
			log.Errorf("add exercise to day %d: %s", dayID, err)
			pkg.WriteError(w, "internal", "failed to add prescription", http.StatusInternalServerError)
		}
		return
	}

	addedJson, err := json.Marshal(added)
	if err != nil {
		log.Errorf("marshal prescription: %s", err)
		pkg.WriteError(w, "internal", "failed to add prescription", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedJson, http.StatusCreated)
}

func (h *Handler) HandleRemoveDayExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.removedayexercise")
	defer span.End()

	id, err := idVar(r)
	if err != nil {
		pkg.WriteError(w, "validation", "invalid prescription id", http.StatusBadRequest)
		return
	}

	if err := h.repo.RemoveDayExercise(ctx, id); err != nil {
		if errors.Is(err, ErrPrescriptionMissing) {
			pkg.WriteError(w, "not_found", "prescription not found", http.StatusNotFound)
			return
		}
		log.Errorf("remove prescription %d: %s", id, err)
		pkg.WriteError(w, "internal", "failed to remove prescription", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSONResponseOK(w, fmt.Sprintf(`{"deletedId":%d}`, id))
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
