package exercise

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/fittrack/fittrack/internal/telemetry/tracing"
	"github.com/fittrack/fittrack/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type exercisesRepo interface {
	Add(ctx context.Context, e Exercise) (*Exercise, error)
	Get(ctx context.Context, id int64) (*Exercise, error)
	List(ctx context.Context, params ListParams) ([]Exercise, error)
	Update(ctx context.Context, e *Exercise) error
	Delete(ctx context.Context, id int64) error
}

type Handler struct {
	repo exercisesRepo
}

func NewHandler(repo exercisesRepo) *Handler {
	return &Handler{
		repo: repo,
	}
}

const defaultPageSize = 20

// HandleList serves the user-facing catalog: active exercises only,
// optional muscle group filter, paginated.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercise.list")
	defer span.End()

	page, size := pageParams(r, defaultPageSize)
	exercises, err := h.repo.List(ctx, ListParams{
		MuscleGroup: r.URL.Query().Get("muscleGroup"),
		ActiveOnly:  true,
		Page:        page,
		Size:        size,
	})
	if err != nil {
		log.Errorf("list exercises: %s", err)
		pkg.WriteError(w, "internal", "failed to list exercises", http.StatusInternalServerError)
		return
	}

	writeJson(w, exercises)
}

// HandleListAll is the admin variant: inactive exercises included.
func (h *Handler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercise.listall")
	defer span.End()

	page, size := pageParams(r, 0)
	exercises, err := h.repo.List(ctx, ListParams{
		MuscleGroup: r.URL.Query().Get("muscleGroup"),
		Page:        page,
		Size:        size,
	})
	if err != nil {
		log.Errorf("list all exercises: %s", err)
		pkg.WriteError(w, "internal", "failed to list exercises", http.StatusInternalServerError)
		return
	}

	writeJson(w, exercises)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercise.get")
	defer span.End()

	id, err := idVar(r)
	if err != nil {
		pkg.WriteError(w, "validation", "invalid exercise id", http.StatusBadRequest)
		return
	}

	e, err := h.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrExerciseNotFound) {
			pkg.WriteError(w, "not_found", "exercise not found", http.StatusNotFound)
			return
		}
		log.Errorf("get exercise %d: %s", id, err)
		pkg.WriteError(w, "internal", "failed to get exercise", http.StatusInternalServerError)
		return
	}

	writeJson(w, e)
}

func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercise.add")
	defer span.End()

	var e Exercise
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		log.Tracef("add exercise, unmarshal json params: %s", err)
		pkg.WriteError(w, "validation", "invalid exercise payload", http.StatusBadRequest)
		return
	}
	if e.Name == "" {
		pkg.WriteError(w, "validation", "exercise name is required", http.StatusBadRequest)
		return
	}
	e.IsActive = true

	added, err := h.repo.Add(ctx, e)
	if err != nil {
		if errors.Is(err, ErrExerciseExists) {
			pkg.WriteError(w, "conflict", "exercise name already taken", http.StatusConflict)
			return
		}
		log.Errorf("add exercise [%s]: %s", e.Name, err)
		pkg.WriteError(w, "internal", "failed to add exercise", http.StatusInternalServerError)
		return
	}

	log.Debugf("new exercise added: %s [id %d]", added.Name, added.ID)
	addedJson, err := json.Marshal(added)
	if err != nil {
		log.Errorf("marshal exercise: %s", err)
		pkg.WriteError(w, "internal", "failed to add exercise", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedJson, http.StatusCreated)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercise.update")
	defer span.End()

	id, err := idVar(r)
	if err != nil {
		pkg.WriteError(w, "validation", "invalid exercise id", http.StatusBadRequest)
		return
	}

	var e Exercise
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		pkg.WriteError(w, "validation", "invalid exercise payload", http.StatusBadRequest)
		return
	}
	if e.Name == "" {
		pkg.WriteError(w, "validation", "exercise name is required", http.StatusBadRequest)
		return
	}
	e.ID = id

	if err := h.repo.Update(ctx, &e); err != nil {
		switch {
		case errors.Is(err, ErrExerciseNotFound):
			pkg.WriteError(w, "not_found", "exercise not found", http.StatusNotFound)
		case errors.Is(err, ErrExerciseExists):
			pkg.WriteError(w, "conflict", "exercise name already taken", http.StatusConflict)
		default:
			log.Errorf("update exercise %d: %s", id, err)
			pkg.WriteError(w, "internal", "failed to update exercise", http.StatusInternalServerError)
		}
		return
	}
	pkg.WriteJSONResponseOK(w, `{"updated":true}`)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercise.delete")
	defer span.End()

	id, err := idVar(r)
	if err != nil {
		pkg.WriteError(w, "validation", "invalid exercise id", http.StatusBadRequest)
		return
	}

	if err := h.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrExerciseNotFound) {
			pkg.WriteError(w, "not_found", "exercise not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete exercise %d: %s", id, err)
		pkg.WriteError(w, "internal", "failed to delete exercise", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, strconv.FormatInt(id, 10))
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

func pageParams(r *http.Request, defaultSize int) (page, size int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(r.URL.Query().Get("size"))
	if err != nil || size < 1 {
		size = defaultSize
	}
	return page, size
}
