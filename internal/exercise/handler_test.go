package exercise_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fittrack/fittrack/internal/exercise"
	"github.com/fittrack/fittrack/pkg"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExercisesRepo struct {
	exercises map[int64]*exercise.Exercise
	nextID    int64
}

func newFakeExercisesRepo() *fakeExercisesRepo {
	return &fakeExercisesRepo{exercises: map[int64]*exercise.Exercise{}, nextID: 1}
}

func (f *fakeExercisesRepo) Add(_ context.Context, e exercise.Exercise) (*exercise.Exercise, error) {
	for _, existing := range f.exercises {
		if existing.Name == e.Name {
			return nil, exercise.ErrExerciseExists
		}
	}
	e.ID = f.nextID
	e.CreatedAt = time.Now()
	f.nextID++
	f.exercises[e.ID] = &e
	return &e, nil
}

func (f *fakeExercisesRepo) Get(_ context.Context, id int64) (*exercise.Exercise, error) {
	e, ok := f.exercises[id]
	if !ok {
		return nil, exercise.ErrExerciseNotFound
	}
	return e, nil
}

func (f *fakeExercisesRepo) List(_ context.Context, params exercise.ListParams) ([]exercise.Exercise, error) {
	exercises := make([]exercise.Exercise, 0)
	for _, e := range f.exercises {
		if params.ActiveOnly && !e.IsActive {
			continue
		}
		if params.MuscleGroup != "" && !contains(e.MuscleGroups, params.MuscleGroup) {
			continue
		}
		exercises = append(exercises, *e)
	}
	return exercises, nil
}

func (f *fakeExercisesRepo) Update(_ context.Context, e *exercise.Exercise) error {
	if _, ok := f.exercises[e.ID]; !ok {
		return exercise.ErrExerciseNotFound
	}
	f.exercises[e.ID] = e
	return nil
}

func (f *fakeExercisesRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.exercises[id]; !ok {
		return exercise.ErrExerciseNotFound
	}
	delete(f.exercises, id)
	return nil
}

func contains(values []string, v string) bool {
	for _, val := range values {
		if val == v {
			return true
		}
	}
	return false
}

func TestHandleAdd(t *testing.T) {
	repo := newFakeExercisesRepo()
	h := exercise.NewHandler(repo)

	payload, err := json.Marshal(exercise.Exercise{
		Name:         "Barbell Squat",
		MuscleGroups: []string{"quads", "glutes"},
		Difficulty:   "intermediate",
	})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/admin/exercises", bytes.NewBuffer(payload))
	rr := httptest.NewRecorder()
	h.HandleAdd(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	var added exercise.Exercise
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &added))
	assert.Equal(t, "Barbell Squat", added.Name)
	assert.True(t, added.IsActive)

	// same name again -> conflict
	req = httptest.NewRequest("POST", "/api/admin/exercises", bytes.NewBuffer(payload))
	rr = httptest.NewRecorder()
	h.HandleAdd(rr, req)
	require.Equal(t, http.StatusConflict, rr.Code)

	var errResp pkg.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &errResp))
	assert.Equal(t, "conflict", errResp.Kind)
}

func TestHandleList_ActiveAndFiltered(t *testing.T) {
	repo := newFakeExercisesRepo()
	h := exercise.NewHandler(repo)

	_, err := repo.Add(context.Background(), exercise.Exercise{
		Name: "Push Up", MuscleGroups: []string{"chest"}, IsActive: true,
	})
	require.NoError(t, err)
	_, err = repo.Add(context.Background(), exercise.Exercise{
		Name: "Bench Press", MuscleGroups: []string{"chest"}, IsActive: false,
	})
	require.NoError(t, err)
	_, err = repo.Add(context.Background(), exercise.Exercise{
		Name: "Deadlift", MuscleGroups: []string{"back"}, IsActive: true,
	})
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/exercises?muscleGroup=chest", nil)
	rr := httptest.NewRecorder()
	h.HandleList(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var listed []exercise.Exercise
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listed))
	// inactive Bench Press is filtered out for regular users
	require.Len(t, listed, 1)
	assert.Equal(t, "Push Up", listed[0].Name)
}

func TestHandleGet_NotFound(t *testing.T) {
	h := exercise.NewHandler(newFakeExercisesRepo())

	req := httptest.NewRequest("GET", "/api/exercises/42", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "42"})
	rr := httptest.NewRecorder()
	h.HandleGet(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	var errResp pkg.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &errResp))
	assert.Equal(t, "not_found", errResp.Kind)
}

func TestHandleDelete(t *testing.T) {
	repo := newFakeExercisesRepo()
	h := exercise.NewHandler(repo)

	added, err := repo.Add(context.Background(), exercise.Exercise{Name: "Plank", IsActive: true})
	require.NoError(t, err)

	req := httptest.NewRequest("DELETE", "/api/admin/exercises/1", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "1"})
	rr := httptest.NewRecorder()
	h.HandleDelete(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	_, err = repo.Get(context.Background(), added.ID)
	assert.ErrorIs(t, err, exercise.ErrExerciseNotFound)
}
