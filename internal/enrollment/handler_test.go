package enrollment_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fittrack/fittrack/internal/auth"
	"github.com/fittrack/fittrack/internal/enrollment"
	"github.com/fittrack/fittrack/internal/middleware"
	"github.com/fittrack/fittrack/internal/telemetry/metrics"
	"github.com/fittrack/fittrack/pkg"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTokenChecker struct {
	claims map[string]*auth.Claims
}

func (f *fakeTokenChecker) VerifyToken(_ context.Context, token string) (*auth.Claims, error) {
	claims, ok := f.claims[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return claims, nil
}

// two logged-in users against a real service, the repo is shared so the
// tests can check whose state actually changed
func newTestRouter() (*mux.Router, *fakeEnrollmentsRepo, *enrollment.Service) {
	repo := newFakeEnrollmentsRepo()
	svc := enrollment.NewService(repo, fourDayPlan(), &recordingNotifier{})
	handler := enrollment.NewHandler(svc, metrics.NewTestManager())

	checker := &fakeTokenChecker{claims: map[string]*auth.Claims{
		"token-1": {UserID: 1, Role: auth.RoleUser},
		"token-2": {UserID: 2, Role: auth.RoleUser},
	}}

	r := mux.NewRouter()
	r.Use(middleware.NewAuthMiddlewareHandler(checker).AuthCheck())
	r.HandleFunc("/api/user-workouts/{id}/complete-day", handler.HandleCompleteDay).Methods("POST")
	r.HandleFunc("/api/user-workouts/{id}/restart", handler.HandleRestart).Methods("POST")
	return r, repo, svc
}

func doJson(r *mux.Router, token, url string, payload any) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", url, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestHandleCompleteDay_NotTheOwner(t *testing.T) {
	router, repo, svc := newTestRouter()
	ctx := context.Background()

	e, err := svc.Enroll(ctx, 1, 7)
	require.NoError(t, err)

	rr := doJson(router, "token-2", "/api/user-workouts/1/complete-day",
		map[string]any{"workoutDayId": 101, "duration": 600})
	require.Equal(t, http.StatusNotFound, rr.Code)

	var errResp pkg.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &errResp))
	assert.Equal(t, "not_found", errResp.Kind)

	// no history row was logged, the owner's progress is untouched
	assert.Empty(t, repo.history)
	victim, err := repo.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(0), victim.Progress)
	assert.Equal(t, 0, victim.CompletedWorkouts)

	// the owner completes the same day just fine
	rr = doJson(router, "token-1", "/api/user-workouts/1/complete-day",
		map[string]any{"workoutDayId": 101, "duration": 600})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, repo.history, 1)
}

func TestHandleRestart_NotTheOwner(t *testing.T) {
	router, repo, svc := newTestRouter()
	ctx := context.Background()

	e, err := svc.Enroll(ctx, 1, 7)
	require.NoError(t, err)
	for _, dayID := range []int64{101, 102, 103, 104} {
		_, _, err = svc.CompleteDay(ctx, enrollment.CompleteDayParams{
			UserID: 1, EnrollmentID: e.ID, WorkoutDayID: dayID,
		})
		require.NoError(t, err)
	}

	rr := doJson(router, "token-2", "/api/user-workouts/1/restart", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)

	// still completed, nobody else can reset it
	victim, err := repo.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.InDelta(t, 100, victim.Progress, 0.001)
	assert.False(t, victim.IsActive)

	rr = doJson(router, "token-1", "/api/user-workouts/1/restart", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	restarted, err := repo.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, restarted.IsActive)
	assert.Equal(t, float64(0), restarted.Progress)
}
