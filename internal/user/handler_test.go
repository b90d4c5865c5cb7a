package user_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fittrack/fittrack/internal/settings"
	"github.com/fittrack/fittrack/internal/telemetry/metrics"
	"github.com/fittrack/fittrack/internal/user"
	"github.com/fittrack/fittrack/pkg"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsersRepo struct {
	users  map[int64]*user.User
	nextID int64
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{users: map[int64]*user.User{}, nextID: 1}
}

func (f *fakeUsersRepo) Add(_ context.Context, u user.User) (*user.User, error) {
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return nil, user.ErrUserExists
		}
	}
	u.ID = f.nextID
	f.nextID++
	f.users[u.ID] = &u
	return &u, nil
}

func (f *fakeUsersRepo) Get(_ context.Context, id int64) (*user.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (f *fakeUsersRepo) List(_ context.Context) ([]user.User, error) {
	users := make([]user.User, 0, len(f.users))
	for _, u := range f.users {
		users = append(users, *u)
	}
	return users, nil
}

func (f *fakeUsersRepo) UpdateProfile(_ context.Context, u *user.User) error {
	existing, ok := f.users[u.ID]
	if !ok {
		return user.ErrUserNotFound
	}
	existing.Name = u.Name
	existing.HeightCm = u.HeightCm
	existing.WeightKg = u.WeightKg
	existing.FitnessGoal = u.FitnessGoal
	existing.FitnessLevel = u.FitnessLevel
	return nil
}

func (f *fakeUsersRepo) UpdateRole(_ context.Context, id int64, role string) error {
	u, ok := f.users[id]
	if !ok {
		return user.ErrUserNotFound
	}
	u.Role = role
	return nil
}

func (f *fakeUsersRepo) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	u, ok := f.users[id]
	if !ok {
		return user.ErrUserNotFound
	}
	u.LastLoginAt = &at
	return nil
}

func (f *fakeUsersRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.users[id]; !ok {
		return user.ErrUserNotFound
	}
	delete(f.users, id)
	return nil
}

type fakeSettingsRepo struct {
	settings settings.Settings
}

func (f *fakeSettingsRepo) Get(_ context.Context) (*settings.Settings, error) {
	s := f.settings
	return &s, nil
}

type fakeTokenService struct {
	issued int
}

func (f *fakeTokenService) IssueToken(_ context.Context, userID int64, role string) (string, error) {
	f.issued++
	return fmt.Sprintf("token-%d-%s", userID, role), nil
}

func (f *fakeTokenService) Logout(_ context.Context, _ string) error { return nil }

type notifyCall struct {
	title, message, ntype string
	relatedID             int64
	relatedType           string
}

type fakeNotifier struct {
	calls []notifyCall
}

func (f *fakeNotifier) NotifyAdmin(_ context.Context, title, message, ntype string, relatedID int64, relatedType string) error {
	f.calls = append(f.calls, notifyCall{title, message, ntype, relatedID, relatedType})
	return nil
}

func newTestHandler() (*user.Handler, *fakeUsersRepo, *fakeSettingsRepo, *fakeTokenService, *fakeNotifier) {
	repo := newFakeUsersRepo()
	settingsRepo := &fakeSettingsRepo{settings: settings.Settings{
		PlatformName:        "FitTrack",
		DefaultRole:         "user",
		RegistrationAllowed: true,
	}}
	tokens := &fakeTokenService{}
	notifier := &fakeNotifier{}
	h := user.NewHandler(repo, settingsRepo, tokens, notifier, metrics.NewTestManager())
	return h, repo, settingsRepo, tokens, notifier
}

func registerPayload(email string) []byte {
	payload, _ := json.Marshal(map[string]any{
		"email":    email,
		"password": "s3cret-pass",
		"name":     gofakeit.Name(),
	})
	return payload
}

func TestHandleRegister(t *testing.T) {
	h, repo, _, _, notifier := newTestHandler()

	req := httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer(registerPayload("new@fittrack.app")))
	rr := httptest.NewRecorder()
	h.HandleRegister(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)

	var created user.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "new@fittrack.app", created.Email)
	assert.Equal(t, "user", created.Role)
	assert.Len(t, repo.users, 1)

	// admin got notified about the new user
	require.Len(t, notifier.calls, 1)
	assert.Equal(t, "new_user", notifier.calls[0].ntype)
	assert.Equal(t, created.ID, notifier.calls[0].relatedID)
}

func TestHandleRegister_DuplicateEmail(t *testing.T) {
	h, _, _, _, _ := newTestHandler()

	req := httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer(registerPayload("dup@fittrack.app")))
	rr := httptest.NewRecorder()
	h.HandleRegister(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	req = httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer(registerPayload("dup@fittrack.app")))
	rr = httptest.NewRecorder()
	h.HandleRegister(rr, req)
	require.Equal(t, http.StatusConflict, rr.Code)

	var errResp pkg.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &errResp))
	assert.Equal(t, "conflict", errResp.Kind)
}

func TestHandleRegister_RegistrationDisabled(t *testing.T) {
	h, repo, settingsRepo, _, _ := newTestHandler()
	settingsRepo.settings.RegistrationAllowed = false

	req := httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer(registerPayload("nope@fittrack.app")))
	rr := httptest.NewRecorder()
	h.HandleRegister(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Empty(t, repo.users)
}

func TestHandleRegister_MaintenanceMode(t *testing.T) {
	h, _, settingsRepo, _, _ := newTestHandler()
	settingsRepo.settings.MaintenanceMode = true

	req := httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer(registerPayload("later@fittrack.app")))
	rr := httptest.NewRecorder()
	h.HandleRegister(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestHandleLogin(t *testing.T) {
	h, repo, _, tokens, _ := newTestHandler()

	passwordHash, err := pkg.HashPassword("right-password")
	require.NoError(t, err)
	_, err = repo.Add(context.Background(), user.User{
		Email:        "login@fittrack.app",
		PasswordHash: passwordHash,
		Role:         "user",
		CreatedAt:    time.Now(),
	})
	require.NoError(t, err)

	loginJson, _ := json.Marshal(map[string]string{
		"email":    "login@fittrack.app",
		"password": "right-password",
	})
	req := httptest.NewRequest("POST", "/auth/login", bytes.NewBuffer(loginJson))
	rr := httptest.NewRecorder()
	h.HandleLogin(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, tokens.issued)

	var resp struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "login@fittrack.app", resp.User.Email)

	// wrong password
	loginJson, _ = json.Marshal(map[string]string{
		"email":    "login@fittrack.app",
		"password": "wrong-password",
	})
	req = httptest.NewRequest("POST", "/auth/login", bytes.NewBuffer(loginJson))
	rr = httptest.NewRecorder()
	h.HandleLogin(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
