package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fittrack/fittrack/internal/middleware"
	"github.com/fittrack/fittrack/internal/settings"
	"github.com/fittrack/fittrack/internal/telemetry/metrics"
	"github.com/fittrack/fittrack/internal/telemetry/tracing"
	"github.com/fittrack/fittrack/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type usersRepo interface {
	Add(ctx context.Context, u User) (*User, error)
	Get(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)
	UpdateProfile(ctx context.Context, u *User) error
	UpdateRole(ctx context.Context, id int64, role string) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, id int64) error
}

type settingsGetter interface {
	Get(ctx context.Context) (*settings.Settings, error)
}

type tokenService interface {
	IssueToken(ctx context.Context, userID int64, role string) (string, error)
	Logout(ctx context.Context, token string) error
}

type adminNotifier interface {
	NotifyAdmin(ctx context.Context, title, message, ntype string, relatedID int64, relatedType string) error
}

type Handler struct {
	repo           usersRepo
	settings       settingsGetter
	tokens         tokenService
	notifier       adminNotifier
	metricsManager *metrics.Manager
}

func NewHandler(
	repo usersRepo,
	settingsRepo settingsGetter,
	tokens tokenService,
	notifier adminNotifier,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		repo:           repo,
		settings:       settingsRepo,
		tokens:         tokens,
		notifier:       notifier,
		metricsManager: metricsManager,
	}
}

type registerRequest struct {
	Email        string   `json:"email"`
	Password     string   `json:"password"`
	Name         string   `json:"name"`
	HeightCm     *float64 `json:"heightCm"`
	WeightKg     *float64 `json:"weightKg"`
	FitnessGoal  string   `json:"fitnessGoal"`
	FitnessLevel string   `json:"fitnessLevel"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.user.register")
	defer span.End()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("register, unmarshal json params: %s", err)
		pkg.WriteError(w, "validation", "invalid registration payload", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		pkg.WriteError(w, "validation", "email and password are required", http.StatusBadRequest)
		return
	}

	platformSettings, err := h.settings.Get(ctx)
	if err != nil {
		log.Errorf("register, get settings: %s", err)
		pkg.WriteError(w, "internal", "registration failed", http.StatusInternalServerError)
		return
	}
	if platformSettings.MaintenanceMode {
		pkg.WriteError(w, "forbidden", "platform is in maintenance mode", http.StatusForbidden)
		return
	}
	if !platformSettings.RegistrationAllowed {
		pkg.WriteError(w, "forbidden", "registration is currently disabled", http.StatusForbidden)
		return
	}

	passwordHash, err := pkg.HashPassword(req.Password)
	if err != nil {
		log.Errorf("register, hash password: %s", err)
		pkg.WriteError(w, "internal", "registration failed", http.StatusInternalServerError)
		return
	}

	addedUser, err := h.repo.Add(ctx, User{
		Email:        req.Email,
		PasswordHash: passwordHash,
		Role:         platformSettings.DefaultRole,
		Name:         req.Name,
		HeightCm:     req.HeightCm,
		WeightKg:     req.WeightKg,
		FitnessGoal:  req.FitnessGoal,
		FitnessLevel: req.FitnessLevel,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			pkg.WriteError(w, "conflict", "email already registered", http.StatusConflict)
			return
		}
		log.Errorf("register, add user [%s]: %s", req.Email, err)
		pkg.WriteError(w, "internal", "registration failed", http.StatusInternalServerError)
		return
	}

	h.metricsManager.CounterRegistrations.Inc()

	// notification is a best effort side effect, never fails the registration
	if err := h.notifier.NotifyAdmin(
		ctx, "New user registered",
		fmt.Sprintf("%s just joined the platform", addedUser.Email),
		"new_user", addedUser.ID, "User",
	); err != nil {
		log.Errorf("register, notify admin: %s", err)
	}

	userJson, err := json.Marshal(addedUser)
	if err != nil {
		log.Errorf("register, marshal user: %s", err)
		pkg.WriteError(w, "internal", "registration failed", http.StatusInternalServerError)
		return
	}

	log.Debugf("new user registered: %s [id %d]", addedUser.Email, addedUser.ID)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, userJson, http.StatusCreated)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.user.login")
	defer span.End()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("login, unmarshal json params: %s", err)
		pkg.WriteError(w, "validation", "invalid login payload", http.StatusBadRequest)
		return
	}

	u, err := h.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			reqIp, _ := pkg.ReadUserIP(r)
			log.Tracef("login attempt for unknown email [%s] from %s", req.Email, reqIp)
			pkg.WriteError(w, "unauthorized", "invalid credentials", http.StatusUnauthorized)
			return
		}
		log.Errorf("login, get user by email: %s", err)
		pkg.WriteError(w, "internal", "login failed", http.StatusInternalServerError)
		return
	}

	if !pkg.CheckPasswordHash(req.Password, u.PasswordHash) {
		reqIp, _ := pkg.ReadUserIP(r)
		log.Tracef("failed login for [%s] from %s", req.Email, reqIp)
		pkg.WriteError(w, "unauthorized", "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.tokens.IssueToken(ctx, u.ID, u.Role)
	if err != nil {
		log.Errorf("login, issue token: %s", err)
		pkg.WriteError(w, "internal", "login failed", http.StatusInternalServerError)
		return
	}

	if err := h.repo.UpdateLastLogin(ctx, u.ID, time.Now()); err != nil {
		log.Errorf("login, update last login: %s", err)
	}

	respJson, err := json.Marshal(loginResponse{Token: token, User: *u})
	if err != nil {
		log.Errorf("login, marshal response: %s", err)
		pkg.WriteError(w, "internal", "login failed", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.user.logout")
	defer span.End()

	authHeader := r.Header.Get("Authorization")
	token := ""
	if len(authHeader) > len("Bearer ") {
		token = authHeader[len("Bearer "):]
	}
	if token == "" {
		pkg.WriteError(w, "unauthorized", "no token provided", http.StatusUnauthorized)
		return
	}

	if err := h.tokens.Logout(ctx, token); err != nil {
		log.Tracef("logout: %s", err)
	}
	pkg.WriteJSONResponseOK(w, `{"loggedOut":true}`)
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.user.me")
	defer span.End()

	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		pkg.WriteError(w, "unauthorized", "authentication required", http.StatusUnauthorized)
		return
	}

	u, err := h.repo.Get(ctx, claims.UserID)
	if err != nil {
		log.Errorf("get own profile %d: %s", claims.UserID, err)
		pkg.WriteError(w, "not_found", "user not found", http.StatusNotFound)
		return
	}

	userJson, err := json.Marshal(u)
	if err != nil {
		log.Errorf("marshal user: %s", err)
		pkg.WriteError(w, "internal", "failed to get profile", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, userJson)
}

func (h *Handler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.user.updateme")
	defer span.End()

	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		pkg.WriteError(w, "unauthorized", "authentication required", http.StatusUnauthorized)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.WriteError(w, "validation", "invalid profile payload", http.StatusBadRequest)
		return
	}

	u := &User{
		ID:           claims.UserID,
		Name:         req.Name,
		HeightCm:     req.HeightCm,
		WeightKg:     req.WeightKg,
		FitnessGoal:  req.FitnessGoal,
		FitnessLevel: req.FitnessLevel,
	}
	if err := h.repo.UpdateProfile(ctx, u); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			pkg.WriteError(w, "not_found", "user not found", http.StatusNotFound)
			return
		}
		log.Errorf("update profile %d: %s", claims.UserID, err)
		pkg.WriteError(w, "internal", "failed to update profile", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSONResponseOK(w, `{"updated":true}`)
}

// admin endpoints below

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.user.list")
	defer span.End()

	users, err := h.repo.List(ctx)
	if err != nil {
		log.Errorf("list users: %s", err)
		pkg.WriteError(w, "internal", "failed to list users", http.StatusInternalServerError)
		return
	}

	usersJson, err := json.Marshal(users)
	if err != nil {
		log.Errorf("marshal users: %s", err)
		pkg.WriteError(w, "internal", "failed to list users", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, usersJson)
}

func (h *Handler) HandleUpdateRole(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.user.updaterole")
	defer span.End()

	id, err := idVar(r)
	if err != nil {
		pkg.WriteError(w, "validation", "invalid user id", http.StatusBadRequest)
		return
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.WriteError(w, "validation", "invalid payload", http.StatusBadRequest)
		return
	}
	if req.Role != "user" && req.Role != "admin" {
		pkg.WriteError(w, "validation", "invalid role", http.StatusBadRequest)
		return
	}

	if err := h.repo.UpdateRole(ctx, id, req.Role); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			pkg.WriteError(w, "not_found", "user not found", http.StatusNotFound)
			return
		}
		log.Errorf("update role for user %d: %s", id, err)
		pkg.WriteError(w, "internal", "failed to update role", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSONResponseOK(w, `{"updated":true}`)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.user.delete")
	defer span.End()

	id, err := idVar(r)
	if err != nil {
		pkg.WriteError(w, "validation", "invalid user id", http.StatusBadRequest)
		return
	}

	if err := h.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			pkg.WriteError(w, "not_found", "user not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete user %d: %s", id, err)
		pkg.WriteError(w, "internal", "failed to delete user", http.StatusInternalServerError)
		return
	}

	log.Debugf("user %d deleted", id)
	pkg.WriteJSONResponseOK(w, fmt.Sprintf(`{"deletedId":%d}`, id))
}

func idVar(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}
