package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/fittrack/fittrack/internal/aigen"
	"github.com/fittrack/fittrack/internal/auth"
	"github.com/fittrack/fittrack/internal/config"
	"github.com/fittrack/fittrack/internal/db"
	"github.com/fittrack/fittrack/internal/enrollment"
	"github.com/fittrack/fittrack/internal/exercise"
	"github.com/fittrack/fittrack/internal/middleware"
	"github.com/fittrack/fittrack/internal/notifications"
	"github.com/fittrack/fittrack/internal/push"
	"github.com/fittrack/fittrack/internal/reporting"
	"github.com/fittrack/fittrack/internal/schedule"
	"github.com/fittrack/fittrack/internal/settings"
	"github.com/fittrack/fittrack/internal/telemetry/metrics"
	"github.com/fittrack/fittrack/internal/telemetry/tracing"
	"github.com/fittrack/fittrack/internal/user"
	"github.com/fittrack/fittrack/internal/workout"
	"github.com/fittrack/fittrack/pkg"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config *config.Config
	dbPool *pgxpool.Pool

	redisClient *redis.Client
	authService *auth.Service

	wsHub               *push.Hub
	notificationService *notifications.Service
	sweeper             *notifications.Sweeper
	planGenerator       *aigen.Service

	// telemetry
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	JWTSecret               string
	RedisPassword           string
	LLMAPIKey               string
	VersionInfo             string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         params.Config.PostgresHost,
		DBPort:         params.Config.PostgresPort,
		DBName:         params.Config.PostgresDBName,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	if err := db.Migrate(ctx, dbPool); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": params.Config.PostgresDBName},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("fittrack", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(params.Config.RedisHost, params.Config.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	authService := auth.NewService([]byte(params.JWTSecret), auth.DefaultTTL, rdb)

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "fittrack-backend")
	if err != nil {
		return nil, err
	}

	wsHub := push.NewHub(metricsManager)
	notificationService := notifications.NewService(
		notifications.NewRepo(dbPool),
		wsHub,
		metricsManager,
	)

	sweeper := notifications.NewSweeper(notifications.NewSweeperParams{
		Schedules:      schedule.NewRepo(dbPool),
		Guards:         notifications.NewRepo(dbPool),
		Completions:    enrollment.NewRepo(dbPool),
		Notifier:       notificationService,
		MetricsManager: metricsManager,
		Interval:       time.Duration(params.Config.SweepIntervalSeconds) * time.Second,
		Lookahead:      time.Duration(params.Config.ReminderLookaheadMinutes) * time.Minute,
		MissedGrace:    time.Duration(params.Config.ScheduleMissedGraceMinutes) * time.Minute,
	})

	planGenerator := aigen.NewService(
		aigen.NewClient(params.Config.LLMBaseURL, params.LLMAPIKey, params.Config.LLMModel),
		workout.NewRepo(dbPool),
		exercise.NewRepo(dbPool),
		notificationService,
	)

	return &Server{
		versionInfo: params.VersionInfo,
		config:      params.Config,
		dbPool:      dbPool,

		redisClient: rdb,
		authService: authService,

		wsHub:               wsHub,
		notificationService: notificationService,
		sweeper:             sweeper,
		planGenerator:       planGenerator,

		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	r.HandleFunc("/", s.handleRoot).Methods("GET", "OPTIONS")
	r.HandleFunc("/version", s.handleVersion).Methods("GET", "OPTIONS")

	settingsRepo := settings.NewRepo(s.dbPool)
	userHandler := user.NewHandler(
		user.NewRepo(s.dbPool),
		settingsRepo,
		s.authService,
		s.notificationService,
		s.metricsManager,
	)
	r.HandleFunc("/auth/register", userHandler.HandleRegister).Methods("POST", "OPTIONS").Name("register")
	r.HandleFunc("/auth/logout", userHandler.HandleLogout).Methods("POST", "OPTIONS").Name("logout")
	r.HandleFunc("/api/me", userHandler.HandleMe).Methods("GET", "OPTIONS").Name("get-me")
	r.HandleFunc("/api/me", userHandler.HandleUpdateMe).Methods("PUT", "OPTIONS").Name("update-me")

	loginRateLimiter := redis_rate.NewLimiter(s.redisClient)
	r.Handle("/auth/login", middleware.RateLimit(
		loginRateLimiter,
		"login",
		s.config.LoginRateLimitAllowedPerMin,
		s.metricsManager,
	)(http.HandlerFunc(userHandler.HandleLogin))).Methods("POST", "OPTIONS").Name("login")

	exerciseHandler := exercise.NewHandler(exercise.NewRepo(s.dbPool))
	r.HandleFunc("/api/exercises", exerciseHandler.HandleList).Methods("GET", "OPTIONS").Name("list-exercises")
	r.HandleFunc("/api/exercises/{id}", exerciseHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-exercise")

	workoutRepo := workout.NewRepo(s.dbPool)
	workoutHandler := workout.NewHandler(workoutRepo, s.notificationService)
	r.HandleFunc("/api/workouts", workoutHandler.HandleListPlans).Methods("GET", "OPTIONS").Name("list-workouts")
	r.HandleFunc("/api/workouts/{id}", workoutHandler.HandleGetPlan).Methods("GET", "OPTIONS").Name("get-workout")

	enrollmentRepo := enrollment.NewRepo(s.dbPool)
	enrollmentService := enrollment.NewService(enrollmentRepo, workoutRepo, s.notificationService)
	enrollmentHandler := enrollment.NewHandler(enrollmentService, s.metricsManager)
	r.HandleFunc("/api/addWorkoutToActive/{id}", enrollmentHandler.HandleEnroll).Methods("POST", "OPTIONS").Name("enroll")
	r.HandleFunc("/api/deleteUserWorkout/{id}", enrollmentHandler.HandleRemove).Methods("DELETE", "OPTIONS").Name("remove-enrollment")
	r.HandleFunc("/api/user-workouts/active", enrollmentHandler.HandleListActive).Methods("GET", "OPTIONS").Name("active-enrollments")
	r.HandleFunc("/api/user-workouts/completed", enrollmentHandler.HandleListCompleted).Methods("GET", "OPTIONS").Name("completed-enrollments")
	r.HandleFunc("/api/user-workouts/{id}/complete-day", enrollmentHandler.HandleCompleteDay).Methods("POST", "OPTIONS").Name("complete-day")
	r.HandleFunc("/api/user-workouts/{id}/restart", enrollmentHandler.HandleRestart).Methods("POST", "OPTIONS").Name("restart-enrollment")

	scheduleService := schedule.NewService(
		schedule.NewRepo(s.dbPool),
		enrollmentRepo,
		workoutRepo,
		enrollmentService,
	)
	scheduleHandler := schedule.NewHandler(scheduleService)
	r.HandleFunc("/api/workout-schedules", scheduleHandler.HandleSchedule).Methods("POST", "OPTIONS").Name("schedule-workout")
	r.HandleFunc("/api/workout-schedules/date/{date}", scheduleHandler.HandleListForDate).Methods("GET", "OPTIONS").Name("schedules-for-date")
	r.HandleFunc("/api/workout-schedules/upcoming", scheduleHandler.HandleListUpcoming).Methods("GET", "OPTIONS").Name("upcoming-schedules")
	r.HandleFunc("/api/workout-schedules/{id}/status", scheduleHandler.HandleUpdateStatus).Methods("PATCH", "OPTIONS").Name("update-schedule-status")
	r.HandleFunc("/api/workout-schedules/{id}", scheduleHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-schedule")

	notificationsHandler := notifications.NewHandler(s.notificationService)
	r.HandleFunc("/api/notifications", notificationsHandler.HandleList).Methods("GET", "OPTIONS").Name("list-notifications")
	r.HandleFunc("/api/notifications/read-all", notificationsHandler.HandleMarkAllRead).Methods("PATCH", "OPTIONS").Name("read-all-notifications")
	r.HandleFunc("/api/notifications/{id}/read", notificationsHandler.HandleMarkRead).Methods("PATCH", "OPTIONS").Name("read-notification")
	r.HandleFunc("/api/notifications/{id}", notificationsHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-notification")

	wsHandler := push.NewHandler(s.wsHub)
	r.HandleFunc("/ws", wsHandler.HandleWS).Methods("GET").Name("ws")

	s.adminRouterSetup(
		r,
		userHandler,
		settings.NewHandler(settingsRepo),
		exerciseHandler,
		workoutHandler,
		notificationsHandler,
	)

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.authService)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors())
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) adminRouterSetup(
	r *mux.Router,
	userHandler *user.Handler,
	settingsHandler *settings.Handler,
	exerciseHandler *exercise.Handler,
	workoutHandler *workout.Handler,
	notificationsHandler *notifications.Handler,
) {
	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.Use(middleware.RequireAdmin())

	reportingHandler := reporting.NewHandler(reporting.NewService(reporting.NewRepo(s.dbPool)))

	// fixed paths first, {id} routes would swallow them otherwise
	admin.HandleFunc("/users/growth", reportingHandler.HandleUserGrowth).Methods("GET", "OPTIONS").Name("admin-user-growth")
	admin.HandleFunc("/activities", reportingHandler.HandleRecentActivities).Methods("GET", "OPTIONS").Name("admin-activities")
	admin.HandleFunc("/workouts/popular", reportingHandler.HandlePopularPlans).Methods("GET", "OPTIONS").Name("admin-popular-workouts")

	admin.HandleFunc("/users", userHandler.HandleList).Methods("GET", "OPTIONS").Name("admin-list-users")
	admin.HandleFunc("/users/{id}/role", userHandler.HandleUpdateRole).Methods("PATCH", "OPTIONS").Name("admin-update-role")
	admin.HandleFunc("/users/{id}", userHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("admin-delete-user")

	admin.HandleFunc("/settings", settingsHandler.HandleGet).Methods("GET", "OPTIONS").Name("admin-get-settings")
	admin.HandleFunc("/settings", settingsHandler.HandleUpdate).Methods("PUT", "OPTIONS").Name("admin-update-settings")

	admin.HandleFunc("/exercises", exerciseHandler.HandleListAll).Methods("GET", "OPTIONS").Name("admin-list-exercises")
	admin.HandleFunc("/exercises", exerciseHandler.HandleAdd).Methods("POST", "OPTIONS").Name("admin-add-exercise")
	admin.HandleFunc("/exercises/{id}", exerciseHandler.HandleUpdate).Methods("PUT", "OPTIONS").Name("admin-update-exercise")
	admin.HandleFunc("/exercises/{id}", exerciseHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("admin-delete-exercise")

	admin.HandleFunc("/workouts/generate", aigen.NewHandler(s.planGenerator).HandleGenerate).Methods("POST", "OPTIONS").Name("admin-generate-workout")
	admin.HandleFunc("/workouts", workoutHandler.HandleListAllPlans).Methods("GET", "OPTIONS").Name("admin-list-workouts")
	admin.HandleFunc("/workouts", workoutHandler.HandleAddPlan).Methods("POST", "OPTIONS").Name("admin-add-workout")
	admin.HandleFunc("/workouts/{id}", workoutHandler.HandleUpdatePlan).Methods("PUT", "OPTIONS").Name("admin-update-workout")
	admin.HandleFunc("/workouts/{id}", workoutHandler.HandleDeletePlan).Methods("DELETE", "OPTIONS").Name("admin-delete-workout")
	admin.HandleFunc("/workouts/{id}/days", workoutHandler.HandleAddDay).Methods("POST", "OPTIONS").Name("admin-add-workout-day")
	admin.HandleFunc("/workout-days/{id}", workoutHandler.HandleDeleteDay).Methods("DELETE", "OPTIONS").Name("admin-delete-workout-day")
	admin.HandleFunc("/workout-days/{id}/exercises", workoutHandler.HandleAddDayExercise).Methods("POST", "OPTIONS").Name("admin-add-day-exercise")
	admin.HandleFunc("/workout-day-exercises/{id}", workoutHandler.HandleRemoveDayExercise).Methods("DELETE", "OPTIONS").Name("admin-remove-day-exercise")

	admin.HandleFunc("/notifications", notificationsHandler.HandleListForAdmin).Methods("GET", "OPTIONS").Name("admin-list-notifications")
	admin.HandleFunc("/notifications/read-all", notificationsHandler.HandleMarkAllReadAdmin).Methods("PATCH", "OPTIONS").Name("admin-read-all-notifications")
	admin.HandleFunc("/notifications/{id}/read", notificationsHandler.HandleMarkReadAdmin).Methods("PATCH", "OPTIONS").Name("admin-read-notification")
	admin.HandleFunc("/notifications/{id}", notificationsHandler.HandleDeleteAdmin).Methods("DELETE", "OPTIONS").Name("admin-delete-notification")
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, "FitTrack backend")
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, s.versionInfo)
}

func (s *Server) Serve(ctx context.Context, host string, port int) {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	go s.sweeper.Run(ctx)

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown http server")
	}
	log.Warnln("server shut down")

	if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown metrics http server")
	}
	log.Warnln("metrics server shut down")
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
