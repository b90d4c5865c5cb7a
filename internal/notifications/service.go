package notifications

import (
	"context"
	"time"

	"github.com/fittrack/fittrack/internal/telemetry/metrics"
	"github.com/fittrack/fittrack/internal/telemetry/tracing"
	"github.com/fittrack/fittrack/pkg"
)

type notificationsRepo interface {
	Create(ctx context.Context, n Notification) (*Notification, error)
	ListForUser(ctx context.Context, userID int64, page, size int) ([]Notification, error)
	ListForAdmin(ctx context.Context) ([]Notification, error)
	MarkRead(ctx context.Context, id, userID int64) error
	MarkReadAdmin(ctx context.Context, id int64) error
	MarkAllReadForUser(ctx context.Context, userID int64) (int64, error)
	MarkAllReadForAdmin(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id, userID int64) error
	DeleteAdmin(ctx context.Context, id int64) error
}

// Service persists notifications and pushes them to connected
// clients. The publisher is an injected dependency so callers are
// never coupled to the websocket hub (tests use NoopPublisher).
type Service struct {
	repo           notificationsRepo
	publisher      Publisher
	metricsManager *metrics.Manager

	now func() time.Time
}

func NewService(repo notificationsRepo, publisher Publisher, metricsManager *metrics.Manager) *Service {
	return &Service{
		repo:           repo,
		publisher:      publisher,
		metricsManager: metricsManager,
		now:            time.Now,
	}
}

// NotifyUser persists a user-scoped notification and pushes it to
// the user's room.
func (s *Service) NotifyUser(
	ctx context.Context,
	userID int64,
	title, message, ntype string,
	relatedID int64, relatedType string,
) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "notifications.notifyuser")
	defer span.End()

	n := Notification{
		UserID:   &userID,
		Audience: AudienceUser,
		Title:    title,
		Message:  message,
		Type:     ntype,
	}
	if relatedID != 0 {
		n.RelatedID = &relatedID
		n.RelatedType = &relatedType
	}

	created, err := s.repo.Create(ctx, n)
	if err != nil {
		return err
	}

	s.metricsManager.CounterNotificationsSent.Inc()
	created.TimeAgo = pkg.TimeAgo(created.CreatedAt, s.now())
	s.publisher.Publish(UserRoom(userID), EventNewNotification, created)
	return nil
}

// NotifyAdmin persists an admin-scoped notification and pushes it to
// the shared admin room.
func (s *Service) NotifyAdmin(
	ctx context.Context,
	title, message, ntype string,
	relatedID int64, relatedType string,
) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "notifications.notifyadmin")
	defer span.End()

	n := Notification{
		Audience: AudienceAdmin,
		Title:    title,
		Message:  message,
		Type:     ntype,
	}
	if relatedID != 0 {
		n.RelatedID = &relatedID
		n.RelatedType = &relatedType
	}

	created, err := s.repo.Create(ctx, n)
	if err != nil {
		return err
	}

	s.metricsManager.CounterNotificationsSent.Inc()
	created.TimeAgo = pkg.TimeAgo(created.CreatedAt, s.now())
	s.publisher.Publish(AdminRoom, EventAdminNotification, created)
	return nil
}

func (s *Service) ListForUser(ctx context.Context, userID int64, page, size int) ([]Notification, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "notifications.listforuser")
	defer span.End()

	notifs, err := s.repo.ListForUser(ctx, userID, page, size)
	if err != nil {
		return nil, err
	}
	s.annotate(notifs)
	return notifs, nil
}

func (s *Service) ListForAdmin(ctx context.Context) ([]Notification, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "notifications.listforadmin")
	defer span.End()

	notifs, err := s.repo.ListForAdmin(ctx)
	if err != nil {
		return nil, err
	}
	s.annotate(notifs)
	return notifs, nil
}

func (s *Service) MarkRead(ctx context.Context, id, userID int64) error {
	return s.repo.MarkRead(ctx, id, userID)
}

func (s *Service) MarkReadAdmin(ctx context.Context, id int64) error {
	return s.repo.MarkReadAdmin(ctx, id)
}

func (s *Service) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return s.repo.MarkAllReadForUser(ctx, userID)
}

func (s *Service) MarkAllReadAdmin(ctx context.Context) (int64, error) {
	return s.repo.MarkAllReadForAdmin(ctx)
}

func (s *Service) Delete(ctx context.Context, id, userID int64) error {
	return s.repo.Delete(ctx, id, userID)
}

func (s *Service) DeleteAdmin(ctx context.Context, id int64) error {
	return s.repo.DeleteAdmin(ctx, id)
}

func (s *Service) annotate(notifs []Notification) {
	now := s.now()
	for i := range notifs {
		notifs[i].TimeAgo = pkg.TimeAgo(notifs[i].CreatedAt, now)
	}
}
