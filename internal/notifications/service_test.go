package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/fittrack/fittrack/internal/telemetry/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotificationsRepo struct {
	notifications map[int64]*Notification
	nextID        int64
}

func newFakeNotificationsRepo() *fakeNotificationsRepo {
	return &fakeNotificationsRepo{notifications: map[int64]*Notification{}, nextID: 1}
}

func (f *fakeNotificationsRepo) Create(_ context.Context, n Notification) (*Notification, error) {
	n.ID = f.nextID
	n.Read = false
	n.CreatedAt = time.Now()
	f.nextID++
	f.notifications[n.ID] = &n
	copied := n
	return &copied, nil
}

func (f *fakeNotificationsRepo) ListForUser(_ context.Context, userID int64, _, _ int) ([]Notification, error) {
	notifs := make([]Notification, 0)
	for _, n := range f.notifications {
		if n.Audience == AudienceUser && n.UserID != nil && *n.UserID == userID {
			notifs = append(notifs, *n)
		}
	}
	return notifs, nil
}

func (f *fakeNotificationsRepo) ListForAdmin(_ context.Context) ([]Notification, error) {
	notifs := make([]Notification, 0)
	for _, n := range f.notifications {
		if n.Audience == AudienceAdmin {
			notifs = append(notifs, *n)
		}
	}
	return notifs, nil
}

func (f *fakeNotificationsRepo) MarkRead(_ context.Context, id, userID int64) error {
	n, ok := f.notifications[id]
	if !ok || n.UserID == nil || *n.UserID != userID {
		return ErrNotificationNotFound
	}
	n.Read = true
	return nil
}

func (f *fakeNotificationsRepo) MarkReadAdmin(_ context.Context, id int64) error {
	n, ok := f.notifications[id]
	if !ok || n.Audience != AudienceAdmin {
		return ErrNotificationNotFound
	}
	n.Read = true
	return nil
}

func (f *fakeNotificationsRepo) MarkAllReadForUser(_ context.Context, userID int64) (int64, error) {
	var updated int64
	for _, n := range f.notifications {
		if n.Audience == AudienceUser && n.UserID != nil && *n.UserID == userID && !n.Read {
			n.Read = true
			updated++
		}
	}
	return updated, nil
}

func (f *fakeNotificationsRepo) MarkAllReadForAdmin(_ context.Context) (int64, error) {
	var updated int64
	for _, n := range f.notifications {
		if n.Audience == AudienceAdmin && !n.Read {
			n.Read = true
			updated++
		}
	}
	return updated, nil
}

func (f *fakeNotificationsRepo) Delete(_ context.Context, id, userID int64) error {
	n, ok := f.notifications[id]
	if !ok || n.UserID == nil || *n.UserID != userID {
		return ErrNotificationNotFound
	}
	delete(f.notifications, id)
	return nil
}

func (f *fakeNotificationsRepo) DeleteAdmin(_ context.Context, id int64) error {
	n, ok := f.notifications[id]
	if !ok || n.Audience != AudienceAdmin {
		return ErrNotificationNotFound
	}
	delete(f.notifications, id)
	return nil
}

type publishedEvent struct {
	room  string
	event string
}

type recordingPublisher struct {
	published []publishedEvent
}

func (r *recordingPublisher) Publish(room, event string, _ interface{}) {
	r.published = append(r.published, publishedEvent{room, event})
}

func TestNotifyUser_PersistsAndPushes(t *testing.T) {
	repo := newFakeNotificationsRepo()
	publisher := &recordingPublisher{}
	svc := NewService(repo, publisher, metrics.NewTestManager())
	ctx := context.Background()

	require.NoError(t, svc.NotifyUser(ctx, 5, "Workout reminder", "Foundation - Day 3 at 18:00", TypeWorkoutReminder, 1, "WorkoutSchedule"))

	require.Len(t, publisher.published, 1)
	assert.Equal(t, "user-5", publisher.published[0].room)
	assert.Equal(t, EventNewNotification, publisher.published[0].event)

	notifs, err := svc.ListForUser(ctx, 5, 1, 10)
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	assert.False(t, notifs[0].Read)
	assert.Equal(t, "just now", notifs[0].TimeAgo)
	require.NotNil(t, notifs[0].RelatedID)
	assert.Equal(t, int64(1), *notifs[0].RelatedID)
}

func TestNotifyAdmin_GoesToAdminRoom(t *testing.T) {
	repo := newFakeNotificationsRepo()
	publisher := &recordingPublisher{}
	svc := NewService(repo, publisher, metrics.NewTestManager())
	ctx := context.Background()

	require.NoError(t, svc.NotifyAdmin(ctx, "New user registered", "someone joined", "new_user", 3, "User"))

	require.Len(t, publisher.published, 1)
	assert.Equal(t, AdminRoom, publisher.published[0].room)
	assert.Equal(t, EventAdminNotification, publisher.published[0].event)

	notifs, err := svc.ListForAdmin(ctx)
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	assert.Nil(t, notifs[0].UserID)
}

func TestMarkReadAndDelete_OwnerScoped(t *testing.T) {
	repo := newFakeNotificationsRepo()
	svc := NewService(repo, NoopPublisher{}, metrics.NewTestManager())
	ctx := context.Background()

	require.NoError(t, svc.NotifyUser(ctx, 5, "t", "m", "x", 0, ""))

	// another user cannot touch it
	assert.ErrorIs(t, svc.MarkRead(ctx, 1, 6), ErrNotificationNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, 1, 6), ErrNotificationNotFound)

	require.NoError(t, svc.MarkRead(ctx, 1, 5))
	notifs, err := svc.ListForUser(ctx, 5, 1, 10)
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	assert.True(t, notifs[0].Read)

	require.NoError(t, svc.Delete(ctx, 1, 5))
	notifs, err = svc.ListForUser(ctx, 5, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, notifs)
}

func TestMarkAllRead(t *testing.T) {
	repo := newFakeNotificationsRepo()
	svc := NewService(repo, NoopPublisher{}, metrics.NewTestManager())
	ctx := context.Background()

	require.NoError(t, svc.NotifyUser(ctx, 5, "a", "m", "x", 0, ""))
	require.NoError(t, svc.NotifyUser(ctx, 5, "b", "m", "x", 0, ""))
	require.NoError(t, svc.NotifyUser(ctx, 6, "c", "m", "x", 0, ""))

	updated, err := svc.MarkAllRead(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	// user 6 untouched
	notifs, err := svc.ListForUser(ctx, 6, 1, 10)
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	assert.False(t, notifs[0].Read)
}
