package notifications

import (
	"strconv"
	"time"
)

const (
	AudienceUser  = "user"
	AudienceAdmin = "admin"

	TypeWorkoutReminder = "workout_reminder"
	TypeAchievement     = "achievement"

	EventNewNotification   = "new-notification"
	EventAdminNotification = "admin-notification"

	AdminRoom = "admin-channel"
)

type Notification struct {
	ID          int64     `json:"id"`
	UserID      *int64    `json:"userId,omitempty"`
	Audience    string    `json:"audience"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Type        string    `json:"type"`
	Read        bool      `json:"read"`
	RelatedID   *int64    `json:"relatedId,omitempty"`
	RelatedType *string   `json:"relatedType,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`

	// humanized, computed at read time
	TimeAgo string `json:"timeAgo,omitempty"`
}

// Publisher pushes a payload to every client subscribed to a room.
// Delivery is fire and forget: missed pushes are fine, the persisted
// row is the source of truth.
type Publisher interface {
	Publish(room, event string, payload interface{})
}

// NoopPublisher stands in when no real-time channel is wired up, for
// example in tests or tools.
type NoopPublisher struct{}

func (NoopPublisher) Publish(_, _ string, _ interface{}) {}

// UserRoom names the per-user push room.
func UserRoom(userID int64) string {
	return "user-" + strconv.FormatInt(userID, 10)
}
