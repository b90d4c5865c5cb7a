package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotificationNotFound = errors.New("notification not found")

const selectNotification = `
	SELECT id, user_id, audience, title, message, type, read, related_id, related_type, created_at
	FROM notification`

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Create(ctx context.Context, n Notification) (*Notification, error) {
	rows, err := r.db.Query(
		ctx,
		`INSERT INTO notification
				(user_id, audience, title, message, type, read, related_id, related_type)
				VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7)
			RETURNING id, created_at;`,
		n.UserID, n.Audience, n.Title, n.Message, n.Type, n.RelatedID, n.RelatedType,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, errors.New("unexpected error [no rows next]")
	}

	n.Read = false
	if err := rows.Scan(&n.ID, &n.CreatedAt); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	return &n, nil
}

func (r *Repo) ListForUser(ctx context.Context, userID int64, page, size int) ([]Notification, error) {
	if page < 1 {
		page = 1
	}
	rows, err := r.db.Query(
		ctx,
		selectNotification+` WHERE user_id = $1 AND audience = $2
			ORDER BY created_at DESC
			LIMIT $3 OFFSET $4;`,
		userID, AudienceUser, size, (page-1)*size,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return allNotifications(rows)
}

func (r *Repo) ListForAdmin(ctx context.Context) ([]Notification, error) {
	rows, err := r.db.Query(
		ctx,
		selectNotification+` WHERE audience = $1 ORDER BY created_at DESC;`,
		AudienceAdmin,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return allNotifications(rows)
}

// MarkRead flips the read flag on a user-owned notification.
func (r *Repo) MarkRead(ctx context.Context, id, userID int64) error {
	tag, err := r.db.Exec(
		ctx,
		`UPDATE notification SET read = TRUE WHERE id = $1 AND user_id = $2 AND audience = $3;`,
		id, userID, AudienceUser,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *Repo) MarkReadAdmin(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(
		ctx,
		`UPDATE notification SET read = TRUE WHERE id = $1 AND audience = $2;`,
		id, AudienceAdmin,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *Repo) MarkAllReadForUser(ctx context.Context, userID int64) (int64, error) {
	tag, err := r.db.Exec(
		ctx,
		`UPDATE notification SET read = TRUE WHERE user_id = $1 AND audience = $2 AND read = FALSE;`,
		userID, AudienceUser,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *Repo) MarkAllReadForAdmin(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(
		ctx,
		`UPDATE notification SET read = TRUE WHERE audience = $1 AND read = FALSE;`,
		AudienceAdmin,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *Repo) Delete(ctx context.Context, id, userID int64) error {
	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM notification WHERE id = $1 AND user_id = $2 AND audience = $3;`,
		id, userID, AudienceUser,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *Repo) DeleteAdmin(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM notification WHERE id = $1 AND audience = $2;`,
		id, AudienceAdmin,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// ReminderExists reports whether a workout reminder was already
// created for the given schedule entry. The idempotence guard for
// the reminder sweep.
func (r *Repo) ReminderExists(ctx context.Context, scheduleID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(
		ctx,
		`SELECT EXISTS (
			SELECT 1 FROM notification
			WHERE related_id = $1 AND related_type = 'WorkoutSchedule' AND type = $2
		);`,
		scheduleID, TypeWorkoutReminder,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// HighestMilestone returns the per-user achievement high-water mark,
// zero when never set.
func (r *Repo) HighestMilestone(ctx context.Context, userID int64) (int, error) {
	var milestone int
	err := r.db.QueryRow(
		ctx,
		`SELECT COALESCE(
			(SELECT highest_milestone FROM notification_milestone WHERE user_id = $1), 0
		);`,
		userID,
	).Scan(&milestone)
	if err != nil {
		return 0, err
	}
	return milestone, nil
}

func (r *Repo) SetHighestMilestone(ctx context.Context, userID int64, milestone int) error {
	_, err := r.db.Exec(
		ctx,
		`INSERT INTO notification_milestone (user_id, highest_milestone, updated_at)
				VALUES ($1, $2, now())
			ON CONFLICT (user_id) DO UPDATE
				SET highest_milestone = EXCLUDED.highest_milestone, updated_at = now();`,
		userID, milestone,
	)
	return err
}

func allNotifications(rows pgx.Rows) ([]Notification, error) {
	if err := rows.Err(); err != nil {
		return nil, err
	}

	notifs := make([]Notification, 0)
	for rows.Next() {
		var n Notification
		if err := rows.Scan(
			&n.ID, &n.UserID, &n.Audience, &n.Title, &n.Message, &n.Type,
			&n.Read, &n.RelatedID, &n.RelatedType, &n.CreatedAt,
		); err != nil {
			return nil, err
		}
		notifs = append(notifs, n)
	}
	return notifs, nil
}
