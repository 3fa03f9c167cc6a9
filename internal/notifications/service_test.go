package notifications

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/agrimarket/agrimarket-backend/pkg/db/models"
	"github.com/agrimarket/agrimarket-backend/pkg/enums"
	pkgerrors "github.com/agrimarket/agrimarket-backend/pkg/errors"
	"github.com/agrimarket/agrimarket-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		read_at DATETIME,
		created_at DATETIME
	)`).Error)
	return db
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc, db
}

func seedNotification(t *testing.T, db *gorm.DB, userID uuid.UUID, createdAt time.Time) *models.Notification {
	t.Helper()
	notification := &models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      enums.NotificationTypeGeneral,
		Title:     "Update",
		Message:   "Something happened.",
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(notification).Error)
	return notification
}

func errCode(t *testing.T, err error) pkgerrors.Code {
	t.Helper()
	var typed *pkgerrors.Error
	require.True(t, pkgerrors.As(err, &typed), "expected domain error, got %v", err)
	return typed.Code()
}

func TestCreateDefaultsToGeneralType(t *testing.T) {
	svc, db := newTestService(t)
	userID := uuid.New()

	notification, err := svc.Create(context.Background(), CreateInput{
		UserID:  userID,
		Title:   "Welcome",
		Message: "Thanks for joining.",
	})
	require.NoError(t, err)
	require.Equal(t, enums.NotificationTypeGeneral, notification.Type)

	var stored models.Notification
	require.NoError(t, db.Where("id = ?", notification.ID).First(&stored).Error)
	require.Equal(t, userID, stored.UserID)
}

func TestCreateRejectsInvalidType(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), CreateInput{
		UserID:  uuid.New(),
		Type:    enums.NotificationType("spam"),
		Title:   "t",
		Message: "m",
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, errCode(t, err))
}

func TestListPaginatesWithCursor(t *testing.T) {
	svc, db := newTestService(t)
	userID := uuid.New()

	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedNotification(t, db, userID, base.Add(time.Duration(i)*time.Minute))
	}

	first, err := svc.List(context.Background(), userID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Notifications, 2)
	require.NotEmpty(t, first.NextCursor)
	// Newest first.
	require.True(t, first.Notifications[0].CreatedAt.After(first.Notifications[1].CreatedAt))

	second, err := svc.List(context.Background(), userID, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Notifications, 2)
	require.NotEmpty(t, second.NextCursor)

	third, err := svc.List(context.Background(), userID, pagination.Params{Limit: 2, Cursor: second.NextCursor})
	require.NoError(t, err)
	require.Len(t, third.Notifications, 1)
	require.Empty(t, third.NextCursor)

	seen := map[uuid.UUID]bool{}
	for _, page := range [][]models.Notification{first.Notifications, second.Notifications, third.Notifications} {
		for _, n := range page {
			require.False(t, seen[n.ID], "notification %s returned twice", n.ID)
			seen[n.ID] = true
		}
	}
	require.Len(t, seen, 5)
}

func TestListRejectsBadCursor(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.List(context.Background(), uuid.New(), pagination.Params{Cursor: "not-a-cursor"})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, errCode(t, err))
}

func TestMarkReadIsOwnerScoped(t *testing.T) {
	svc, db := newTestService(t)
	userID := uuid.New()
	notification := seedNotification(t, db, userID, time.Now().UTC())

	err := svc.MarkRead(context.Background(), uuid.New(), notification.ID)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeForbidden, errCode(t, err))

	require.NoError(t, svc.MarkRead(context.Background(), userID, notification.ID))

	var stored models.Notification
	require.NoError(t, db.Where("id = ?", notification.ID).First(&stored).Error)
	require.NotNil(t, stored.ReadAt)

	// Re-reading an already read notification is a no-op.
	require.NoError(t, svc.MarkRead(context.Background(), userID, notification.ID))
}

func TestMarkAllRead(t *testing.T) {
	svc, db := newTestService(t)
	userID := uuid.New()
	other := uuid.New()

	seedNotification(t, db, userID, time.Now().UTC())
	seedNotification(t, db, userID, time.Now().UTC())
	kept := seedNotification(t, db, other, time.Now().UTC())

	require.NoError(t, svc.MarkAllRead(context.Background(), userID))

	var unread int64
	require.NoError(t, db.Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&unread).Error)
	require.Zero(t, unread)

	var stored models.Notification
	require.NoError(t, db.Where("id = ?", kept.ID).First(&stored).Error)
	require.Nil(t, stored.ReadAt)
}

func TestDeleteNotification(t *testing.T) {
	svc, db := newTestService(t)
	userID := uuid.New()
	notification := seedNotification(t, db, userID, time.Now().UTC())

	err := svc.Delete(context.Background(), uuid.New(), notification.ID)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeForbidden, errCode(t, err))

	require.NoError(t, svc.Delete(context.Background(), userID, notification.ID))

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Where("id = ?", notification.ID).Count(&count).Error)
	require.Zero(t, count)
}
