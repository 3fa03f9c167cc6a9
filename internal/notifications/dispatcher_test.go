package notifications

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/agrimarket/agrimarket-backend/pkg/db/models"
	"github.com/agrimarket/agrimarket-backend/pkg/enums"
	"github.com/agrimarket/agrimarket-backend/pkg/expo"
	"github.com/agrimarket/agrimarket-backend/pkg/logger"
	"github.com/agrimarket/agrimarket-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

type fakeRepo struct {
	created []*models.Notification
	fail    bool
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(ctx context.Context, notification *models.Notification) (*models.Notification, error) {
	if f.fail {
		return nil, errors.New("insert failed")
	}
	f.created = append(f.created, notification)
	return notification, nil
}

func (f *fakeRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) ListByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Notification, error) {
	return nil, nil
}

func (f *fakeRepo) MarkRead(ctx context.Context, id uuid.UUID) error        { return nil }
func (f *fakeRepo) MarkAllRead(ctx context.Context, userID uuid.UUID) error { return nil }
func (f *fakeRepo) Delete(ctx context.Context, id uuid.UUID) error          { return nil }

type fakeRecipients struct {
	users map[uuid.UUID]*models.User
}

func (f *fakeRecipients) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

type fakePusher struct {
	sent []expo.Message
	err  error
}

func (f *fakePusher) Send(ctx context.Context, msg expo.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "notifications-test", Output: io.Discard})
}

func userWithToken(id uuid.UUID, token string) *models.User {
	user := &models.User{ID: id, FirstName: "Test", LastName: "User"}
	if token != "" {
		user.PushToken = &token
	}
	return user
}

func TestDispatchPersistsAndPushes(t *testing.T) {
	userID := uuid.New()
	repo := &fakeRepo{}
	pusher := &fakePusher{}
	dispatcher, err := NewDispatcher(repo, &fakeRecipients{
		users: map[uuid.UUID]*models.User{userID: userWithToken(userID, "ExponentPushToken[abc]")},
	}, pusher, testLogger())
	require.NoError(t, err)

	err = dispatcher.Dispatch(context.Background(), Event{
		UserID:  userID,
		Type:    enums.NotificationTypeOrderCreated,
		Title:   "New order",
		Message: "You have a new order.",
	})
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	require.Len(t, pusher.sent, 1)
	require.Equal(t, "ExponentPushToken[abc]", pusher.sent[0].To)
	require.Equal(t, "New order", pusher.sent[0].Title)
}

func TestDispatchSkipsPushWithoutToken(t *testing.T) {
	userID := uuid.New()
	repo := &fakeRepo{}
	pusher := &fakePusher{}
	dispatcher, err := NewDispatcher(repo, &fakeRecipients{
		users: map[uuid.UUID]*models.User{userID: userWithToken(userID, "")},
	}, pusher, testLogger())
	require.NoError(t, err)

	err = dispatcher.Dispatch(context.Background(), Event{
		UserID:  userID,
		Type:    enums.NotificationTypeGeneral,
		Title:   "t",
		Message: "m",
	})
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	require.Empty(t, pusher.sent)
}

func TestDispatchWithoutPusherOnlyPersists(t *testing.T) {
	userID := uuid.New()
	repo := &fakeRepo{}
	dispatcher, err := NewDispatcher(repo, &fakeRecipients{users: map[uuid.UUID]*models.User{}}, nil, testLogger())
	require.NoError(t, err)

	err = dispatcher.Dispatch(context.Background(), Event{
		UserID:  userID,
		Type:    enums.NotificationTypeGeneral,
		Title:   "t",
		Message: "m",
	})
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
}

func TestDispatchPushFailureStillPersists(t *testing.T) {
	okUser := uuid.New()
	badUser := uuid.New()
	repo := &fakeRepo{}
	pusher := &fakePusher{err: errors.New("expo unavailable")}
	dispatcher, err := NewDispatcher(repo, &fakeRecipients{
		users: map[uuid.UUID]*models.User{
			okUser:  userWithToken(okUser, ""),
			badUser: userWithToken(badUser, "ExponentPushToken[bad]"),
		},
	}, pusher, testLogger())
	require.NoError(t, err)

	err = dispatcher.Dispatch(context.Background(),
		Event{UserID: okUser, Type: enums.NotificationTypeGeneral, Title: "t", Message: "m"},
		Event{UserID: badUser, Type: enums.NotificationTypeGeneral, Title: "t", Message: "m"},
	)
	require.Error(t, err)
	require.Len(t, multierr.Errors(err), 1)
	// Both rows were written even though one push failed.
	require.Len(t, repo.created, 2)
}

func TestDispatchRejectsMissingUserID(t *testing.T) {
	repo := &fakeRepo{}
	dispatcher, err := NewDispatcher(repo, &fakeRecipients{users: map[uuid.UUID]*models.User{}}, nil, testLogger())
	require.NoError(t, err)

	err = dispatcher.Dispatch(context.Background(), Event{Title: "t", Message: "m"})
	require.Error(t, err)
	require.Empty(t, repo.created)
}
