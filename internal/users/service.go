package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/agrimarket/agrimarket-backend/pkg/config"
	"github.com/agrimarket/agrimarket-backend/pkg/db/models"
	pkgerrors "github.com/agrimarket/agrimarket-backend/pkg/errors"
	"github.com/agrimarket/agrimarket-backend/pkg/security"
	"github.com/agrimarket/agrimarket-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service defines profile and account operations.
type Service interface {
	Profile(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, input UpdateProfileInput) (*models.User, error)
	ChangePassword(ctx context.Context, input ChangePasswordInput) error
	AddAddress(ctx context.Context, input AddressInput) (*models.User, error)
	UpdateAddress(ctx context.Context, input AddressInput) (*models.User, error)
	DeleteAddress(ctx context.Context, userID, addressID uuid.UUID) (*models.User, error)
	SetDefaultAddress(ctx context.Context, userID, addressID uuid.UUID) (*models.User, error)
	SavePushToken(ctx context.Context, userID uuid.UUID, token string) error
	DeleteAccount(ctx context.Context, userID uuid.UUID) error
}

// UpdateProfileInput carries the mutable profile fields.
type UpdateProfileInput struct {
	UserID    uuid.UUID
	FirstName string
	LastName  string
	Country   string
}

// ChangePasswordInput requires proof of the current password.
type ChangePasswordInput struct {
	UserID      uuid.UUID
	OldPassword string
	NewPassword string
}

// AddressInput adds or updates an address book entry.
type AddressInput struct {
	UserID    uuid.UUID
	AddressID uuid.UUID
	Title     string
	Address   string
	Default   bool
}

type service struct {
	repo Repository
	cfg  config.PasswordConfig
}

// NewService builds the users service.
func NewService(repo Repository, cfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo, cfg: cfg}, nil
}

func (s *service) Profile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.load(ctx, userID)
}

func (s *service) UpdateProfile(ctx context.Context, input UpdateProfileInput) (*models.User, error) {
	user, err := s.load(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	if v := strings.TrimSpace(input.FirstName); v != "" {
		user.FirstName = v
	}
	if v := strings.TrimSpace(input.LastName); v != "" {
		user.LastName = v
	}
	if v := strings.TrimSpace(input.Country); v != "" {
		user.Country = v
	}

	if err := s.repo.Save(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
	}
	return user, nil
}

func (s *service) ChangePassword(ctx context.Context, input ChangePasswordInput) error {
	user, err := s.load(ctx, input.UserID)
	if err != nil {
		return err
	}

	if user.PasswordHash == nil || !security.VerifyPassword(*user.PasswordHash, input.OldPassword) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "Current password is incorrect")
	}

	hash, err := security.HashPassword(input.NewPassword, s.cfg.BcryptCost)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid new password")
	}

	user.PasswordHash = &hash
	if err := s.repo.Save(ctx, user); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update password")
	}
	return nil
}

func (s *service) AddAddress(ctx context.Context, input AddressInput) (*models.User, error) {
	if strings.TrimSpace(input.Address) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address required")
	}
	user, err := s.load(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	entry := types.ShipAddress{
		ID:      uuid.New(),
		Title:   strings.TrimSpace(input.Title),
		Address: strings.TrimSpace(input.Address),
		Default: input.Default || len(user.ShipAddresses) == 0,
	}
	if entry.Default {
		user.ShipAddresses.ClearDefault()
	}
	user.ShipAddresses = append(user.ShipAddresses, entry)

	if err := s.repo.Save(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add address")
	}
	return user, nil
}

func (s *service) UpdateAddress(ctx context.Context, input AddressInput) (*models.User, error) {
	user, err := s.load(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	idx := indexOfAddress(user.ShipAddresses, input.AddressID)
	if idx < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}

	if v := strings.TrimSpace(input.Title); v != "" {
		user.ShipAddresses[idx].Title = v
	}
	if v := strings.TrimSpace(input.Address); v != "" {
		user.ShipAddresses[idx].Address = v
	}
	if input.Default {
		user.ShipAddresses.ClearDefault()
		user.ShipAddresses[idx].Default = true
	}

	if err := s.repo.Save(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update address")
	}
	return user, nil
}

func (s *service) DeleteAddress(ctx context.Context, userID, addressID uuid.UUID) (*models.User, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	idx := indexOfAddress(user.ShipAddresses, addressID)
	if idx < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}

	wasDefault := user.ShipAddresses[idx].Default
	user.ShipAddresses = append(user.ShipAddresses[:idx], user.ShipAddresses[idx+1:]...)
	if wasDefault && len(user.ShipAddresses) > 0 {
		user.ShipAddresses[0].Default = true
	}

	if err := s.repo.Save(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete address")
	}
	return user, nil
}

func (s *service) SetDefaultAddress(ctx context.Context, userID, addressID uuid.UUID) (*models.User, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	idx := indexOfAddress(user.ShipAddresses, addressID)
	if idx < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}

	user.ShipAddresses.ClearDefault()
	user.ShipAddresses[idx].Default = true

	if err := s.repo.Save(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set default address")
	}
	return user, nil
}

func (s *service) SavePushToken(ctx context.Context, userID uuid.UUID, token string) error {
	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		user.PushToken = nil
	} else {
		user.PushToken = &trimmed
	}

	if err := s.repo.Save(ctx, user); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save push token")
	}
	return nil
}

func (s *service) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.load(ctx, userID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete account")
	}
	return nil
}

func (s *service) load(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func indexOfAddress(list types.ShipAddressList, id uuid.UUID) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}
