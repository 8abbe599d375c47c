// Package store persists users, their Pro entitlement and the ids of
// webhook events that were already applied.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chilljobs-api/internal/apperr"
	"chilljobs-api/internal/domain/users"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the entitlement store handlers depend on.
type Store interface {
	CreateUser(ctx context.Context, u *users.User) error
	GetUserByID(ctx context.Context, id string) (*users.User, error)
	GetUserByEmail(ctx context.Context, email string) (*users.User, error)
	GetUserByGoogleSub(ctx context.Context, sub string) (*users.User, error)
	LinkGoogle(ctx context.Context, userID, sub string) error
	ListUsers(ctx context.Context) ([]users.User, error)
	SetCustomerID(ctx context.Context, userID, customerID string) error

	// Upgrade and Downgrade report whether a user row matched. A miss is
	// not an error: webhooks for unknown users must be acknowledged.
	// Upgrade returns a Conflict error when customerRef is already stored on
	// a different account.
	Upgrade(ctx context.Context, email, customerRef string) (bool, error)
	Downgrade(ctx context.Context, ref string) (bool, error)
	ExtendByCustomer(ctx context.Context, customerRef string, until time.Time) (bool, error)

	EventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) (bool, error)
}

type GormStore struct {
	db          *gorm.DB
	proDuration time.Duration
	now         func() time.Time
}

func New(db *gorm.DB, proDuration time.Duration) *GormStore {
	if proDuration <= 0 {
		proDuration = 30 * 24 * time.Hour
	}
	return &GormStore{db: db, proDuration: proDuration, now: time.Now}
}

// WithClock replaces the time source.
func (s *GormStore) WithClock(now func() time.Time) *GormStore {
	s.now = now
	return s
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *GormStore) CreateUser(ctx context.Context, u *users.User) error {
	u.Email = NormalizeEmail(u.Email)
	if u.Email == "" {
		return apperr.New(apperr.Validation, "email is required")
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.AuthProvider == "" {
		u.AuthProvider = users.ProviderLocal
	}

	if _, err := s.GetUserByEmail(ctx, u.Email); err == nil {
		return apperr.New(apperr.Conflict, "User already exists")
	} else if !apperr.Is(err, apperr.NotFound) {
		return err
	}

	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.E(apperr.Conflict, "User already exists", err)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *GormStore) first(ctx context.Context, query string, arg any) (*users.User, error) {
	var u users.User
	err := s.db.WithContext(ctx).Where(query, arg).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.E(apperr.NotFound, "User not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &u, nil
}

func (s *GormStore) GetUserByID(ctx context.Context, id string) (*users.User, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*users.User, error) {
	return s.first(ctx, "email = ?", NormalizeEmail(email))
}

func (s *GormStore) GetUserByGoogleSub(ctx context.Context, sub string) (*users.User, error) {
	return s.first(ctx, "google_sub = ?", sub)
}

func (s *GormStore) LinkGoogle(ctx context.Context, userID, sub string) error {
	return s.db.WithContext(ctx).Model(&users.User{}).
		Where("id = ?", userID).
		Update("google_sub", sub).Error
}

func (s *GormStore) ListUsers(ctx context.Context) ([]users.User, error) {
	var list []users.User
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return list, nil
}

func (s *GormStore) SetCustomerID(ctx context.Context, userID, customerID string) error {
	return s.db.WithContext(ctx).Model(&users.User{}).
		Where("id = ?", userID).
		Update("stripe_customer_id", customerID).Error
}

// Upgrade marks the user Pro for proDuration from now. An empty customerRef
// keeps whatever reference is already stored.
func (s *GormStore) Upgrade(ctx context.Context, email, customerRef string) (bool, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return false, apperr.New(apperr.Validation, "email is required")
	}

	expires := s.now().Add(s.proDuration)
	updates := map[string]interface{}{
		"is_pro":         true,
		"pro_expires_at": expires,
	}
	if customerRef != "" {
		owner, err := s.first(ctx, "stripe_customer_id = ?", customerRef)
		switch {
		case err == nil && owner.Email != email:
			return false, apperr.New(apperr.Conflict, "customer reference belongs to another account")
		case err != nil && !apperr.Is(err, apperr.NotFound):
			return false, err
		}
		updates["stripe_customer_id"] = customerRef
	}

	res := s.db.WithContext(ctx).Model(&users.User{}).
		Where("email = ?", email).
		Updates(updates)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return false, apperr.E(apperr.Conflict, "customer reference belongs to another account", res.Error)
		}
		return false, fmt.Errorf("upgrade %s: %w", email, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Downgrade accepts either a Stripe customer id or an email.
func (s *GormStore) Downgrade(ctx context.Context, ref string) (bool, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return false, apperr.New(apperr.Validation, "customer reference or email is required")
	}

	res := s.db.WithContext(ctx).Model(&users.User{}).
		Where("stripe_customer_id = ? OR email = ?", ref, NormalizeEmail(ref)).
		Updates(map[string]interface{}{
			"is_pro":         false,
			"pro_expires_at": nil,
		})
	if res.Error != nil {
		return false, fmt.Errorf("downgrade %s: %w", ref, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ExtendByCustomer moves the expiry of a Pro user. It never grants Pro: a
// renewal delivered after the subscription was deleted leaves a FREE user
// FREE.
func (s *GormStore) ExtendByCustomer(ctx context.Context, customerRef string, until time.Time) (bool, error) {
	if customerRef == "" {
		return false, nil
	}
	res := s.db.WithContext(ctx).Model(&users.User{}).
		Where("stripe_customer_id = ? AND is_pro = ?", customerRef, true).
		Update("pro_expires_at", until)
	if res.Error != nil {
		return false, fmt.Errorf("extend %s: %w", customerRef, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) EventProcessed(ctx context.Context, eventID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&users.ProcessedEvent{}).
		Where("event_id = ?", eventID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("lookup event %s: %w", eventID, err)
	}
	return n > 0, nil
}

// MarkEventProcessed returns false when the id was already recorded.
func (s *GormStore) MarkEventProcessed(ctx context.Context, eventID, eventType string) (bool, error) {
	ev := users.ProcessedEvent{EventID: eventID, EventType: eventType, ProcessedAt: s.now()}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&ev)
	if res.Error != nil {
		return false, fmt.Errorf("record event %s: %w", eventID, res.Error)
	}
	return res.RowsAffected > 0, nil
}
