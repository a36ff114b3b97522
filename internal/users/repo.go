// Package users resolves the phone-number identity carried on every order request.
package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harvestlink/market-backend/pkg/db/models"
	"github.com/harvestlink/market-backend/pkg/enums"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Resolve maps an active user's phone to their id. Unknown, blank or deactivated phones
// report found=false without an error.
func (r *Repository) Resolve(ctx context.Context, phone string) (uuid.UUID, bool, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return uuid.Nil, false, nil
	}
	var user models.User
	err := r.db.WithContext(ctx).
		Select("id").
		Where("phone = ? AND is_active = ?", phone, true).
		Take(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return uuid.Nil, false, nil
	case err != nil:
		return uuid.Nil, false, err
	}
	return user.ID, true, nil
}

func (r *Repository) HasRole(ctx context.Context, userID uuid.UUID, role enums.UserRole) (bool, error) {
	var found []models.UserRole
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND role = ?", userID, role).
		Limit(1).
		Find(&found).Error
	return len(found) > 0, err
}
