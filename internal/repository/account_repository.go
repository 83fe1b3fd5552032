package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/example/inkpress/internal/apperr"
	"github.com/example/inkpress/internal/db"
	"github.com/example/inkpress/internal/models"
)

type AccountRepository struct{ db *gorm.DB }

func NewAccountRepository(db *gorm.DB) *AccountRepository { return &AccountRepository{db: db} }

func (r *AccountRepository) Create(ctx context.Context, a *models.Account) error {
	return translateAccountErr(r.db.WithContext(ctx).Create(a).Error)
}

func (r *AccountRepository) Save(ctx context.Context, a *models.Account) error {
	return translateAccountErr(r.db.WithContext(ctx).Save(a).Error)
}

func (r *AccountRepository) GetByID(ctx context.Context, id uint) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, id).Error; err != nil {
		return nil, translateAccountErr(err)
	}
	return &account, nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&account).Error; err != nil {
		return nil, translateAccountErr(err)
	}
	return &account, nil
}

func (r *AccountRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Account{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes the account row. Posts go with it through the
// ON DELETE CASCADE foreign key.
func (r *AccountRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Account{}, id).Error
}

func translateAccountErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.New(apperr.CodeNotFound, "account not found")
	case db.IsUniqueViolation(err):
		return apperr.Wrap(apperr.CodeConflict, "email already registered", err)
	}
	return err
}
