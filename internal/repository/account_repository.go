package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"todo-assistant/internal/model"
)

// AccountRepository handles CRUD for accounts.
type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *model.Account) error {
	return translate("create account", r.db.WithContext(ctx).Create(account).Error)
}

func (r *AccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	var account model.Account
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		return nil, translate("find account", err)
	}
	return &account, nil
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	var account model.Account
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&account).Error; err != nil {
		return nil, translate("find account", err)
	}
	return &account, nil
}

// UpsertFromTelegram finds or creates the account bound to a Telegram user and refreshes its profile.
func (r *AccountRepository) UpsertFromTelegram(ctx context.Context, telegramID int64, firstName, username string) (*model.Account, error) {
	var account model.Account
	db := r.db.WithContext(ctx)
	err := db.Where("telegram_id = ?", telegramID).First(&account).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"first_name": firstName,
			"username":   username,
		}
		if err := db.Model(&account).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update account: %w", err)
		}
		return &account, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		account = model.Account{
			TelegramID: &telegramID,
			FirstName:  firstName,
			Username:   username,
			IsActive:   true,
		}
		if err := db.Create(&account).Error; err != nil {
			return nil, translate("create account", err)
		}
		return &account, nil
	default:
		return nil, fmt.Errorf("find account: %w", err)
	}
}

// ListTelegramLinked returns every active account reachable over Telegram.
func (r *AccountRepository) ListTelegramLinked(ctx context.Context) ([]model.Account, error) {
	var accounts []model.Account
	if err := r.db.WithContext(ctx).Where("telegram_id IS NOT NULL AND is_active = ?", true).
		Order("created_at ASC").Find(&accounts).Error; err != nil {
		return nil, translate("list accounts", err)
	}
	return accounts, nil
}
