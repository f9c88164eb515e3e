package persistence

import (
	"context"
	"errors"
	"strings"

	"ChatNest/internal/modules/account/domain/entity"
	"ChatNest/internal/modules/account/domain/repository"

	"gorm.io/gorm"
)

type accountRepositoryImpl struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) repository.AccountRepository {
	return &accountRepositoryImpl{db: db}
}

func (r *accountRepositoryImpl) CreateAccount(ctx context.Context, account *entity.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *accountRepositoryImpl) GetByUsername(ctx context.Context, username string) (*entity.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, nil
	}

	var account entity.Account
	err := r.db.WithContext(ctx).Where("username = ?", username).Take(&account).Error
	if err == nil {
		return &account, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}
