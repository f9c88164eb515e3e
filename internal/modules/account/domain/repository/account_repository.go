package repository

import (
	"context"

	"ChatNest/internal/modules/account/domain/entity"
)

type AccountRepository interface {
	CreateAccount(ctx context.Context, account *entity.Account) error
	// GetByUsername 不存在时返回 nil, nil
	GetByUsername(ctx context.Context, username string) (*entity.Account, error)
}
