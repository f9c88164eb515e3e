package service

import (
	"context"
	"strings"
	"time"

	"ChatNest/internal/modules/account/application/dto/request"
	"ChatNest/internal/modules/account/application/dto/respond"
	"ChatNest/internal/modules/account/domain/entity"
	"ChatNest/internal/modules/account/domain/repository"
	"ChatNest/pkg/util"
	"ChatNest/pkg/xerr"
	"ChatNest/pkg/zlog"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer 为账户签发访问令牌
type TokenIssuer func(uuid, username string) (string, error)

// AccountService 账户注册与登录
type AccountService interface {
	Register(ctx context.Context, req request.RegisterRequest) (*respond.AuthRespond, error)
	Login(ctx context.Context, req request.LoginRequest) (*respond.AuthRespond, error)
}

type accountServiceImpl struct {
	repo   repository.AccountRepository
	issuer TokenIssuer
}

// NewAccountService 构造函数
func NewAccountService(repo repository.AccountRepository, issuer TokenIssuer) AccountService {
	return &accountServiceImpl{repo: repo, issuer: issuer}
}

func (s *accountServiceImpl) Register(ctx context.Context, req request.RegisterRequest) (*respond.AuthRespond, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, xerr.ErrParam
	}

	existing, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		zlog.Error("get account failed", zap.Error(err))
		return nil, xerr.ErrServerError
	}
	if existing != nil {
		return nil, xerr.New(xerr.Conflict, "username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		zlog.Error("hash password failed", zap.Error(err))
		return nil, xerr.ErrServerError
	}

	account := &entity.Account{
		Uuid:         util.GenerateUUID(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		zlog.Error("create account failed", zap.Error(err), zap.String("username", username))
		return nil, xerr.ErrServerError
	}
	zlog.Info("account registered", zap.String("uuid", account.Uuid))

	return s.issue(account)
}

func (s *accountServiceImpl) Login(ctx context.Context, req request.LoginRequest) (*respond.AuthRespond, error) {
	account, err := s.repo.GetByUsername(ctx, req.Username)
	if err != nil {
		zlog.Error("get account failed", zap.Error(err))
		return nil, xerr.ErrServerError
	}
	if account == nil {
		return nil, xerr.New(xerr.Unauthorized, "invalid username or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return nil, xerr.New(xerr.Unauthorized, "invalid username or password")
	}
	return s.issue(account)
}

func (s *accountServiceImpl) issue(account *entity.Account) (*respond.AuthRespond, error) {
	token, err := s.issuer(account.Uuid, account.Username)
	if err != nil {
		zlog.Error("issue token failed", zap.Error(err))
		return nil, xerr.ErrServerError
	}
	return &respond.AuthRespond{
		Uuid:     account.Uuid,
		Username: account.Username,
		Token:    token,
	}, nil
}
