package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"golang.org/x/crypto/bcrypt"

	"github.com/rocketscienceinc/oxroom-backend/internal/apperror"
	"github.com/rocketscienceinc/oxroom-backend/internal/entity"
)

var passwordPattern = regexp.MustCompile(`^[a-zA-Z0-9]{4,}$`)

type AccountUseCase interface {
	LoginOrRegister(ctx context.Context, name, password string) (*entity.Account, error)
}

type accountStore interface {
	Create(ctx context.Context, account *entity.Account) error
	FindByName(ctx context.Context, name string) (*entity.Account, error)
}

type accountUseCase struct {
	logger   *slog.Logger
	accounts accountStore
	cost     int
}

func NewAccountUseCase(logger *slog.Logger, accounts accountStore) AccountUseCase {
	return &accountUseCase{
		logger:   logger.With("component", "account"),
		accounts: accounts,
		cost:     bcrypt.DefaultCost,
	}
}

// LoginOrRegister checks the password of a known name and registers an unknown one.
func (that *accountUseCase) LoginOrRegister(ctx context.Context, name, password string) (*entity.Account, error) {
	log := that.logger.With("method", "LoginOrRegister", "name", name)

	account, err := that.accounts.FindByName(ctx, name)
	if errors.Is(err, apperror.ErrNotFound) {
		return that.register(ctx, log, name, password)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	if err = bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		log.Debug("wrong password")
		return nil, apperror.ErrWrongPassword
	}

	return account, nil
}

func (that *accountUseCase) register(ctx context.Context, log *slog.Logger, name, password string) (*entity.Account, error) {
	if name == "" || !passwordPattern.MatchString(password) {
		return nil, apperror.ErrInvalidPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), that.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &entity.Account{
		Name:         name,
		PasswordHash: string(hash),
		RoomID:       entity.LobbyRoomID,
	}

	if err = that.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	log.Info("account registered", "accountID", account.ID)

	return account, nil
}
