package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/oxroom-backend/internal/apperror"
	"github.com/rocketscienceinc/oxroom-backend/internal/entity"
)

type AccountRepository interface {
	Create(ctx context.Context, account *entity.Account) error
	FindByName(ctx context.Context, name string) (*entity.Account, error)
	GetByID(ctx context.Context, id int) (*entity.Account, error)
	DisplayName(ctx context.Context, id int) (string, error)
	UpdateRoom(ctx context.Context, id, roomID int) error
}

type accountRepository struct {
	conn *sql.DB
}

func NewAccountRepository(conn *sql.DB) AccountRepository {
	return &accountRepository{
		conn: conn,
	}
}

// Create inserts the account and writes the generated id back into it.
func (that *accountRepository) Create(ctx context.Context, account *entity.Account) error {
	query := `INSERT INTO accounts (name, password_hash, room_id) VALUES (?, ?, ?)`

	result, err := that.conn.ExecContext(ctx, query, account.Name, account.PasswordHash, account.RoomID)
	if err != nil {
		return fmt.Errorf("can't save account: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("can't read account id: %w", err)
	}

	account.ID = int(id)

	return nil
}

func (that *accountRepository) FindByName(ctx context.Context, name string) (*entity.Account, error) {
	query := `SELECT id, name, password_hash, room_id FROM accounts WHERE name = ?`

	return that.scanOne(that.conn.QueryRowContext(ctx, query, name))
}

func (that *accountRepository) GetByID(ctx context.Context, id int) (*entity.Account, error) {
	query := `SELECT id, name, password_hash, room_id FROM accounts WHERE id = ?`

	return that.scanOne(that.conn.QueryRowContext(ctx, query, id))
}

func (that *accountRepository) DisplayName(ctx context.Context, id int) (string, error) {
	query := `SELECT name FROM accounts WHERE id = ?`

	var name string

	err := that.conn.QueryRowContext(ctx, query, id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperror.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("can't find account name: %w", err)
	}

	return name, nil
}

func (that *accountRepository) UpdateRoom(ctx context.Context, id, roomID int) error {
	query := `UPDATE accounts SET room_id = ? WHERE id = ?`

	result, err := that.conn.ExecContext(ctx, query, roomID, id)
	if err != nil {
		return fmt.Errorf("can't update account room: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("can't read affected rows: %w", err)
	}

	if affected == 0 {
		return apperror.ErrNotFound
	}

	return nil
}

func (that *accountRepository) scanOne(row *sql.Row) (*entity.Account, error) {
	var account entity.Account

	err := row.Scan(&account.ID, &account.Name, &account.PasswordHash, &account.RoomID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("can't find account: %w", err)
	}

	return &account, nil
}
