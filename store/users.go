package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgconn"
	_ "github.com/jackc/pgx/v4/stdlib"

	"retail-sales/models"
	"retail-sales/services"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// Users persists accounts through database/sql on the pgx driver.
type Users struct {
	db *sql.DB
}

// OpenUsers opens a database/sql handle using the "pgx" driver name.
func OpenUsers(dsn string, maxConns int) (*Users, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open users db: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns / 2)
	}
	return &Users{db: db}, nil
}

func NewUsers(db *sql.DB) *Users {
	return &Users{db: db}
}

func (u *Users) Close() error {
	return u.db.Close()
}

func (u *Users) Ping(ctx context.Context) error {
	if err := u.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", services.ErrStoreUnavailable, err)
	}
	return nil
}

func (u *Users) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := u.db.QueryRowContext(ctx, query,
		user.ID, user.Name, strings.ToLower(user.Email), user.PasswordHash,
	).Scan(&user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.Email = strings.ToLower(user.Email)
	return nil
}

func (u *Users) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, name, email, password_hash, created_at
		FROM users
		WHERE email = $1`

	var user models.User
	err := u.db.QueryRowContext(ctx, query, strings.ToLower(email)).Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

func (u *Users) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, name, email, password_hash, created_at
		FROM users
		WHERE id = $1`

	var user models.User
	err := u.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &user, nil
}
