// Package postgres is the PostgreSQL store, opened through the pgx
// database/sql driver and migrated with goose.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"finanzas/internal/core"
	"finanzas/internal/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

const uniqueViolation = "23505"

// DBTX is the subset of database/sql used by the repository.
// Both *sql.DB and *sql.Tx satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repository struct {
	db   DBTX
	conn *sql.DB
}

var _ store.Store = (*Repository)(nil)

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, conn: db}
}

// Open connects to dsn and applies pending migrations.
func Open(ctx context.Context, dsn string) (*Repository, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return NewRepository(db), nil
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, "migrations")
}

func (r *Repository) Ping(ctx context.Context) error { return r.conn.PingContext(ctx) }

func (r *Repository) Close() error { return r.conn.Close() }

func (r *Repository) List(ctx context.Context, userID string, c core.Category) ([]core.Entry, error) {
	query :=
		`SELECT id, description, amount_cents, date, created_at FROM entries
		 WHERE user_id = $1 AND category = $2
		 ORDER BY date DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID, c.Collection())
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		e := core.Entry{Category: c}
		if err := rows.Scan(&e.ID, &e.Description, &e.Amount.Cents, &e.Date.Time, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		e.Date = core.Today(e.Date.Time, nil)
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *Repository) Create(ctx context.Context, userID string, e core.Entry) (core.Entry, error) {
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	query :=
		`INSERT INTO entries (id, user_id, category, description, amount_cents, date)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`

	e.ID = uuid.NewString()
	err := r.db.QueryRowContext(ctx, query,
		e.ID, userID, e.Category.Collection(), e.Description, e.Amount.Cents, e.Date.ISO()).Scan(&e.CreatedAt)
	if err != nil {
		return core.Entry{}, fmt.Errorf("db error: %w", err)
	}
	e.CreatedAt = e.CreatedAt.UTC()
	return e, nil
}

func (r *Repository) Update(ctx context.Context, userID string, c core.Category, id string, p core.EntryPatch) error {
	query :=
		`UPDATE entries
		 SET description = COALESCE($1, description), amount_cents = COALESCE($2, amount_cents)
		 WHERE user_id = $3 AND category = $4 AND id = $5`

	var desc sql.NullString
	if p.Description != nil {
		desc = sql.NullString{String: *p.Description, Valid: true}
	}
	var amount sql.NullInt64
	if p.Amount != nil {
		amount = sql.NullInt64{Int64: p.Amount.Cents, Valid: true}
	}
	if _, err := uuid.Parse(id); err != nil {
		return core.ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, query, desc, amount, userID, c.Collection(), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

func (r *Repository) Delete(ctx context.Context, userID string, c core.Category, id string) error {
	query := `DELETE FROM entries WHERE user_id = $1 AND category = $2 AND id = $3`

	if _, err := uuid.Parse(id); err != nil {
		return core.ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, query, userID, c.Collection(), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

func (r *Repository) CreateProfile(ctx context.Context, p core.Profile) error {
	query :=
		`INSERT INTO profiles (user_id, name, email, created_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email`

	if _, err := r.db.ExecContext(ctx, query, p.UserID, p.Name, p.Email, p.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *Repository) GetProfile(ctx context.Context, userID string) (core.Profile, error) {
	query := `SELECT name, email, created_at FROM profiles WHERE user_id = $1`

	p := core.Profile{UserID: userID}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&p.Name, &p.Email, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Profile{}, core.ErrProfileNotFound
		}
		return core.Profile{}, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *Repository) CreateAccount(ctx context.Context, a store.Account) error {
	query :=
		`INSERT INTO accounts (user_id, email, password_hash, disabled, created_at)
		 VALUES ($1, lower($2), $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query, a.UserID, a.Email, a.PasswordHash, a.Disabled, a.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return store.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *Repository) AccountByEmail(ctx context.Context, email string) (store.Account, error) {
	query :=
		`SELECT user_id, email, password_hash, disabled, created_at FROM accounts
		 WHERE email = lower($1)`

	var a store.Account
	err := r.db.QueryRowContext(ctx, query, email).Scan(&a.UserID, &a.Email, &a.PasswordHash, &a.Disabled, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Account{}, store.ErrAccountNotFound
		}
		return store.Account{}, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
