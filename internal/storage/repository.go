package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"finanzas/internal/core"
	"finanzas/internal/store"
)

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// a single writer avoids SQLITE_BUSY under the gateway fan-out
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const listEntries = `
SELECT id, description, amount_cents, date, created_at
FROM entries
WHERE user_id = ? AND category = ?
ORDER BY date DESC, created_at DESC`

func (r *SQLiteRepository) List(ctx context.Context, userID string, c core.Category) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx, listEntries, userID, c.Collection())
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c, err)
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		var (
			e       core.Entry
			date    string
			created int64
		)
		if err := rows.Scan(&e.ID, &e.Description, &e.Amount.Cents, &date, &created); err != nil {
			return nil, fmt.Errorf("scan %s: %w", c, err)
		}
		if e.Date, err = core.ParseISODate(date); err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.ID, err)
		}
		e.Category = c
		e.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", c, err)
	}
	return out, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, userID string, e core.Entry) (core.Entry, error) {
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	e.ID = uuid.NewString()
	e.CreatedAt = r.now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO entries (id, user_id, category, description, amount_cents, date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, userID, e.Category.Collection(), e.Description, e.Amount.Cents, e.Date.ISO(), e.CreatedAt.UnixNano())
	if err != nil {
		return core.Entry{}, fmt.Errorf("create %s: %w", e.Category, err)
	}

	slog.InfoContext(ctx, "Entry saved to SQLite",
		"id", e.ID,
		"category", e.Category,
		"amount_cents", e.Amount.Cents,
		"date", e.Date.ISO())

	return e, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, userID string, c core.Category, id string, p core.EntryPatch) error {
	var desc sql.NullString
	if p.Description != nil {
		desc = sql.NullString{String: *p.Description, Valid: true}
	}
	var amount sql.NullInt64
	if p.Amount != nil {
		amount = sql.NullInt64{Int64: p.Amount.Cents, Valid: true}
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE entries
		 SET description = COALESCE(?, description), amount_cents = COALESCE(?, amount_cents)
		 WHERE user_id = ? AND category = ? AND id = ?`,
		desc, amount, userID, c.Collection(), id)
	if err != nil {
		return fmt.Errorf("update %s %s: %w", c, id, err)
	}
	return expectOne(res)
}

func (r *SQLiteRepository) Delete(ctx context.Context, userID string, c core.Category, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM entries WHERE user_id = ? AND category = ? AND id = ?`,
		userID, c.Collection(), id)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", c, id, err)
	}
	return expectOne(res)
}

func (r *SQLiteRepository) CreateProfile(ctx context.Context, p core.Profile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, name, email, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET name = excluded.name, email = excluded.email`,
		p.UserID, p.Name, p.Email, p.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetProfile(ctx context.Context, userID string) (core.Profile, error) {
	p := core.Profile{UserID: userID}
	var created int64
	err := r.db.QueryRowContext(ctx,
		`SELECT name, email, created_at FROM profiles WHERE user_id = ?`, userID).
		Scan(&p.Name, &p.Email, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Profile{}, core.ErrProfileNotFound
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	p.CreatedAt = time.Unix(0, created).UTC()
	return p, nil
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a store.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (user_id, email, password_hash, disabled, created_at) VALUES (?, lower(?), ?, ?, ?)`,
		a.UserID, a.Email, a.PasswordHash, a.Disabled, a.CreatedAt.UnixNano())
	var se *msqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return store.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) AccountByEmail(ctx context.Context, email string) (store.Account, error) {
	var (
		a       store.Account
		created int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, email, password_hash, disabled, created_at FROM accounts WHERE email = lower(?)`, email).
		Scan(&a.UserID, &a.Email, &a.PasswordHash, &a.Disabled, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Account{}, store.ErrAccountNotFound
	}
	if err != nil {
		return store.Account{}, fmt.Errorf("account by email: %w", err)
	}
	a.CreatedAt = time.Unix(0, created).UTC()
	return a, nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
