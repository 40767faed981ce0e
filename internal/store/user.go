package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/backoffice/internal/model"
)

// PostgresDirectory reads admin users from the admin_users table.
type PostgresDirectory struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db, log: zap.S().Named("store")}
}

const listNotifiableQuery = `
	SELECT id, email, role, is_active, preferences, created_at
	FROM admin_users
	WHERE is_active = TRUE AND role IN ($1, $2)
	ORDER BY created_at, id`

// ListNotifiable returns active admins and moderators in creation order. A
// row whose preferences cannot be decoded is logged and left out, so that
// user receives nothing while the rest of the batch still does.
func (s *PostgresDirectory) ListNotifiable(ctx context.Context) ([]model.AdminUser, error) {
	rows, err := s.db.QueryContext(ctx, listNotifiableQuery, string(model.RoleAdmin), string(model.RoleModerator))
	if err != nil {
		return nil, fmt.Errorf("query notifiable users: %w", err)
	}
	defer rows.Close()

	var users []model.AdminUser
	for rows.Next() {
		var (
			u     model.AdminUser
			role  string
			prefs []byte
		)
		if err := rows.Scan(&u.ID, &u.Email, &role, &u.IsActive, &prefs, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan admin user: %w", err)
		}
		u.Role = model.Role(role)
		if u.Preferences, err = decodePreferences(prefs); err != nil {
			s.log.Warnw("skipping admin user with malformed preferences", "userId", u.ID, "error", err)
			continue
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *PostgresDirectory) CountAll(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admin_users`).Scan(&n)
	return n, err
}

func (s *PostgresDirectory) Create(ctx context.Context, u model.AdminUser, passwordHash string) error {
	prefs, err := encodePreferences(u.Preferences)
	if err != nil {
		return err
	}
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO admin_users (id, email, password_hash, role, is_active, preferences, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Email, passwordHash, string(u.Role), u.IsActive, prefs, createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}
	return nil
}

func (s *PostgresDirectory) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresDirectory) Close(context.Context) error {
	return s.db.Close()
}

// NULL, empty and {} all mean "no preference".
func decodePreferences(raw []byte) (*model.Preferences, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var p model.Preferences
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode preferences: %w", err)
	}
	return &p, nil
}

func encodePreferences(p *model.Preferences) (any, error) {
	if p == nil {
		return nil, nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode preferences: %w", err)
	}
	return string(raw), nil
}
