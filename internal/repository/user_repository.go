package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/service-marketplace/internal/model"
)

type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, username, email, first_name, last_name, password_hash, type, is_active, is_admin, created_at, updated_at`

func scanUser(s rowScanner) (model.User, error) {
	var (
		u   model.User
		typ string
	)
	err := s.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &typ,
		&u.IsActive, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	u.Type = model.UserType(typ)
	return u, err
}

// CreateWithProfile inserts the user and the profile matching its type in
// one transaction. PasswordHash must already be set.
func (r *UserRepo) CreateWithProfile(ctx context.Context, u *model.User) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return translate("begin", err)
	}
	defer finish(tx, &err)

	ts := now()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := tx.ExecContext(ctx,
		`INSERT INTO users (username, email, first_name, last_name, password_hash, type, is_active, is_admin, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		u.Username, u.Email, u.FirstName, u.LastName, u.PasswordHash, string(u.Type), u.IsActive, u.IsAdmin, ts, ts)
	if err != nil {
		return translate("insert user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return translate("insert user", err)
	}
	u.ID, u.CreatedAt, u.UpdatedAt = uint64(id), ts, ts

	table := "customer_profiles"
	if u.Type == model.UserBusiness {
		table = "business_profiles"
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO `+table+` (user_id, created_at) VALUES (?,?)`, u.ID, ts); err != nil {
		return translate("insert profile", err)
	}
	return nil
}

// GetByUsername fetches a user by exact username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username=? LIMIT 1`, username))
	if err != nil {
		return model.User{}, translate("get user", err)
	}
	return u, nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=? LIMIT 1`, id))
	if err != nil {
		return model.User{}, translate("get user", err)
	}
	return u, nil
}
