package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
)

type UserRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*UserRepository)(nil)

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (repo *UserRepository) Query(ctx context.Context, filter *user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	q := `SELECT * FROM users`

	var (
		conds []string
		args  []interface{}
	)
	if filter != nil && !filter.IsEmpty() {
		if filter.Search != "" {
			args = append(args, "%"+filter.Search+"%")
			p := fmt.Sprintf("$%d", len(args))
			conds = append(conds, fmt.Sprintf("(name ILIKE %s OR username ILIKE %s OR email ILIKE %s)", p, p, p))
		}
		if len(filter.Roles) > 0 {
			roles := make([]string, len(filter.Roles))
			for i, role := range filter.Roles {
				roles[i] = string(role)
			}
			args = append(args, pq.Array(roles))
			conds = append(conds, fmt.Sprintf("role = ANY($%d)", len(args)))
		}
		if filter.IsActive != nil {
			args = append(args, *filter.IsActive)
			conds = append(conds, fmt.Sprintf("is_active = $%d", len(args)))
		}
		if !filter.CreatedFrom.IsZero() {
			args = append(args, filter.CreatedFrom)
			conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
		}
		if !filter.CreatedTo.IsZero() {
			args = append(args, filter.CreatedTo)
			conds = append(conds, fmt.Sprintf("created_at <= $%d", len(args)))
		}
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY " + orderBy(ordering, "created_at DESC")

	users := make([]user.User, 0)
	if err := repo.db.SelectContext(ctx, &users, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (repo *UserRepository) getBy(ctx context.Context, cond string, args ...interface{}) (user.User, error) {
	var usr user.User
	q := `SELECT * FROM users WHERE ` + cond
	if err := repo.db.GetContext(ctx, &usr, q, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return usr, nil
}

func (repo *UserRepository) GetByID(ctx context.Context, id string) (user.User, error) {
	return repo.getBy(ctx, "id = $1", id)
}

func (repo *UserRepository) GetByUsername(ctx context.Context, username string) (user.User, error) {
	return repo.getBy(ctx, "username = $1 AND username <> ''", username)
}

func (repo *UserRepository) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getBy(ctx, "email = $1 AND email <> ''", email)
}

func (repo *UserRepository) GetByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	return repo.getBy(ctx, "(username = $1 OR email = $1) AND $1 <> ''", username)
}

func (repo *UserRepository) Create(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()

	q := `
	INSERT INTO users (id, name, username, email, role, is_active, password_hash, created_at, updated_at, last_login)
	VALUES (:id, :name, :username, :email, :role, :is_active, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := repo.db.NamedExecContext(ctx, q, usr); err != nil {
		if isUniqueViolation(err, "users_username_uidx") {
			return user.User{}, user.ErrUsernameExists
		}
		if isUniqueViolation(err, "users_email_uidx") {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

func (repo *UserRepository) Update(ctx context.Context, usr user.User) (user.User, error) {
	q := `
	UPDATE users
	SET name = :name, username = :username, email = :email, role = :role, is_active = :is_active,
	    password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login
	WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, usr)
	if err != nil {
		if isUniqueViolation(err, "users_username_uidx") {
			return user.User{}, user.ErrUsernameExists
		}
		if isUniqueViolation(err, "users_email_uidx") {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *UserRepository) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM users WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
