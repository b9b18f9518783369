package user

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"devconnect/internal/errs"
)

const uniqueViolation = "23505"

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, u *User) error {
	skills, err := json.Marshal(orEmpty(u.Skills))
	if err != nil {
		return errs.Wrap(errs.CodeInternal, "encode skills", err)
	}
	links, err := json.Marshal(orEmpty(u.Links))
	if err != nil {
		return errs.Wrap(errs.CodeInternal, "encode links", err)
	}

	query := `
		INSERT INTO users (id, first_name, last_name, email, password, age, gender, about, photo_url, skills, links)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`

	err = r.db.QueryRowContext(ctx, query,
		u.ID, u.FirstName, u.LastName, u.Email, u.Password,
		u.Age, u.Gender, u.About, u.PhotoURL, skills, links,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return errs.AlreadyExists("email is already registered")
		}
		return errs.Wrap(errs.CodeInternal, "create user", err)
	}
	return nil
}

const userColumns = `id, first_name, last_name, email, password, age, gender, about, photo_url, skills, links, created_at, updated_at`

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *Repository) Update(ctx context.Context, u *User) error {
	skills, err := json.Marshal(orEmpty(u.Skills))
	if err != nil {
		return errs.Wrap(errs.CodeInternal, "encode skills", err)
	}
	links, err := json.Marshal(orEmpty(u.Links))
	if err != nil {
		return errs.Wrap(errs.CodeInternal, "encode links", err)
	}

	query := `
		UPDATE users
		SET first_name = $2, last_name = $3, age = $4, gender = $5, about = $6,
		    photo_url = $7, skills = $8, links = $9, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err = r.db.QueryRowContext(ctx, query,
		u.ID, u.FirstName, u.LastName, u.Age, u.Gender, u.About, u.PhotoURL, skills, links,
	).Scan(&u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errs.NotFound("user not found")
		}
		return errs.Wrap(errs.CodeInternal, "update user", err)
	}
	return nil
}

func (r *Repository) scanOne(row *sql.Row) (*User, error) {
	u := &User{}
	var skills, links []byte
	err := row.Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Password,
		&u.Age, &u.Gender, &u.About, &u.PhotoURL, &skills, &links,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound("user not found")
		}
		return nil, errs.Wrap(errs.CodeInternal, "query user", err)
	}
	if err := json.Unmarshal(skills, &u.Skills); err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "decode skills", err)
	}
	if err := json.Unmarshal(links, &u.Links); err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "decode links", err)
	}
	return u, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
