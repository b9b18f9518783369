package request

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"devconnect/internal/errs"
	"devconnect/internal/user"
)

const uniqueViolation = "23505"

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, req *ConnectionRequest) error {
	query := `
		INSERT INTO connection_requests (id, from_user_id, to_user_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, req.ID, req.FromUserID, req.ToUserID, req.Status).
		Scan(&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return errs.AlreadyExists("connection request already exists")
		}
		return errs.Wrap(errs.CodeInternal, "create connection request", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*ConnectionRequest, error) {
	req := &ConnectionRequest{}
	query := `
		SELECT id, from_user_id, to_user_id, status, created_at, updated_at
		FROM connection_requests WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&req.ID, &req.FromUserID, &req.ToUserID, &req.Status, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound("connection request not found")
		}
		return nil, errs.Wrap(errs.CodeInternal, "query connection request", err)
	}
	return req, nil
}

// SettleIfInterested transitions the request to status only if it is still
// "interested". The conditional update is the store-level arbiter for
// concurrent reviews: exactly one wins, the loser sees updated=false.
func (r *Repository) SettleIfInterested(ctx context.Context, id uuid.UUID, status Status) (bool, error) {
	query := `
		UPDATE connection_requests
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = 'interested'`

	res, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return false, errs.Wrap(errs.CodeInternal, "update connection request", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errs.Wrap(errs.CodeInternal, "update connection request", err)
	}
	return n == 1, nil
}

func (r *Repository) ListReceived(ctx context.Context, toUserID uuid.UUID, status *Status, limit, offset int) ([]ReceivedRequest, int, error) {
	args := []any{toUserID}
	where := `r.to_user_id = $1`
	if status != nil {
		where += ` AND r.status = $2`
		args = append(args, *status)
	}

	var total int
	countQuery := `SELECT count(*) FROM connection_requests r WHERE ` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errs.Wrap(errs.CodeInternal, "count received requests", err)
	}

	query := `
		SELECT r.id, r.status, r.created_at, r.updated_at,
		       u.id, u.first_name, u.last_name, u.age, u.gender, u.about, u.photo_url, u.skills
		FROM connection_requests r
		JOIN users u ON u.id = r.from_user_id
		WHERE ` + where + `
		ORDER BY r.created_at DESC
		LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errs.Wrap(errs.CodeInternal, "list received requests", err)
	}
	defer rows.Close()

	var out []ReceivedRequest
	for rows.Next() {
		var rr ReceivedRequest
		var skills []byte
		err := rows.Scan(
			&rr.ID, &rr.Status, &rr.CreatedAt, &rr.UpdatedAt,
			&rr.FromUser.ID, &rr.FromUser.FirstName, &rr.FromUser.LastName,
			&rr.FromUser.Age, &rr.FromUser.Gender, &rr.FromUser.About,
			&rr.FromUser.PhotoURL, &skills,
		)
		if err != nil {
			return nil, 0, errs.Wrap(errs.CodeInternal, "scan received request", err)
		}
		if err := json.Unmarshal(skills, &rr.FromUser.Skills); err != nil {
			return nil, 0, errs.Wrap(errs.CodeInternal, "decode skills", err)
		}
		if rr.FromUser.PhotoURL == "" {
			rr.FromUser.PhotoURL = user.DefaultPhotoURL
		}
		out = append(out, rr)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errs.Wrap(errs.CodeInternal, "list received requests", err)
	}
	return out, total, nil
}

// ListInvolving returns every request where the user is a party, joined with
// the other party's public profile. The inner join drops rows whose
// counterpart no longer resolves instead of failing the whole listing.
func (r *Repository) ListInvolving(ctx context.Context, userID uuid.UUID) ([]Connection, error) {
	query := `
		SELECT r.id, r.status, r.created_at, r.updated_at, r.from_user_id = $1 AS is_sender,
		       u.id, u.first_name, u.last_name, u.age, u.gender, u.about, u.photo_url, u.skills
		FROM connection_requests r
		JOIN users u ON u.id = CASE WHEN r.from_user_id = $1 THEN r.to_user_id ELSE r.from_user_id END
		WHERE r.from_user_id = $1 OR r.to_user_id = $1
		ORDER BY r.updated_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "list connections", err)
	}
	defer rows.Close()

	var out []Connection
	for rows.Next() {
		var c Connection
		var skills []byte
		err := rows.Scan(
			&c.ConnectionID, &c.Status, &c.CreatedAt, &c.UpdatedAt, &c.IsSender,
			&c.User.ID, &c.User.FirstName, &c.User.LastName,
			&c.User.Age, &c.User.Gender, &c.User.About, &c.User.PhotoURL, &skills,
		)
		if err != nil {
			return nil, errs.Wrap(errs.CodeInternal, "scan connection", err)
		}
		if err := json.Unmarshal(skills, &c.User.Skills); err != nil {
			return nil, errs.Wrap(errs.CodeInternal, "decode skills", err)
		}
		if c.User.PhotoURL == "" {
			c.User.PhotoURL = user.DefaultPhotoURL
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "list connections", err)
	}
	return out, nil
}

// PendingReviewerEmails lists recipient emails of still-interested requests
// created in [from, to). Duplicates mean multiple pending requests.
func (r *Repository) PendingReviewerEmails(ctx context.Context, from, to time.Time) ([]string, error) {
	query := `
		SELECT u.email
		FROM connection_requests r
		JOIN users u ON u.id = r.to_user_id
		WHERE r.status = 'interested' AND r.created_at >= $1 AND r.created_at < $2`

	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "list pending reviewers", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, errs.Wrap(errs.CodeInternal, "scan pending reviewer", err)
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}
