package feed

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"devconnect/internal/errs"
	"devconnect/internal/user"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ListCandidates returns users outside the caller's exclusion set: the caller
// itself and anyone on either side of a connection request with the caller,
// whatever its status.
func (r *Repository) ListCandidates(ctx context.Context, userID uuid.UUID, limit, offset int) ([]user.Public, error) {
	query := `
		SELECT u.id, u.first_name, u.last_name, u.age, u.gender, u.about, u.photo_url, u.skills
		FROM users u
		WHERE u.id <> $1
		  AND u.id NOT IN (
			SELECT to_user_id FROM connection_requests WHERE from_user_id = $1
			UNION
			SELECT from_user_id FROM connection_requests WHERE to_user_id = $1
		  )
		ORDER BY u.created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "list feed candidates", err)
	}
	defer rows.Close()

	var out []user.Public
	for rows.Next() {
		var p user.Public
		var skills []byte
		err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Age, &p.Gender, &p.About, &p.PhotoURL, &skills)
		if err != nil {
			return nil, errs.Wrap(errs.CodeInternal, "scan feed candidate", err)
		}
		if err := json.Unmarshal(skills, &p.Skills); err != nil {
			return nil, errs.Wrap(errs.CodeInternal, "decode skills", err)
		}
		if p.PhotoURL == "" {
			p.PhotoURL = user.DefaultPhotoURL
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "list feed candidates", err)
	}
	return out, nil
}
