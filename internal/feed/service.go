package feed

import (
	"context"

	"github.com/google/uuid"

	"devconnect/internal/errs"
	"devconnect/internal/user"
)

const (
	defaultPageSize = 10
	// MaxPageSize caps the feed window regardless of what the client asks.
	MaxPageSize = 50
)

type CandidateLister interface {
	ListCandidates(ctx context.Context, userID uuid.UUID, limit, offset int) ([]user.Public, error)
}

type Service struct {
	repo CandidateLister
}

func NewService(repo CandidateLister) *Service {
	return &Service{repo: repo}
}

// Feed returns one page of candidate profiles. An empty page is a normal
// result, not an error.
func (s *Service) Feed(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]user.Public, error) {
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = defaultPageSize
	}
	if page < 1 {
		return nil, errs.InvalidArg("page must be >= 1")
	}
	if pageSize < 1 {
		return nil, errs.InvalidArg("limit must be >= 1")
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	candidates, err := s.repo.ListCandidates(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	if candidates == nil {
		candidates = []user.Public{}
	}
	return candidates, nil
}
