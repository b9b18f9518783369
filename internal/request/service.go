package request

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"devconnect/internal/errs"
	"devconnect/internal/metrics"
	"devconnect/internal/notify"
	"devconnect/internal/user"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100

	notifyTimeout = 5 * time.Second
)

// Ledger is the persistence surface of the connection-request store.
type Ledger interface {
	Create(ctx context.Context, req *ConnectionRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*ConnectionRequest, error)
	SettleIfInterested(ctx context.Context, id uuid.UUID, status Status) (bool, error)
	ListReceived(ctx context.Context, toUserID uuid.UUID, status *Status, limit, offset int) ([]ReceivedRequest, int, error)
	ListInvolving(ctx context.Context, userID uuid.UUID) ([]Connection, error)
}

// Directory resolves user ids; satisfied by the user service.
type Directory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type Service struct {
	repo     Ledger
	users    Directory
	notifier notify.Notifier
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

func NewService(repo Ledger, users Directory, notifier notify.Notifier, m *metrics.Metrics, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		notifier: notifier,
		metrics:  m,
		log:      log,
	}
}

// Send creates a connection request from the caller to another user.
func (s *Service) Send(ctx context.Context, fromUserID, toUserID uuid.UUID, statusStr string) (*ConnectionRequest, error) {
	status, err := ParseCreationStatus(statusStr)
	if err != nil {
		return nil, err
	}
	if fromUserID == toUserID {
		return nil, errs.InvalidArg("cannot send a connection request to yourself")
	}

	toUser, err := s.users.GetByID(ctx, toUserID)
	if err != nil {
		if errs.CodeOf(err) == errs.CodeNotFound {
			return nil, errs.NotFound("target user not found")
		}
		return nil, err
	}

	req := &ConnectionRequest{
		ID:         uuid.New(),
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Status:     status,
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, err
	}
	s.metrics.IncRequestsCreated(string(status))

	s.notifyAsync(fromUserID, toUser, status)
	return req, nil
}

// Review settles an interested request as accepted or rejected. Only the
// recipient may review, and only one review ever wins.
func (s *Service) Review(ctx context.Context, reviewerID, requestID uuid.UUID, statusStr string) (*ConnectionRequest, error) {
	status, err := ParseReviewStatus(statusStr)
	if err != nil {
		return nil, err
	}

	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.ToUserID != reviewerID {
		return nil, errs.Forbidden("only the recipient can review this request")
	}
	if req.Status != StatusInterested {
		return nil, errs.AlreadyExists(fmt.Sprintf("request is not reviewable in status %q", req.Status))
	}

	updated, err := s.repo.SettleIfInterested(ctx, requestID, status)
	if err != nil {
		return nil, err
	}
	if !updated {
		// Lost a concurrent review; the record is already settled.
		return nil, errs.AlreadyExists("request was already reviewed")
	}
	req.Status = status
	s.metrics.IncRequestsReviewed(string(status))

	if sender, serr := s.users.GetByID(ctx, req.FromUserID); serr == nil {
		s.notifyAsync(reviewerID, sender, status)
	}
	return req, nil
}

func (s *Service) ListReceived(ctx context.Context, userID uuid.UUID, statusFilter string, page, pageSize int) ([]ReceivedRequest, Pagination, error) {
	page, pageSize, err := normalizePage(page, pageSize, maxPageSize)
	if err != nil {
		return nil, Pagination{}, err
	}

	var status *Status
	if statusFilter != "" {
		st, err := ParseStatus(statusFilter)
		if err != nil {
			return nil, Pagination{}, err
		}
		status = &st
	}

	items, total, err := s.repo.ListReceived(ctx, userID, status, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, Pagination{}, err
	}
	if items == nil {
		items = []ReceivedRequest{}
	}
	return items, Pagination{
		CurrentPage: page,
		TotalPages:  (total + pageSize - 1) / pageSize,
		Total:       total,
	}, nil
}

// Connections returns everything the user is party to, bucketed by status.
func (s *Service) Connections(ctx context.Context, userID uuid.UUID) (*Buckets, error) {
	edges, err := s.repo.ListInvolving(ctx, userID)
	if err != nil {
		return nil, err
	}

	buckets := &Buckets{
		Accepted:   []Connection{},
		Interested: []Connection{},
		Ignored:    []Connection{},
		Rejected:   []Connection{},
	}
	for _, edge := range edges {
		switch edge.Status {
		case StatusAccepted:
			buckets.Accepted = append(buckets.Accepted, edge)
		case StatusInterested:
			buckets.Interested = append(buckets.Interested, edge)
		case StatusIgnored:
			buckets.Ignored = append(buckets.Ignored, edge)
		case StatusRejected:
			buckets.Rejected = append(buckets.Rejected, edge)
		}
	}
	return buckets, nil
}

// notifyAsync emits the status notification without ever blocking or
// failing the triggering operation.
func (s *Service) notifyAsync(actorID uuid.UUID, recipient *user.User, status Status) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		actor, err := s.users.GetByID(ctx, actorID)
		if err != nil {
			s.log.Warn().Err(err).Msg("notification skipped: actor lookup failed")
			return
		}

		ev := notify.ConnectionEvent{
			FromFirstName: actor.FirstName,
			ToFirstName:   recipient.FirstName,
			ToEmail:       recipient.Email,
			Status:        string(status),
			Message:       fmt.Sprintf("%s %s the connection with %s", actor.FirstName, status, recipient.FirstName),
		}
		if err := s.notifier.ConnectionUpdate(ctx, ev); err != nil {
			s.log.Warn().Err(err).Str("to", recipient.Email).Msg("notification dispatch failed")
		}
	}()
}

func normalizePage(page, pageSize, max int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = defaultPageSize
	}
	if page < 1 {
		return 0, 0, errs.InvalidArg("page must be >= 1")
	}
	if pageSize < 1 {
		return 0, 0, errs.InvalidArg("pageSize must be >= 1")
	}
	if pageSize > max {
		pageSize = max
	}
	return page, pageSize, nil
}
