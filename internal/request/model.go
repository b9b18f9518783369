package request

import (
	"time"

	"github.com/google/uuid"

	"devconnect/internal/errs"
	"devconnect/internal/user"
)

type Status string

const (
	StatusInterested Status = "interested"
	StatusIgnored    Status = "ignored"
	StatusAccepted   Status = "accepted"
	StatusRejected   Status = "rejected"
)

// ParseCreationStatus accepts only the statuses a sender may open with.
func ParseCreationStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusInterested, StatusIgnored:
		return Status(s), nil
	}
	return "", errs.InvalidArg("invalid status: allowed values are interested, ignored")
}

// ParseReviewStatus accepts only the statuses a recipient may settle on.
func ParseReviewStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusAccepted, StatusRejected:
		return Status(s), nil
	}
	return "", errs.InvalidArg("invalid status: allowed values are accepted, rejected")
}

// ParseStatus accepts any of the four lifecycle statuses (list filters).
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusInterested, StatusIgnored, StatusAccepted, StatusRejected:
		return Status(s), nil
	}
	return "", errs.InvalidArg("invalid status filter")
}

type ConnectionRequest struct {
	ID         uuid.UUID `json:"id"`
	FromUserID uuid.UUID `json:"fromUserId"`
	ToUserID   uuid.UUID `json:"toUserId"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ReceivedRequest is a request seen from the recipient's side, with the
// sender's public profile joined in.
type ReceivedRequest struct {
	ID        uuid.UUID   `json:"id"`
	FromUser  user.Public `json:"fromUser"`
	Status    Status      `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Connection is one edge of the caller's connection list: the other party's
// public profile plus the request metadata.
type Connection struct {
	User         user.Public `json:"user"`
	ConnectionID uuid.UUID   `json:"connectionId"`
	Status       Status      `json:"status"`
	IsSender     bool        `json:"isSender"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// Buckets groups a user's connections by request status.
type Buckets struct {
	Accepted   []Connection `json:"accepted"`
	Interested []Connection `json:"interested"`
	Ignored    []Connection `json:"ignored"`
	Rejected   []Connection `json:"rejected"`
}

type Pagination struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	Total       int `json:"totalRequests"`
}
