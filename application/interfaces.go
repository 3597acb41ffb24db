package application

import (
	"context"
	"errors"
	"time"

	"rifei/domain/interfaces"
)

var (
	// ErrForbidden is returned when the actor may not perform an operation
	ErrForbidden = errors.New("forbidden")

	// ErrLockHeld is returned when another worker holds a webhook lock
	ErrLockHeld = errors.New("lock held by another worker")
)

// Role names injected by the upstream auth proxy
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Actor is the authenticated caller of an operation
type Actor struct {
	UserID int64
	Role   string
}

// IsAdmin returns true if the actor has the admin role
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanManage returns true if the actor created the resource or is an admin
func (a Actor) CanManage(ownerID int64) bool {
	return a.IsAdmin() || a.UserID == ownerID
}

// DrawAnnouncer publishes a completed draw outside the service, e.g. to a chat channel
type DrawAnnouncer interface {
	AnnounceDraw(ctx context.Context, result *interfaces.RaffleDrawResult) error
}

// WebhookLocker serializes webhook processing for one gateway payment across replicas
type WebhookLocker interface {
	// Acquire takes the lock for key or returns ErrLockHeld. The returned
	// function releases it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// SignatureVerifier checks that a webhook delivery came from the gateway
type SignatureVerifier interface {
	Verify(xSignature, xRequestID, dataID string) error
}
