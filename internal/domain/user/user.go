// Package user exposes the read-only view of store accounts that the
// checkout core needs: owner lookup for orders and redemptions, and the
// total account count for dashboard metrics. Account CRUD and credential
// handling live elsewhere.
package user

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when the requested user does not exist.
var ErrNotFound = errors.New("user not found")

// User is a store account.
type User struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	IsAdmin   bool
	CreatedAt time.Time
}

// Repository defines read operations over store accounts.
type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	Count(ctx context.Context) (int, error)
}
