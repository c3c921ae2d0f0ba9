package accounts

import "context"

// Repository defines persistence operations for user accounts. The store is
// the sole owner of durable identity state; email uniqueness is enforced at
// write time by the store itself.
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	SetActive(ctx context.Context, id int64, active bool) error
	List(ctx context.Context) ([]User, error)
}
