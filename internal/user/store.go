package user

import (
	"context"
	"errors"
)

// ErrUserNotFound is returned when no user has the requested id.
var ErrUserNotFound = errors.New("user not found")

// Store defines read and write access to user records.
type Store interface {
	// Get returns the user with the given id.
	// Returns ErrUserNotFound if no such user exists.
	Get(ctx context.Context, id int64) (User, error)

	// List returns all users ordered by username.
	List(ctx context.Context) ([]User, error)

	// Create inserts a user. A zero ID is assigned by the store.
	Create(ctx context.Context, u *User) error
}

// ForSharing returns every user except the caller, ordered by username.
func ForSharing(ctx context.Context, store Store, callerID int64) ([]User, error) {
	users, err := store.List(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]User, 0, len(users))

	for _, u := range users {
		if u.ID != callerID {
			result = append(result, u)
		}
	}

	return result, nil
}

// Seed creates every user in users whose id is not taken yet and returns
// how many were created. Existing accounts are left untouched.
func Seed(ctx context.Context, store Store, users []User) (int, error) {
	created := 0

	for _, u := range users {
		_, err := store.Get(ctx, u.ID)
		if err == nil {
			continue
		}

		if !errors.Is(err, ErrUserNotFound) {
			return created, err
		}

		if err := store.Create(ctx, &u); err != nil {
			return created, err
		}

		created++
	}

	return created, nil
}
