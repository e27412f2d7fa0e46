package users

import "time"

// UserRepo stores accounts. Lookups of unknown users return
// errors.ErrUserNotFound.
type UserRepo interface {
	Upsert(user *User) error
	Delete(username string) error
	GetByUsername(username string) (*User, error)
	GetByID(ID string) (*User, error)
	SetLastLogin(username string, at time.Time) error
}
