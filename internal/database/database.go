package database

import (
	"errors"
	"time"
)

// ErrNoIdentity is returned by LoadIdentity when nobody is logged in.
var ErrNoIdentity = errors.New("no stored identity")

// Identity is the persisted operator login.
type Identity struct {
	Email      string
	LoggedInAt time.Time
}

// Database defines the local persistence the client needs.
type Database interface {
	SaveIdentity(id Identity) error
	LoadIdentity() (*Identity, error)
	ClearIdentity() error

	Close() error
}
