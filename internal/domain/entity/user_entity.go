package entity

import (
	"github.com/google/uuid"

	"github.com/oksasatya/user-account-service/internal/domain/apperr"
)

// User is the aggregate root for the user domain.
// Fields are only changed through the Set* methods, which enforce the account rules:
// email, status and password changes need an Active account, and no-op edits are rejected.
type User struct {
	id           uuid.UUID
	email        string
	state        State
	status       Status
	passwordHash string
	version      uint64
}

// NewUser creates an unsaved user: version 0, Active, plain User status.
func NewUser(id uuid.UUID, email, passwordHash string) *User {
	return &User{
		id:           id,
		email:        email,
		state:        StateActive,
		status:       StatusUser,
		passwordHash: passwordHash,
	}
}

// RestoreUser rebuilds a stored user. Version 0 is reserved for unsaved users.
func RestoreUser(id uuid.UUID, email string, state State, status Status, passwordHash string, version uint64) (*User, error) {
	if version == 0 {
		return nil, apperr.Internal("restore user "+id.String()+": stored version is 0", nil)
	}
	return &User{
		id:           id,
		email:        email,
		state:        state,
		status:       status,
		passwordHash: passwordHash,
		version:      version,
	}, nil
}

func (u *User) ID() uuid.UUID        { return u.id }
func (u *User) Email() string        { return u.email }
func (u *User) State() State         { return u.state }
func (u *User) Status() Status       { return u.status }
func (u *User) PasswordHash() string { return u.passwordHash }
func (u *User) Version() uint64      { return u.version }
func (u *User) IsActive() bool       { return u.state == StateActive }
func (u *User) CanEditOthers() bool  { return u.IsActive() && u.status == StatusAdmin }

func (u *User) checkActive() error {
	if !u.IsActive() {
		return apperr.NotActive("user %s is %s", u.id, u.state)
	}
	return nil
}

func (u *User) SetEmail(email string) error {
	if err := u.checkActive(); err != nil {
		return err
	}
	if email == u.email {
		return apperr.InvalidData("email is unchanged")
	}
	if email == "" {
		return apperr.InvalidData("email is empty")
	}
	u.email = email
	return nil
}

// SetState moves the account to any other state, whatever the current one is.
func (u *User) SetState(state State) error {
	if state == u.state {
		return apperr.InvalidData("state is already %s", state)
	}
	u.state = state
	return nil
}

func (u *User) SetStatus(status Status) error {
	if err := u.checkActive(); err != nil {
		return err
	}
	if status == u.status {
		return apperr.InvalidData("status is already %s", status)
	}
	u.status = status
	return nil
}

// SetPasswordHash replaces the credential. Setting the current hash again is accepted.
func (u *User) SetPasswordHash(hash string) error {
	if err := u.checkActive(); err != nil {
		return err
	}
	if hash == "" {
		return apperr.InvalidData("password hash is empty")
	}
	u.passwordHash = hash
	return nil
}

// NextVersion marks the user as changed; call it once per persisted command.
func (u *User) NextVersion() {
	u.version++
}
