package service

import "context"

// EmailValidator checks the format of an email address.
// It returns nil or an apperr InvalidData error.
type EmailValidator interface {
	ValidateEmail(email string) error
}

// PasswordValidator checks a password against the password policy.
// ownerEmail is the email of the account the password belongs to.
type PasswordValidator interface {
	ValidatePassword(password, ownerEmail string) error
}

// PasswordHasher turns passwords into storable hashes and checks them.
// Both calls may be CPU heavy and must return early when ctx is done.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Compare(ctx context.Context, password, hash string) (bool, error)
}
