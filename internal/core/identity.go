package core

// Identity is what a valid credential token asserts about its bearer.
type Identity struct {
	UserID string
	Email  string
	Name   string
}

// CredentialValidator checks an opaque token. Invalid, expired or empty
// tokens fail with ErrUnauthenticated.
type CredentialValidator interface {
	Validate(token string) (*Identity, error)
}
