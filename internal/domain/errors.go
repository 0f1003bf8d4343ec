package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrCredentialExpired = errors.New("credential expired")
	ErrTokenNotFound     = errors.New("unlock token not found")
	ErrTokenUsed         = errors.New("unlock token already used")
	ErrTokenUserMismatch = errors.New("unlock token bound to another user")
	ErrTokenExpired      = errors.New("unlock token expired")
	ErrAccessExpired     = errors.New("access expired")
	ErrProviderFailure   = errors.New("provider failure")
)
