package auth

import "errors"

var (
	// ErrInvalidToken covers malformed tokens, bad signatures and unknown subjects.
	ErrInvalidToken = errors.New("invalid authentication token")

	ErrExpiredToken     = errors.New("authentication token has expired")
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")
	ErrMissingToken     = errors.New("authentication token is missing")

	// ErrRevokedToken means the signature is valid but the jti has no
	// access_tokens row, either after logout or after pruning.
	ErrRevokedToken = errors.New("authentication token has been revoked")
)
