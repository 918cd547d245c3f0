package auth

import "errors"

var (
	ErrNotConfigured       = errors.New("oauth client is not configured")
	ErrInteractionRequired = errors.New("user interaction required")
)
