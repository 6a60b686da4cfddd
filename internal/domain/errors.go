package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidTrade   = errors.New("invalid trade event")
	ErrNotRunning     = errors.New("monitor not running")
	ErrAlreadyRunning = errors.New("monitor already running")
	ErrRateLimited    = errors.New("rate limited")
	ErrWSDisconnect   = errors.New("websocket disconnected")
)
