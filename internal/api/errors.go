package api

import "errors"

var (
	ErrNotFound    = errors.New("order book endpoint not found")
	ErrRateLimited = errors.New("rate limited by API")
	ErrMalformed   = errors.New("malformed order book response")
)
