package handlers

import "errors"

var (
	errInvalidID   = errors.New("id must be a UUID")
	errInvalidDate = errors.New("date must be YYYY-MM-DD or RFC 3339")
)
