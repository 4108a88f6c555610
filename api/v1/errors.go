package v1

import "errors"

var (
	ErrContentType = errors.New("Content-Type must be application/json")
	ErrContentID   = errors.New("contentId is required")
	ErrAction      = errors.New("action must be pause or resume")
)
