package utils

import "errors"

// Common application errors used across services.
var (
	ErrPassInProgress  = errors.New("PASS_IN_PROGRESS")
	ErrNoReport        = errors.New("NO_REPORT")
	ErrProductNotFound = errors.New("PRODUCT_NOT_FOUND")
)
