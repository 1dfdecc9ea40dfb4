package portfolio

import "errors"

var (
	ErrMissingFields     = errors.New("please fill in all fields")
	ErrInvalidInput      = errors.New("quantity and cost must be non-negative numbers")
	ErrRowNotFound       = errors.New("holding not found")
	ErrInvalidTargetSlot = errors.New("target slot out of range")
	ErrPriceUnavailable  = errors.New("current price not available")
)
