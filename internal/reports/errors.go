package reports

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotEnoughReports = errors.New("comparison needs at least two reports")
	ErrScratchStorage   = errors.New("temporary image storage failed")
)
