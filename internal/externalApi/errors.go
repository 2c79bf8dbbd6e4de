package externalApi

import "errors"

var (
	ErrNoData   = errors.New("no data returned by quote source")
	ErrNotFound = errors.New("symbol not found")
)
