package ingest

import "errors"

var (
	ErrSourceRequired     = errors.New("ingest: message source is required")
	ErrDispatcherRequired = errors.New("ingest: dispatcher is required")
)
