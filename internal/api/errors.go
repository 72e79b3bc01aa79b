package api

import "errors"

var (
	ErrDispatcherRequired  = errors.New("api: dispatcher is required")
	ErrStorageRequired     = errors.New("api: notification storage is required")
	ErrPreferencesRequired = errors.New("api: preference store is required")
)
