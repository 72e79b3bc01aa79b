package template

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

var (
	// ErrCatalogRequired indicates a nil catalog filesystem was passed to New.
	ErrCatalogRequired = errors.New("catalog filesystem is required")

	// ErrNoCatalog indicates the filesystem held no locale catalog files.
	ErrNoCatalog = errors.New("no catalog files found")

	// ErrInvalidCatalog indicates a catalog file that could not be parsed or
	// holds an unusable entry.
	ErrInvalidCatalog = errors.New("invalid catalog")

	// ErrRenderFailed indicates template execution failed for a reason other
	// than a missing variable.
	ErrRenderFailed = errors.New("render failed")
)

// TemplateNotFoundError reports that neither the requested locale nor the
// default locale has a template for the type and channel.
type TemplateNotFoundError struct {
	Type    notification.Type
	Channel notification.Channel
	Locale  string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("no template for %s/%s in locale %q", e.Channel, e.Type, e.Locale)
}

// IsTemplateNotFound reports whether err is a TemplateNotFoundError.
func IsTemplateNotFound(err error) bool {
	var e *TemplateNotFoundError
	return errors.As(err, &e)
}

// UndefinedVariableError reports a template referencing a variable the
// sanitized context does not provide.
type UndefinedVariableError struct {
	// Variable is the missing key when it could be extracted from the
	// execution error, empty otherwise.
	Variable string
	cause    error
}

func (e *UndefinedVariableError) Error() string {
	if e.Variable == "" {
		return "undefined template variable"
	}
	return fmt.Sprintf("undefined template variable %q", e.Variable)
}

func (e *UndefinedVariableError) Unwrap() error { return e.cause }

// IsUndefinedVariable reports whether err is an UndefinedVariableError.
func IsUndefinedVariable(err error) bool {
	var e *UndefinedVariableError
	return errors.As(err, &e)
}

// FilterError reports a rejected filter registration.
type FilterError struct {
	Name   string
	Reason string
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("filter %q: %s", e.Name, e.Reason)
}

// IsFilterError reports whether err is a FilterError.
func IsFilterError(err error) bool {
	var e *FilterError
	return errors.As(err, &e)
}
