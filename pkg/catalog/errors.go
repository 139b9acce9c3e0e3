package catalog

import (
	"fmt"

	"github.com/Sternrassler/pokedex-browser/pkg/client"
)

// Category classifies a page-level fetch failure for display.
type Category string

const (
	// CategoryContext means the catalog cannot be reached from this context
	// at all, e.g. a local-file base URL.
	CategoryContext Category = "context"

	// CategoryNetwork means the list endpoint was unreachable.
	CategoryNetwork Category = "network"

	// CategoryStatus means the list endpoint answered with a failure status.
	CategoryStatus Category = "status"

	// CategoryOther covers everything else, e.g. an undecodable list body.
	CategoryOther Category = "other"
)

const messagePrefix = "Error loading Pokémon."

// FetchError is a page-level failure. Per-entry failures never produce one.
type FetchError struct {
	Category   Category
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("catalog %s error (status %d): %v", e.Category, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("catalog %s error: %v", e.Category, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// UserMessage returns the text shown in place of the results.
func (e *FetchError) UserMessage() string {
	switch e.Category {
	case CategoryContext:
		return messagePrefix + " Important: open this page through an HTTP server, not from a local file."
	case CategoryNetwork:
		return messagePrefix + " Check your internet connection."
	case CategoryStatus:
		return fmt.Sprintf("%s Details: HTTP %d", messagePrefix, e.StatusCode)
	default:
		return fmt.Sprintf("%s Details: %v", messagePrefix, e.Err)
	}
}

// classify wraps a list-call error into a FetchError.
func classify(err error) *FetchError {
	fe := &FetchError{Err: err}

	switch client.Class(err) {
	case client.ErrorClassContext:
		fe.Category = CategoryContext
	case client.ErrorClassNetwork:
		fe.Category = CategoryNetwork
	case client.ErrorClassClient, client.ErrorClassServer:
		fe.Category = CategoryStatus
		fe.StatusCode = client.StatusCode(err)
	default:
		fe.Category = CategoryOther
	}

	return fe
}
