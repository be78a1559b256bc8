// Package store persists analysis verdicts keyed by URL identity, so a
// repeated question about the same URL is answered from cache instead of
// recollected.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no verdict exists for the hash.
var ErrNotFound = errors.New("store: verdict not found")

// CacheRecord is one persisted verdict. URLHash is the cache identity, the
// hex SHA-256 of the normalized URL.
type CacheRecord struct {
	ID      string
	URLHash string
	URL     string

	// HeaderInfo is the flattened response-header context the classifier
	// saw, nil when the probe was skipped or failed.
	HeaderInfo *string

	IsMalicious bool
	Confidence  *float64

	JustificationSummary string

	// RawFeatures is the JSON-encoded feature record kept for audit, nil
	// when feature capture was disabled.
	RawFeatures []byte

	// TrueLabel is a reviewer-supplied ground truth. The pipeline reads it
	// back but never writes it.
	TrueLabel *bool

	UpdatedAt time.Time
}

// Store is the verdict cache contract. Put overwrites an existing verdict
// for the same hash.
type Store interface {
	Get(ctx context.Context, urlHash string) (*CacheRecord, error)
	Put(ctx context.Context, rec *CacheRecord) error
	Close() error
}
