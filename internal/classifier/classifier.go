package classifier

import (
	"context"
	"time"
)

// Label is the verdict issued by the external URL classifier.
type Label string

const (
	LabelMalicious  Label = "MALICIOUS"
	LabelLegitimate Label = "LEGITIMATE"

	// LabelFailed marks a classification that could not be obtained. It is
	// never persisted; a later request retries the classifier.
	LabelFailed Label = "FAILED"
)

// Verdict is the classifier output. Confidence is nil when the service did
// not return one, which includes every FAILED verdict.
type Verdict struct {
	Label      Label    `json:"label"`
	Confidence *float64 `json:"confidence,omitempty"`

	// HeaderInfo is the flattened header context the adapter collected
	// from the target, nil when the probe was skipped or returned
	// nothing. Kept for audit by the store, not part of the wire shape.
	HeaderInfo *string `json:"-"`
}

// Failed reports whether this verdict is the degraded placeholder.
func (v Verdict) Failed() bool { return v.Label == LabelFailed }

// Classifier asks an external model for a verdict on a URL. Implementations
// must be total: transport or protocol failures surface as a FAILED verdict,
// never as an error.
type Classifier interface {
	Classify(ctx context.Context, rawURL string) Verdict
}

// Config holds the HTTP adapter settings.
type Config struct {
	// Endpoint receiving the classification POST.
	Endpoint string
	// Timeout bounds one classification round trip, header fetch included.
	Timeout time.Duration
	// HeaderFetchTimeout bounds just the context-header GET against the
	// target URL.
	HeaderFetchTimeout time.Duration
}

// DefaultConfig returns the adapter settings used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Endpoint:           "http://127.0.0.1:8090/classify",
		Timeout:            15 * time.Second,
		HeaderFetchTimeout: 5 * time.Second,
	}
}
