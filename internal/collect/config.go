package collect

import "time"

// Config controls the signal collectors. Every network call is bounded by its
// own timeout so one slow source never stalls the whole record.
type Config struct {
	// WhoisAttempts is the number of registration-data lookup tries.
	WhoisAttempts int

	// WhoisBackoff is the fixed wait between failed attempts.
	WhoisBackoff time.Duration

	// WhoisTimeout bounds a single lookup attempt.
	WhoisTimeout time.Duration

	// TLSTimeout bounds the TLS connect+handshake.
	TLSTimeout time.Duration

	// FetchTimeout bounds the page fetch for the content collector.
	FetchTimeout time.Duration

	// CrawlEnabled gates the content collector system-wide. When false the
	// collector returns unmeasured zeros without any network call.
	CrawlEnabled bool
}

// DefaultConfig returns the collector settings used in production.
func DefaultConfig() Config {
	return Config{
		WhoisAttempts: 3,
		WhoisBackoff:  2 * time.Second,
		WhoisTimeout:  5 * time.Second,
		TLSTimeout:    3 * time.Second,
		FetchTimeout:  10 * time.Second,
		CrawlEnabled:  true,
	}
}
