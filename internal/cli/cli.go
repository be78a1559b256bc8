package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// CLIArgs are the command-line arguments for a single analysis run.
type CLIArgs struct {
	// URL is the target to analyze.
	URL string

	// DBPath overrides the verdict-cache location; empty keeps the config
	// default.
	DBPath string

	// NoCrawl disables the content collector for this run.
	NoCrawl bool

	// ClassifierURL overrides the classification service endpoint.
	ClassifierURL string

	// JSONOutput prints the full result as JSON instead of a summary.
	JSONOutput bool

	// RawArgs is the original args slice (useful for debugging/tests).
	RawArgs []string
}

// ParseArgs parses a slice of args and returns CLIArgs. Deterministic and
// does not read os.Args, so tests can pass arbitrary slices.
func ParseArgs(args []string) (*CLIArgs, error) {
	fs := flag.NewFlagSet("urlguard", flag.ContinueOnError)
	var (
		url           = fs.String("url", "", "URL to analyze (required)")
		dbPath        = fs.String("db", "", "Verdict cache path (empty = config default)")
		noCrawl       = fs.Bool("no-crawl", false, "Skip the page-content collector")
		classifierURL = fs.String("classifier", "", "Classification service endpoint override")
		jsonOut       = fs.Bool("json", false, "Print the full result as JSON")
	)
	fs.SetOutput(io.Discard)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if strings.TrimSpace(*url) == "" {
		return nil, fmt.Errorf("missing required -url argument")
	}

	return &CLIArgs{
		URL:           *url,
		DBPath:        *dbPath,
		NoCrawl:       *noCrawl,
		ClassifierURL: *classifierURL,
		JSONOutput:    *jsonOut,
		RawArgs:       args,
	}, nil
}
