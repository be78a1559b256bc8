// Command urlguard performs a one-shot analysis of a single URL and prints
// the verdict.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sqanar/urlguard/internal/app"
	"github.com/sqanar/urlguard/internal/cli"
	"github.com/sqanar/urlguard/internal/logging"
)

func main() {
	args, err := cli.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "urlguard: %v\n", err)
		fmt.Fprintln(os.Stderr, "usage: urlguard -url <target> [-db path] [-no-crawl] [-classifier url] [-json]")
		os.Exit(2)
	}

	cfg := app.DefaultConfig()
	cfg.ApplyEnv()
	if args.DBPath != "" {
		cfg.StoragePath = args.DBPath
	}
	if args.NoCrawl {
		cfg.CollectCfg.CrawlEnabled = false
	}
	if args.ClassifierURL != "" {
		cfg.ClassifierCfg.Endpoint = args.ClassifierURL
	}

	logger := logging.NewStdoutLogger("urlguard")
	application, err := app.NewApplication(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "urlguard: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := application.Analyzer.AnalyzeURL(ctx, args.URL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "urlguard: %v\n", err)
		os.Exit(1)
	}

	if args.JSONOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			fmt.Fprintf(os.Stderr, "urlguard: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Printf("%s\n", res.URL)
	fmt.Printf("verdict: %s", res.Label)
	if res.Confidence != nil {
		fmt.Printf(" (confidence %.2f)", *res.Confidence)
	}
	if res.FromCache {
		fmt.Print(" [cached]")
	}
	fmt.Println()
	for _, j := range res.Justifications {
		fmt.Printf("  - %s\n", j)
	}
}
