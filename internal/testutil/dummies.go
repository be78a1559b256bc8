// Package testutil holds small shared fakes for package tests. Nothing here
// ships in production builds.
package testutil

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/sqanar/urlguard/internal/webclient"
)

// CountingWebClient wraps another WebClient and counts calls. With a nil
// inner client every call fails, which is handy for asserting "zero network
// calls" paths.
type CountingWebClient struct {
	Inner webclient.WebClient

	calls atomic.Int64
}

func (c *CountingWebClient) Do(ctx context.Context, req *webclient.Request) (*webclient.Response, error) {
	c.calls.Add(1)
	if c.Inner == nil {
		return nil, errors.New("testutil: no inner webclient")
	}
	return c.Inner.Do(ctx, req)
}

func (c *CountingWebClient) Close() error { return nil }

// Calls returns how many Do invocations were observed.
func (c *CountingWebClient) Calls() int { return int(c.calls.Load()) }

// StaticResolver resolves every listed host to 127.0.0.1 and fails the rest.
type StaticResolver struct {
	Hosts map[string]bool
}

func (r *StaticResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	if r.Hosts[host] {
		return []string{"127.0.0.1"}, nil
	}
	return nil, errors.New("testutil: host not found")
}

var _ webclient.WebClient = (*CountingWebClient)(nil)
