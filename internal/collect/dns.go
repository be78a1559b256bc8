package collect

import (
	"context"
	"net"
)

// Resolver is the subset of net.Resolver the content collector's
// reachability gate needs.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// canResolve reports whether host resolves to at least one address. IP
// literals short-circuit; there is nothing to resolve.
func canResolve(ctx context.Context, r Resolver, host string) bool {
	if net.ParseIP(host) != nil {
		return true
	}
	if r == nil {
		r = net.DefaultResolver
	}
	addrs, err := r.LookupHost(ctx, host)
	return err == nil && len(addrs) > 0
}
