package preflight

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
)

// guardedDialer blocks every dial except to loopback addresses, used by
// CheckNoEgress to prove a representative operation makes no outbound
// network connection.
type guardedDialer struct {
	mu      sync.Mutex
	blocked []string
}

func (g *guardedDialer) dialContext(_ context.Context, _, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	if !isLoopbackHost(host) {
		g.mu.Lock()
		g.blocked = append(g.blocked, addr)
		g.mu.Unlock()
	}
	return nil, fmt.Errorf("egress blocked by preflight self-test: %s", addr)
}

func isLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// CheckNoEgress installs a dial guard on http.DefaultTransport for the
// duration of run, then reports whether run attempted any non-loopback
// network connection. The engine makes no outbound network calls by
// design — the embedder and Korean analyzer are local-process or
// local-shared-library only — so a StatusFail here means something in
// the call graph reached for the network unexpectedly, not that the
// guard itself failed.
//
// run is expected to exercise a representative operation (e.g. one
// indexing pass over a small fixture directory) under the guard; it is
// not the self-test's job to prove every code path is network-free, only
// the one it actually runs.
func (c *Checker) CheckNoEgress(run func(ctx context.Context)) CheckResult {
	result := CheckResult{Name: "no_network_egress", Required: true}

	transport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		result.Status = StatusWarn
		result.Message = "cannot install egress guard: unexpected default transport type"
		return result
	}

	guard := &guardedDialer{}
	original := transport.DialContext
	transport.DialContext = guard.dialContext
	defer func() { transport.DialContext = original }()

	run(context.Background())

	guard.mu.Lock()
	blocked := append([]string(nil), guard.blocked...)
	guard.mu.Unlock()

	if len(blocked) > 0 {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("detected %d unexpected outbound connection attempt(s)", len(blocked))
		result.Details = fmt.Sprintf("blocked: %v", blocked)
		return result
	}

	result.Status = StatusPass
	result.Message = "no outbound network activity detected"
	return result
}
