package pipeline

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"

	"aicentral-hq/gateway/pkg/proxy/types"
)

// Router maps an inbound Host header to exactly one Pipeline.
type Router struct {
	pipelines []*Pipeline
}

// NewRouter creates a Router. Pipelines are matched in the given order.
func NewRouter(pipelines []*Pipeline) *Router {
	cp := make([]*Pipeline, len(pipelines))
	copy(cp, pipelines)
	return &Router{pipelines: cp}
}

// Route returns the first pipeline whose host equals the request host,
// compared case-insensitively with any port removed. Unmatched hosts fail
// with a 404 client error.
func (r *Router) Route(host string) (*Pipeline, error) {
	h := stripPort(host)
	for _, p := range r.pipelines {
		if strings.EqualFold(p.host, h) {
			return p, nil
		}
	}
	return nil, types.NewClientError(http.StatusNotFound, types.CodeUnroutedHost,
		fmt.Sprintf("no pipeline is configured for host %q", h))
}

// Pipelines returns the routed pipelines in match order.
func (r *Router) Pipelines() []*Pipeline {
	cp := make([]*Pipeline, len(r.pipelines))
	copy(cp, r.pipelines)
	return cp
}

func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

// Set holds the active Router. Reconfiguration builds a complete new Router
// and swaps it in; requests already in flight keep the Router they started
// with.
type Set struct {
	current atomic.Pointer[Router]
}

// NewSet creates a Set serving r.
func NewSet(r *Router) *Set {
	s := &Set{}
	s.current.Store(r)
	return s
}

// Router returns the active Router.
func (s *Set) Router() *Router {
	return s.current.Load()
}

// Swap installs r and returns the previously active Router.
func (s *Set) Swap(r *Router) *Router {
	return s.current.Swap(r)
}
