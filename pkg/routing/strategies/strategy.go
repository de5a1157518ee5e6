// Package strategies provides the endpoint selectors a pipeline can end
// with.
//
//   - Single: one endpoint; its failure is the request's failure.
//   - Random: every endpoint in a fresh random order, each tried once.
//   - Priority: the primary group in random order, then the fallback group
//     in random order.
//
// All selectors implement pipeline.Selector and are safe for concurrent use.
package strategies

import (
	"fmt"
	"math/rand/v2"

	"aicentral-hq/gateway/pkg/pipeline"
	"aicentral-hq/gateway/pkg/routing"
)

// Shuffler reorders candidates in place.
type Shuffler func(candidates []routing.Dispatcher)

// RandomShuffle shuffles uniformly using the process-wide generator.
func RandomShuffle(candidates []routing.Dispatcher) {
	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
}

// spreadable reports whether call can be sent to any of several endpoints.
// Calls without a model whose body is opaque (image jobs and their polling
// operations, for example) only make sense against the endpoint that
// created them.
func spreadable(call *pipeline.Call) bool {
	return call.Details.Addressed() || call.Details.BodyParsed()
}

func endpointNames(dispatchers []routing.Dispatcher) []string {
	names := make([]string, len(dispatchers))
	for i, d := range dispatchers {
		names[i] = d.Name()
	}
	return names
}

// distinct rejects an endpoint that appears more than once across groups. A
// repeated endpoint would be dispatched to twice in one request.
func distinct(groups ...[]routing.Dispatcher) error {
	seen := make(map[string]bool)
	for _, group := range groups {
		for _, d := range group {
			if seen[d.Name()] {
				return fmt.Errorf("endpoint %q is listed more than once", d.Name())
			}
			seen[d.Name()] = true
		}
	}
	return nil
}
