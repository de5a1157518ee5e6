// Package pipelinefactory turns a configuration into running pipelines.
//
// Every component entry names a type. The Registry maps type names to
// factories that decode the entry's properties and build the component:
//
//   - Endpoints: AzureOpenAIEndpoint, OpenAIEndpoint
//   - Endpoint selectors: SingleEndpoint, RandomCluster, Prioritised
//   - Auth providers: AllowAnonymous, ApiKey, EntraPassThrough
//   - Generic steps: FixedWindowRateLimiter, BulkHead
//
// Build resolves the pipelines' references and returns a Router. Runtime
// keeps the active Router in a pipeline.Set and rebuilds it on Reload:
//
//	rt, err := pipelinefactory.NewRuntime(cfg, pipelinefactory.Options{Sink: sink})
//	if err != nil {
//	    return err
//	}
//	handler := handlers.NewGatewayHandler(rt.Pipelines(), classifier)
//	...
//	watcher.Watch(ctx, rt.Reload)
//
// Custom types are added with the Register methods before building.
package pipelinefactory
