// Package config loads, validates and watches the gateway configuration.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfigWithEnvOverrides("aicentral.yaml")
//
// Loading runs in this order (later overrides earlier):
//
//  1. Default values (defaults.go)
//  2. ${VAR} and ${VAR:-default} references expanded from the environment
//  3. Values from the YAML file
//  4. AICENTRAL_* environment overrides
//  5. Validation (fails fast, reporting every error)
//
// # Environment Variable Overrides
//
//   - AICENTRAL_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - AICENTRAL_LOG_LEVEL overrides telemetry.logging.level
//   - AICENTRAL_TRACING_ENABLED overrides telemetry.tracing.enabled
//
// # Components and Pipelines
//
// Four sections hold named components of a registered type: endpoints,
// endpoint_selectors, auth_providers and generic_steps. Each entry's
// properties are decoded by the builder registered for its type. Pipelines
// refer to components by name:
//
//	endpoints:
//	  - type: AzureOpenAIEndpoint
//	    name: east
//	    properties:
//	      url: https://east.openai.azure.com
//	      model_mappings: { gpt-4o: gpt-4o-prod }
//	      auth: { type: api_key, key: "${EAST_KEY}" }
//
//	endpoint_selectors:
//	  - type: RandomCluster
//	    name: pool
//	    properties:
//	      endpoints: [east, west]
//
//	auth_providers:
//	  - type: AllowAnonymous
//	    name: anonymous
//
//	pipelines:
//	  - name: main
//	    host: gateway.example.com
//	    auth_provider: anonymous
//	    endpoint_selector: pool
//
// # Reloading
//
// Watcher reloads the file after it changes. The caller rebuilds its
// pipelines from the new Config and swaps them in; a file that fails to
// load keeps the previous configuration in effect.
package config
