// aicentral is a reverse proxy for OpenAI and Azure OpenAI traffic.
//
// Each inbound Host is bound to a pipeline that authenticates the caller,
// applies rate limits and concurrency caps, and dispatches the call to one
// of a set of downstream endpoints with retries, failover and circuit
// breaking.
//
// Usage:
//
//	# Start the gateway
//	aicentral serve --config gateway.yaml
//
//	# Reload pipelines when the file changes
//	aicentral serve --config gateway.yaml --watch
//
//	# Check a configuration file and print the pipelines it defines
//	aicentral validate --config gateway.yaml
//
//	# Show version information
//	aicentral version
package main

func main() {
	Execute()
}
