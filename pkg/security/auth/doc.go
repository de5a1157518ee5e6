/*
Package auth provides the caller authentication gates that open every
pipeline.

Three gates exist:

  - AllowAnonymous passes every request.
  - APIKeyGate accepts a request presenting any key of a configured client.
    Each client holds one or two keys so a key can be rotated without
    downtime.
  - EntraPassthrough requires a syntactically valid JWT bearer token and
    leaves signature and audience checks to the downstream service.

# Basic Usage

	validator, err := auth.NewAPIKeyValidator([]auth.Client{
		{Name: "billing", Keys: []string{"key-2024", "key-2025"}},
	})
	if err != nil {
		return err
	}
	gate := auth.NewAPIKeyGate("client-keys", validator, auth.DefaultKeySources)

Gates are pipeline.Step values. A rejected request fails with a 401
types.GatewayError and the rest of the chain does not run. The
authenticated client is available to later steps through ClientFrom.
*/
package auth
