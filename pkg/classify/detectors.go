package classify

import (
	"net/http"
	"strings"
)

const (
	azurePrefix       = "/openai"
	azureDeployments  = "deployments"
	openAIPrefix      = "/v1"
	pathSeparator     = "/"
	deploymentSegment = 2
)

// AzureOpenAI recognizes /openai/... paths. Deployment-scoped operations
// take the model from the path; anything else is classified without a model.
type AzureOpenAI struct{}

// Dialect implements Detector.
func (AzureOpenAI) Dialect() Dialect { return DialectAzureOpenAI }

// CanClassify implements Detector.
func (AzureOpenAI) CanClassify(r *http.Request) bool {
	return hasSegmentPrefix(r.URL.Path, azurePrefix)
}

// Classify implements Detector.
func (AzureOpenAI) Classify(r *http.Request, body []byte) (CallDetails, error) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, azurePrefix), pathSeparator)

	details := CallDetails{
		Dialect: DialectAzureOpenAI,
		Body:    body,
	}

	segments := strings.SplitN(rest, pathSeparator, deploymentSegment+1)
	if len(segments) == deploymentSegment+1 && segments[0] == azureDeployments {
		details.Model = segments[1]
		details.Operation = segments[2]
	} else {
		details.Operation = rest
	}
	details.CallType = callTypeFor(details.Operation)

	// Deployment-less operations are not inspected even when their name
	// matches a parsed call type; they have no model to map.
	if !details.CallType.bodyParsed() || details.Model == "" {
		return details, nil
	}

	if err := parseBody(&details, false); err != nil {
		return CallDetails{}, err
	}
	return details, nil
}

// OpenAI recognizes /v1/... paths. The model is read from the JSON body of
// parsed operations.
type OpenAI struct{}

// Dialect implements Detector.
func (OpenAI) Dialect() Dialect { return DialectOpenAI }

// CanClassify implements Detector.
func (OpenAI) CanClassify(r *http.Request) bool {
	return hasSegmentPrefix(r.URL.Path, openAIPrefix)
}

// Classify implements Detector.
func (OpenAI) Classify(r *http.Request, body []byte) (CallDetails, error) {
	operation := strings.Trim(strings.TrimPrefix(r.URL.Path, openAIPrefix), pathSeparator)

	details := CallDetails{
		Dialect:   DialectOpenAI,
		Operation: operation,
		CallType:  callTypeFor(operation),
		Body:      body,
	}

	if !details.CallType.bodyParsed() {
		return details, nil
	}

	if err := parseBody(&details, true); err != nil {
		return CallDetails{}, err
	}
	return details, nil
}

// hasSegmentPrefix reports whether path starts with prefix on a segment
// boundary, so "/openai" matches "/openai/x" but not "/openaix".
func hasSegmentPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}
