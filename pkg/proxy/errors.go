package proxy

import (
	"errors"
	"net/http"

	"aicentral-hq/gateway/pkg/pipeline"
	"aicentral-hq/gateway/pkg/proxy/types"
	"aicentral-hq/gateway/pkg/telemetry/logging"
)

// internalErrorMessage replaces the message of errors the gateway did not
// classify, so internal details never reach the caller.
const internalErrorMessage = "An internal error occurred. Please try again later."

var redactor = mustRedactor()

func mustRedactor() *logging.Redactor {
	r, err := logging.NewRedactor(nil)
	if err != nil {
		panic(err)
	}
	return r
}

// HandleError converts any pipeline error to the HTTP status and
// OpenAI-compatible error body returned to the caller.
//
// Example usage:
//
//	if err != nil {
//	    status, errResp := HandleError(err)
//	    WriteJSONResponse(w, status, errResp)
//	    return
//	}
func HandleError(err error) (int, *types.ErrorResponse) {
	gwErr := types.AsGatewayError(err)

	status := gwErr.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	message := gwErr.Message
	if gwErr.Class == types.ClassUnknown {
		message = internalErrorMessage
	}

	return status, types.NewErrorResponse(
		SanitizeError(message),
		types.ErrorTypeForStatus(status),
		"",
		gwErr.Code,
	)
}

// WriteError renders err for the caller. A failure that carries a complete
// downstream response is surfaced with the downstream status and body.
// Diagnostic headers are added in both cases.
func WriteError(w http.ResponseWriter, call *pipeline.Call, err error) error {
	var dr types.DownstreamResponder
	if errors.As(err, &dr) {
		if resp := dr.DownstreamResponse(); resp != nil {
			return WriteResponse(w, call, resp)
		}
	}

	status, errResp := HandleError(err)
	ApplyDiagnostics(w.Header(), call)
	return WriteJSONResponse(w, status, errResp)
}

// SanitizeError removes credentials from an error message before it is
// returned to the caller.
//
// Sensitive patterns removed:
//   - API keys (sk-*, api-key=*)
//   - Bearer tokens
//   - client secrets and passwords in query strings
func SanitizeError(message string) string {
	return redactor.RedactString(message)
}
