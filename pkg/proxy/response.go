package proxy

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"aicentral-hq/gateway/pkg/pipeline"
	"aicentral-hq/gateway/pkg/proxy/types"
)

// WriteResponse materializes a pipeline result for the caller.
//
// A buffered response has its status, forwardable headers and body copied
// as is, with the content type defaulted to JSON and the diagnostic headers
// added. A streamed response was already written during dispatch, so
// nothing is done.
func WriteResponse(w http.ResponseWriter, call *pipeline.Call, resp *types.Response) error {
	if resp.Streamed {
		return nil
	}

	ApplyResponseHeaders(w.Header(), call, resp)
	if w.Header().Get("Content-Type") == "" && len(resp.Body) > 0 {
		w.Header().Set("Content-Type", "application/json")
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(resp.Body)))
	w.WriteHeader(resp.StatusCode)

	if _, err := w.Write(resp.Body); err != nil {
		return fmt.Errorf("failed to write response body: %w", err)
	}
	return nil
}

// BeginStream writes the status line and headers of a streamed downstream
// response. The caller then copies the body with FlushWriter.
func BeginStream(w http.ResponseWriter, call *pipeline.Call, resp *types.Response) {
	ApplyResponseHeaders(w.Header(), call, resp)
	w.Header().Del("Content-Length")
	w.WriteHeader(resp.StatusCode)
	Flush(w)
}

// ApplyResponseHeaders copies resp's forwardable headers into h and adds the
// gateway's diagnostic headers.
func ApplyResponseHeaders(h http.Header, call *pipeline.Call, resp *types.Response) {
	if resp.Header != nil {
		CopyResponseHeaders(h, resp.Header)
	}
	if resp.EndpointID != "" {
		h.Set(types.EndpointHeader, resp.EndpointID)
	}
	ApplyDiagnostics(h, call)
}

// ApplyDiagnostics adds the headers recorded by pipeline steps and the
// elapsed gateway time.
func ApplyDiagnostics(h http.Header, call *pipeline.Call) {
	if call == nil {
		return
	}
	for key, values := range call.Diagnostics() {
		h[key] = append([]string(nil), values...)
	}
	h.Set(types.DurationHeader, strconv.FormatInt(time.Since(call.Started).Milliseconds(), 10))
}

// Flush sends any buffered data to the caller if the writer supports it.
func Flush(w http.ResponseWriter) {
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// FlushWriter flushes after every write so streamed chunks reach the caller
// as they arrive.
type FlushWriter struct {
	W http.ResponseWriter
}

// Write implements io.Writer.
func (fw FlushWriter) Write(p []byte) (int, error) {
	n, err := fw.W.Write(p)
	Flush(fw.W)
	return n, err
}

// WriteJSONResponse writes a JSON response to the HTTP response writer.
// It sets the appropriate content-type header and handles marshaling errors.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}

	return nil
}
