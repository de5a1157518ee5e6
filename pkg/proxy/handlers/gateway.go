package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"aicentral-hq/gateway/pkg/classify"
	"aicentral-hq/gateway/pkg/pipeline"
	"aicentral-hq/gateway/pkg/proxy"
	"aicentral-hq/gateway/pkg/proxy/types"
	"aicentral-hq/gateway/pkg/telemetry/logging"
)

// GatewayHandler serves every inbound AI call. It routes the request by Host
// to a pipeline, classifies it, runs the pipeline and materializes the
// outcome for the caller.
type GatewayHandler struct {
	pipelines  *pipeline.Set
	classifier *classify.Classifier
}

// NewGatewayHandler creates a gateway handler over the active pipeline set.
// A nil classifier uses classify.Default().
func NewGatewayHandler(pipelines *pipeline.Set, classifier *classify.Classifier) *GatewayHandler {
	if classifier == nil {
		classifier = classify.Default()
	}
	return &GatewayHandler{
		pipelines:  pipelines,
		classifier: classifier,
	}
}

// ServeHTTP implements http.Handler.
func (h *GatewayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	p, err := h.pipelines.Router().Route(r.Host)
	if err != nil {
		h.reject(w, r, start, "", err)
		return
	}
	ctx = logging.WithPipeline(ctx, p.Name())

	details, err := h.classifier.Classify(r.WithContext(ctx))
	if err != nil {
		h.reject(w, r.WithContext(ctx), start, p.Name(), err)
		return
	}
	if details.Model != "" {
		ctx = logging.WithModel(ctx, details.Model)
	}

	r = r.WithContext(ctx)
	call := pipeline.NewCall(r, w, details)
	call.Started = start

	resp, err := p.Execute(ctx, call)
	if err != nil {
		if werr := proxy.WriteError(w, call, err); werr != nil {
			slog.WarnContext(ctx, "failed to write error response", "error", werr)
		}
		logCompletion(r, call, types.StatusOf(err), err)
		return
	}

	if werr := proxy.WriteResponse(w, call, resp); werr != nil {
		slog.WarnContext(ctx, "failed to write response", "error", werr)
	}
	logCompletion(r, call, resp.StatusCode, nil)
}

// reject answers a request that failed before a pipeline call existed.
func (h *GatewayHandler) reject(w http.ResponseWriter, r *http.Request, start time.Time, pipelineName string, err error) {
	call := pipeline.NewCall(r, w, classify.CallDetails{})
	call.Pipeline = pipelineName
	call.Started = start

	if werr := proxy.WriteError(w, call, err); werr != nil {
		slog.WarnContext(r.Context(), "failed to write error response", "error", werr)
	}
	logCompletion(r, call, types.StatusOf(err), err)
}

func logCompletion(r *http.Request, call *pipeline.Call, status int, err error) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}

	attrs := []any{
		"method", r.Method,
		"host", r.Host,
		"path", r.URL.Path,
		"call_type", call.Details.CallType.String(),
		"status", status,
		"latency_ms", time.Since(call.Started).Milliseconds(),
	}
	if err != nil {
		attrs = append(attrs, "error", err.Error())
	}
	slog.Log(r.Context(), level, "gateway call completed", attrs...)
}
