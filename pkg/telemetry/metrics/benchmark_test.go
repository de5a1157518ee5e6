package metrics

import (
	"context"
	"testing"
	"time"

	"aicentral-hq/gateway/pkg/proxy/types"
	"aicentral-hq/gateway/pkg/telemetry"
)

func benchmarkEvent() telemetry.RequestEvent {
	return telemetry.RequestEvent{
		Pipeline: "main",
		Endpoint: "east",
		CallType: "chat",
		Model:    "gpt-35",
		Status:   200,
		Outcome:  telemetry.OutcomeSuccess,
		Duration: time.Second,
		Usage:    &types.Usage{PromptTokens: 500, CompletionTokens: 1000, TotalTokens: 1500},
	}
}

// Benchmark_Collector_RecordRequest benchmarks request recording
func Benchmark_Collector_RecordRequest(b *testing.B) {
	collector := NewCollector(testConfig(), nil)
	ctx := context.Background()
	ev := benchmarkEvent()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		collector.RecordRequest(ctx, ev)
	}
}

// Benchmark_Collector_RecordRequest_Parallel benchmarks parallel request recording
func Benchmark_Collector_RecordRequest_Parallel(b *testing.B) {
	collector := NewCollector(testConfig(), nil)
	ctx := context.Background()
	ev := benchmarkEvent()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			collector.RecordRequest(ctx, ev)
		}
	})
}

// Benchmark_Collector_RecordAttempt benchmarks attempt recording
func Benchmark_Collector_RecordAttempt(b *testing.B) {
	collector := NewCollector(testConfig(), nil)
	ctx := context.Background()
	ev := telemetry.AttemptEvent{Endpoint: "east", Attempt: 1, Outcome: telemetry.OutcomeSuccess, Duration: time.Second}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		collector.RecordAttempt(ctx, ev)
	}
}
