package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	runsStartedTotal   atomic.Uint64
	runsCompletedTotal atomic.Uint64
	runsFailedTotal    atomic.Uint64
	runsTimedOutTotal  atomic.Uint64

	analyzersProvisionedTotal atomic.Uint64
	analyzersReusedTotal      atomic.Uint64
	resultSkewRetriesTotal    atomic.Uint64

	jobsReceivedTotal             atomic.Uint64
	jobsCompletedTotal            atomic.Uint64
	jobsFailedTotal               atomic.Uint64
	jobsDeletedUnrecoverableTotal atomic.Uint64

	runDuration = newHistogram([]float64{1000, 5000, 15000, 30000, 60000, 120000, 300000, 600000})
)

// IncRunStarted increments the started counter.
func IncRunStarted() { runsStartedTotal.Add(1) }

// IncRunCompleted increments the completed counter.
func IncRunCompleted() { runsCompletedTotal.Add(1) }

// IncRunFailed increments the failed counter.
func IncRunFailed() { runsFailedTotal.Add(1) }

// IncRunTimedOut increments the timed-out counter.
func IncRunTimedOut() { runsTimedOutTotal.Add(1) }

// IncAnalyzerProvisioned increments the provisioned counter.
func IncAnalyzerProvisioned() { analyzersProvisionedTotal.Add(1) }

// IncAnalyzerReused increments the reuse counter.
func IncAnalyzerReused() { analyzersReusedTotal.Add(1) }

// IncResultSkewRetry counts one interim result payload that forced a backoff.
func IncResultSkewRetry() { resultSkewRetriesTotal.Add(1) }

// IncJobReceived counts a queue message picked up by the worker.
func IncJobReceived() { jobsReceivedTotal.Add(1) }

// IncJobCompleted counts a queue message processed and deleted.
func IncJobCompleted() { jobsCompletedTotal.Add(1) }

// IncJobFailed counts a queue message left on the queue for redelivery.
func IncJobFailed() { jobsFailedTotal.Add(1) }

// IncJobDeletedUnrecoverable counts a malformed message dropped without
// processing.
func IncJobDeletedUnrecoverable() { jobsDeletedUnrecoverableTotal.Add(1) }

// ObserveRunDurationMs records a run duration in milliseconds.
func ObserveRunDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	runDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "extraction_runs_started_total", "Total extraction runs started", runsStartedTotal.Load())
	writeCounter(&buf, "extraction_runs_completed_total", "Total extraction runs completed", runsCompletedTotal.Load())
	writeCounter(&buf, "extraction_runs_failed_total", "Total extraction runs failed", runsFailedTotal.Load())
	writeCounter(&buf, "extraction_runs_timed_out_total", "Total extraction runs timed out", runsTimedOutTotal.Load())
	writeCounter(&buf, "analyzers_provisioned_total", "Total analyzers provisioned", analyzersProvisionedTotal.Load())
	writeCounter(&buf, "analyzers_reused_total", "Total analyzer reuses", analyzersReusedTotal.Load())
	writeCounter(&buf, "result_skew_retries_total", "Total interim result payloads retried with backoff", resultSkewRetriesTotal.Load())
	writeCounter(&buf, "extraction_jobs_received_total", "Total queue messages received", jobsReceivedTotal.Load())
	writeCounter(&buf, "extraction_jobs_completed_total", "Total queue messages completed", jobsCompletedTotal.Load())
	writeCounter(&buf, "extraction_jobs_failed_total", "Total queue messages failed", jobsFailedTotal.Load())
	writeCounter(&buf, "extraction_jobs_deleted_unrecoverable_total", "Total malformed queue messages dropped", jobsDeletedUnrecoverableTotal.Load())
	writeHistogram(&buf, "extraction_run_duration_ms", "Extraction run duration in milliseconds", runDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
