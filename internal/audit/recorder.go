// Package audit streams service events to Kafka and batches them into
// ClickHouse. Both sinks are optional; a nil sink is skipped.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"telecom-relay/internal/util"
)

const (
	EventQuery      = "query"
	EventLogin      = "login"
	EventCacheClear = "cache_clear"
	EventNotify     = "notify"
)

// Event is one audited action. Phone numbers are masked before they
// reach the recorder.
type Event struct {
	Type      string `json:"type"`
	Phonenum  string `json:"phonenum,omitempty"`
	Success   bool   `json:"success"`
	Cached    bool   `json:"cached,omitempty"`
	SourceIP  string `json:"sourceIp,omitempty"`
	Detail    string `json:"detail,omitempty"`
	LatencyMS int64  `json:"latencyMs,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type eventProducer interface {
	ProduceMessage(ctx context.Context, key, value []byte, headers map[string]string) error
}

type eventSink interface {
	BatchInsert(ctx context.Context, query string, data [][]interface{}) error
}

const insertEventsQuery = `INSERT INTO telecom_events (type, phonenum, success, cached, source_ip, detail, latency_ms, timestamp)`

const createEventsTableQuery = `CREATE TABLE IF NOT EXISTS telecom_events (
	type String,
	phonenum String,
	success Bool,
	cached Bool,
	source_ip String,
	detail String,
	latency_ms Int64,
	timestamp Int64
) ENGINE = MergeTree()
ORDER BY (timestamp, type)`

type schemaExec interface {
	Exec(ctx context.Context, query string, args ...interface{}) error
}

// EnsureSchema creates the events table if it does not exist yet. Run
// once at startup before the first batch flush.
func EnsureSchema(ctx context.Context, exec schemaExec) error {
	return exec.Exec(ctx, createEventsTableQuery)
}

// Recorder fans events out to the configured sinks. Kafka sees every
// event immediately; ClickHouse rows accumulate and flush in batches.
type Recorder struct {
	producer eventProducer
	sink     eventSink
	now      func() time.Time

	mu        sync.Mutex
	pending   [][]interface{}
	batchSize int
}

func NewRecorder(producer eventProducer, sink eventSink) *Recorder {
	return &Recorder{
		producer:  producer,
		sink:      sink,
		now:       time.Now,
		batchSize: 100,
	}
}

// Record stamps and dispatches the event. Sink failures are logged and
// swallowed: auditing never fails the request it describes.
func (r *Recorder) Record(ctx context.Context, event Event) {
	if r == nil || (r.producer == nil && r.sink == nil) {
		return
	}

	if event.Timestamp == 0 {
		event.Timestamp = r.now().UnixMilli()
	}

	if r.producer != nil {
		payload, err := json.Marshal(event)
		if err == nil {
			headers := map[string]string{"event-type": event.Type}
			if err := r.producer.ProduceMessage(ctx, []byte(event.Type), payload, headers); err != nil {
				util.Warn("audit event publish failed",
					util.String("type", event.Type),
					util.ErrorField(err))
			}
		}
	}

	if r.sink != nil {
		r.enqueue(ctx, event)
	}
}

func (r *Recorder) enqueue(ctx context.Context, event Event) {
	r.mu.Lock()
	r.pending = append(r.pending, []interface{}{
		event.Type,
		event.Phonenum,
		event.Success,
		event.Cached,
		event.SourceIP,
		event.Detail,
		event.LatencyMS,
		event.Timestamp,
	})
	ready := len(r.pending) >= r.batchSize
	r.mu.Unlock()

	if ready {
		r.Flush(ctx)
	}
}

// Flush writes any pending rows to ClickHouse. Failed batches are
// dropped after logging; re-queueing would grow without bound while
// the sink is down.
func (r *Recorder) Flush(ctx context.Context) {
	if r == nil || r.sink == nil {
		return
	}

	r.mu.Lock()
	rows := r.pending
	r.pending = nil
	r.mu.Unlock()

	if len(rows) == 0 {
		return
	}

	if err := r.sink.BatchInsert(ctx, insertEventsQuery, rows); err != nil {
		util.Warn("audit batch insert failed",
			util.Int("rows", len(rows)),
			util.ErrorField(err))
	}
}
