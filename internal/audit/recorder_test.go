package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProducer struct {
	mu       sync.Mutex
	messages []Event
	keys     []string
	err      error
}

func (f *fakeProducer) ProduceMessage(ctx context.Context, key, value []byte, headers map[string]string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var event Event
	if err := json.Unmarshal(value, &event); err != nil {
		return err
	}
	f.messages = append(f.messages, event)
	f.keys = append(f.keys, string(key))
	return nil
}

type fakeSink struct {
	mu      sync.Mutex
	batches [][][]interface{}
	err     error
}

func (f *fakeSink) BatchInsert(ctx context.Context, query string, data [][]interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, data)
	return nil
}

func TestRecorderPublishesToKafka(t *testing.T) {
	t.Parallel()

	producer := &fakeProducer{}
	recorder := NewRecorder(producer, nil)
	recorder.now = func() time.Time { return time.UnixMilli(1700000000000) }

	recorder.Record(context.Background(), Event{
		Type:     EventQuery,
		Phonenum: "138****8000",
		Success:  true,
		Cached:   true,
	})

	require.Len(t, producer.messages, 1)
	assert.Equal(t, EventQuery, producer.messages[0].Type)
	assert.Equal(t, "138****8000", producer.messages[0].Phonenum)
	assert.True(t, producer.messages[0].Cached)
	assert.Equal(t, int64(1700000000000), producer.messages[0].Timestamp)
	assert.Equal(t, EventQuery, producer.keys[0])
}

func TestRecorderBatchesForClickHouse(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	recorder := NewRecorder(nil, sink)
	recorder.batchSize = 3
	ctx := context.Background()

	recorder.Record(ctx, Event{Type: EventLogin})
	recorder.Record(ctx, Event{Type: EventLogin})
	assert.Empty(t, sink.batches)

	recorder.Record(ctx, Event{Type: EventLogin})
	require.Len(t, sink.batches, 1)
	assert.Len(t, sink.batches[0], 3)
}

func TestRecorderFlushDrainsPending(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	recorder := NewRecorder(nil, sink)
	ctx := context.Background()

	recorder.Record(ctx, Event{Type: EventCacheClear})
	recorder.Flush(ctx)

	require.Len(t, sink.batches, 1)
	assert.Len(t, sink.batches[0], 1)

	// A second flush with nothing pending writes nothing.
	recorder.Flush(ctx)
	assert.Len(t, sink.batches, 1)
}

func TestRecorderSwallowsSinkErrors(t *testing.T) {
	t.Parallel()

	producer := &fakeProducer{err: errors.New("broker down")}
	sink := &fakeSink{err: errors.New("clickhouse down")}
	recorder := NewRecorder(producer, sink)
	ctx := context.Background()

	recorder.Record(ctx, Event{Type: EventQuery})
	recorder.Flush(ctx)
}

func TestRecorderNilSinksNoOp(t *testing.T) {
	t.Parallel()

	recorder := NewRecorder(nil, nil)
	recorder.Record(context.Background(), Event{Type: EventQuery})
	recorder.Flush(context.Background())

	var nilRecorder *Recorder
	nilRecorder.Record(context.Background(), Event{Type: EventQuery})
	nilRecorder.Flush(context.Background())
}

type fakeExec struct {
	queries []string
	err     error
}

func (f *fakeExec) Exec(ctx context.Context, query string, args ...interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.queries = append(f.queries, query)
	return nil
}

func TestEnsureSchemaCreatesEventsTable(t *testing.T) {
	t.Parallel()

	exec := &fakeExec{}
	require.NoError(t, EnsureSchema(context.Background(), exec))
	require.Len(t, exec.queries, 1)
	assert.Contains(t, exec.queries[0], "CREATE TABLE IF NOT EXISTS telecom_events")
	assert.Contains(t, exec.queries[0], "ENGINE = MergeTree()")

	failing := &fakeExec{err: errors.New("clickhouse down")}
	assert.Error(t, EnsureSchema(context.Background(), failing))
}
