package gateway

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"rounds-service/internal/docstore"
)

// WriteQueue retries non-critical merge writes (autosaves, progress ticks) a
// bounded number of times before declaring the write lost. Critical
// transitions (start, complete, warning increments) bypass it and write
// synchronously.
type WriteQueue struct {
	store   docstore.Store
	log     *zap.Logger
	retries int
	backoff time.Duration

	ch   chan docstore.Write
	wg   sync.WaitGroup
	once sync.Once
}

func NewWriteQueue(store docstore.Store, log *zap.Logger, depth, retries int, backoff time.Duration) *WriteQueue {
	if depth <= 0 {
		depth = 64
	}
	if retries <= 0 {
		retries = 3
	}
	q := &WriteQueue{
		store:   store,
		log:     log,
		retries: retries,
		backoff: backoff,
		ch:      make(chan docstore.Write, depth),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

// Enqueue schedules a merge write. When the queue is full the write is
// attempted inline instead so it is never silently dropped.
func (q *WriteQueue) Enqueue(collection, id string, data docstore.Document, merge bool) {
	w := docstore.Write{Collection: collection, ID: id, Data: data, Merge: merge}
	select {
	case q.ch <- w:
	default:
		q.attempt(w)
	}
}

func (q *WriteQueue) run() {
	defer q.wg.Done()
	for w := range q.ch {
		q.attempt(w)
	}
}

func (q *WriteQueue) attempt(w docstore.Write) {
	var err error
	for i := 0; i < q.retries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = q.store.Set(ctx, w.Collection, w.ID, w.Data, w.Merge)
		cancel()
		if err == nil {
			return
		}
		time.Sleep(q.backoff * time.Duration(i+1))
	}
	q.log.Error("write lost after retries",
		zap.String("collection", w.Collection),
		zap.String("id", w.ID),
		zap.Int("retries", q.retries),
		zap.Error(err),
	)
}

// Close drains pending writes and stops the worker.
func (q *WriteQueue) Close() {
	q.once.Do(func() { close(q.ch) })
	q.wg.Wait()
}
