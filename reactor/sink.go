package reactor

import "context"

type sinkMsg struct {
	fact     IDBTuple
	isFlush  bool
	flushAck chan error
}

// sinkWorker owns one registered Sink's private goroutine, so a slow or
// blocking sink can never stall the reactor's dispatch loop or another
// sink (spec.md §5: sinks run on their own pinned tasks).
type sinkWorker struct {
	sink Sink
	in   chan sinkMsg
}

func newSinkWorker(sink Sink) *sinkWorker {
	return &sinkWorker{sink: sink, in: make(chan sinkMsg, 256)}
}

func (w *sinkWorker) send(fact IDBTuple) {
	w.in <- sinkMsg{fact: fact}
}

// flush enqueues a flush marker behind every fact already sent and waits
// for the worker to process everything up to and including it, then calls
// the sink's own Flush (spec.md §4.6: "flush (round-trip every sink)").
func (w *sinkWorker) flush(ctx context.Context) error {
	ack := make(chan error, 1)
	select {
	case w.in <- sinkMsg{isFlush: true, flushAck: ack}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-ack:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close signals the worker to exit once it has drained everything already
// queued.
func (w *sinkWorker) close() { close(w.in) }

func (w *sinkWorker) run() {
	ctx := context.Background()
	for msg := range w.in {
		if msg.isFlush {
			msg.flushAck <- w.sink.Flush(ctx)
			continue
		}
		_ = w.sink.ProcessFact(ctx, msg.fact)
	}
}
