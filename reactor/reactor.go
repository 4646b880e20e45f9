// Package reactor is the external event loop spec.md §4.6 describes: it
// owns a VM and a block store, accepts registered input streams and
// output sinks, and on every tick drains pending commands and stream
// events, runs the VM to its next epoch, and dispatches derived tuples to
// sinks.
//
// Grounded on the original's reactor.rs (command enum, tick loop) and the
// teacher's server/ package for the "single dispatch goroutine plus a
// worker per long-lived connection" shape — here, one worker goroutine per
// registered Stream or Sink, talking to the reactor goroutine over bounded
// channels (spec.md §5: "a work-stealing pool of single-threaded
// executors, one pool worker per pinned task"; a goroutine-per-task pool
// is Go's native equivalent of that model without hand-rolling a
// scheduler).
package reactor

import (
	"context"
	"sync"

	"github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rhizomedb/rhizome"
	"github.com/rhizomedb/rhizome/blockstore"
	"github.com/rhizomedb/rhizome/cid"
	"github.com/rhizomedb/rhizome/id"
	"github.com/rhizomedb/rhizome/relation"
	"github.com/rhizomedb/rhizome/value"
	"github.com/rhizomedb/rhizome/vm"
)

// Metrics exposed for operators running many Reactors behind a scrape
// endpoint, following the teacher's use of github.com/prometheus/client_golang
// for its own server/engine counters and gauges.
var (
	reactorTicksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rhizome_reactor_ticks_total",
		Help: "Total number of reactor ticks executed.",
	})
	reactorEpoch = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rhizome_reactor_epoch",
		Help: "Current VM epoch as last observed by the reactor.",
	})
)

func init() {
	prometheus.MustRegister(reactorTicksTotal, reactorEpoch)
}

// EDBTuple is one input fact, in the entity/attribute/value/links wire
// form spec.md §6 defines.
type EDBTuple struct {
	Rel       id.RelationId
	Entity    value.Val
	Attribute value.Val
	Value     value.Val
	Links     []cid.Cid
}

// IDBTuple is one derived tuple handed to a Sink.
type IDBTuple struct {
	Rel   id.RelationId
	Tuple relation.Tuple
}

// Stream is a lazy sequence of EDB tuples (spec.md §6: "register input
// stream"). Next blocks until a tuple is available, the stream is
// exhausted (ok=false, err=nil), or ctx is cancelled.
type Stream interface {
	Next(ctx context.Context) (tuple EDBTuple, ok bool, err error)
}

// StreamFactory builds a Stream when RegisterStream is processed.
type StreamFactory func() (Stream, error)

// Sink consumes every derived tuple of one relation (spec.md §6: "sink
// message"). Flush must not return until every ProcessFact call made
// before it was requested has completed.
type Sink interface {
	ProcessFact(ctx context.Context, fact IDBTuple) error
	Flush(ctx context.Context) error
}

// SinkFactory builds a Sink when RegisterSink is processed.
type SinkFactory func() (Sink, error)

// Event is a notification the reactor emits after a tick.
type Event interface{ isEvent() }

// ReachedFixedpoint is emitted once per tick, after the VM's epoch has
// advanced and every sink has received that epoch's tuples.
type ReachedFixedpoint struct{ Epoch int }

func (ReachedFixedpoint) isEvent() {}

// Config configures a Reactor. The zero Config is usable: stream channels
// of size 64, events delivered to a channel of size 16.
type Config struct {
	// StreamBuffer bounds the channel each stream worker feeds into
	// (spec.md §5: "bounded channels"). 0 means a sensible default (64).
	StreamBuffer int
	// EventBuffer bounds the Events() channel. 0 means a default of 16.
	EventBuffer int
}

func (c Config) withDefaults() Config {
	if c.StreamBuffer <= 0 {
		c.StreamBuffer = 64
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = 16
	}
	return c
}

type streamEvent struct {
	tuple EDBTuple
	err   error
}

// Reactor drives one Engine's VM against registered streams and sinks.
//
// Concurrency (spec.md §5): the VM is stepped exclusively by the
// goroutine running Run/Tick — never concurrently from two goroutines —
// so no per-relation lock is needed around vm.VM itself; its relations map
// is private to the single caller that owns this Reactor, matching the
// spec's own invariant that "no two statements touch the same relation
// concurrently" within one step_epoch. Streams and sinks run on their own
// goroutines and only ever touch the Reactor through the channels below,
// which are the suspension points spec.md §5 names (awaiting a stream
// event, a client command, a sink flush acknowledgement).
type Reactor struct {
	cfg   Config
	vm    *vm.VM
	bs    blockstore.Blockstore
	log   *logrus.Logger
	epoch int

	commands chan func()
	flushes  chan func()
	wake     chan struct{}
	events   chan Event

	mu      sync.Mutex
	streams []context.CancelFunc
	sinks   map[id.RelationId][]*sinkWorker
	// workers tracks every stream-pump and sink-delivery goroutine so
	// shutdown can wait for all of them with one call, the same
	// fan-out/fan-in shape the teacher uses golang.org/x/sync/errgroup for
	// around its own per-connection worker goroutines.
	workers *errgroup.Group
}

// New returns a Reactor driving a fresh VM from engine, persisting every
// admitted EDB tuple to bs.
func New(engine *rhizome.Engine, bs blockstore.Blockstore, cfg Config) *Reactor {
	cfg = cfg.withDefaults()
	return &Reactor{
		cfg:      cfg,
		vm:       engine.NewVM(),
		bs:       bs,
		log:      logrus.StandardLogger(),
		commands: make(chan func(), 16),
		flushes:  make(chan func(), 16),
		wake:     make(chan struct{}, 1),
		events:   make(chan Event, cfg.EventBuffer),
		sinks:    map[id.RelationId][]*sinkWorker{},
		workers:  &errgroup.Group{},
	}
}

// Events returns the channel ReachedFixedpoint notifications are
// delivered on.
func (r *Reactor) Events() <-chan Event { return r.events }

// Epoch returns the VM's logical clock epoch as of the last completed
// Tick. Safe to call between calls to Tick/Run on the same goroutine;
// concurrent with Run it is advisory only.
func (r *Reactor) Epoch() int { return r.epoch }

// submit enqueues cmd on queue for the reactor's own goroutine to run
// during its next Tick, and wakes Run if it is blocked waiting for
// something to do. InsertFact/RegisterStream/RegisterSink use r.commands,
// applied before that tick's StepEpoch; Flush uses r.flushes, applied
// after that tick's dispatchOutputs — so a Flush queued alongside an
// InsertFact always observes the tuples that insert derives (spec.md
// §4.6, §5: "flush resolves only after every sink has processed every
// tuple emitted up to the flush request").
func (r *Reactor) submit(ctx context.Context, queue chan func(), cmd func()) error {
	select {
	case queue <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case r.wake <- struct{}{}:
	default:
	}
	return nil
}

// InsertFact persists fact to the block store and enqueues it for the
// next tick's Sources statement, normalizing its links into the engine's
// `links` EDB relation (spec.md §9: "links arriving with input tuples are
// normalized into a separate links(from, to) EDB relation before
// evaluation"). Returns the tuple's content id.
func (r *Reactor) InsertFact(ctx context.Context, fact EDBTuple) (cid.Cid, error) {
	ack := make(chan struct {
		c   cid.Cid
		err error
	}, 1)
	cmd := func() {
		c, err := r.admit(fact)
		ack <- struct {
			c   cid.Cid
			err error
		}{c, err}
	}
	if err := r.submit(ctx, r.commands, cmd); err != nil {
		return cid.Undef, err
	}
	select {
	case res := <-ack:
		return res.c, res.err
	case <-ctx.Done():
		return cid.Undef, ctx.Err()
	}
}

// admit runs on the reactor's single goroutine: it is the only place that
// touches r.vm's input queue directly.
func (r *Reactor) admit(fact EDBTuple) (cid.Cid, error) {
	tuple := relation.Tuple{
		id.NewColId("entity"):    fact.Entity,
		id.NewColId("attribute"): fact.Attribute,
		id.NewColId("value"):     fact.Value,
	}
	c := relation.CidOf(tuple)

	wire := blockstore.EVACTuple{Entity: fact.Entity, Attribute: fact.Attribute, Value: fact.Value, Links: fact.Links}
	if err := r.bs.PutKeyed(c, wire.MarshalCanonical()); err != nil {
		return cid.Undef, err
	}

	r.vm.Enqueue(vm.InputFact{Rel: fact.Rel, Tuple: tuple})
	for _, target := range fact.Links {
		r.vm.Enqueue(vm.InputFact{
			Rel: id.NewRelationId("links"),
			Tuple: relation.Tuple{
				id.NewColId("from"): value.Cid(c),
				id.NewColId("to"):   value.Cid(target),
			},
		})
	}
	return c, nil
}

// RegisterStream spawns a worker goroutine pumping factory's Stream into
// the reactor's admission path until it is exhausted, errors, or ctx is
// cancelled.
func (r *Reactor) RegisterStream(ctx context.Context, factory StreamFactory) error {
	stream, err := factory()
	if err != nil {
		return err
	}
	sctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.streams = append(r.streams, cancel)
	r.mu.Unlock()

	events := make(chan streamEvent, r.cfg.StreamBuffer)
	r.workers.Go(func() error {
		for {
			tuple, ok, err := stream.Next(sctx)
			if err != nil {
				select {
				case events <- streamEvent{err: err}:
				case <-sctx.Done():
				}
				return nil
			}
			if !ok {
				return nil
			}
			select {
			case events <- streamEvent{tuple: tuple}:
			case <-sctx.Done():
				return nil
			}
		}
	})

	r.workers.Go(func() error {
		for {
			select {
			case ev, open := <-events:
				if !open {
					return nil
				}
				if ev.err != nil {
					r.log.WithError(ev.err).Warn("reactor: stream error")
					return nil
				}
				if _, err := r.InsertFact(sctx, ev.tuple); err != nil {
					r.log.WithError(err).Warn("reactor: failed to admit streamed fact")
					return nil
				}
			case <-sctx.Done():
				return nil
			}
		}
	})
	return nil
}

// RegisterSink spawns a worker goroutine delivering every tuple the VM
// derives for rel to factory's Sink, in the order Sinks statements drain
// them (spec.md §5: sinks observe statement execution order).
func (r *Reactor) RegisterSink(rel id.RelationId, factory SinkFactory) error {
	sink, err := factory()
	if err != nil {
		return err
	}
	w := newSinkWorker(sink)
	r.mu.Lock()
	r.sinks[rel] = append(r.sinks[rel], w)
	r.mu.Unlock()
	r.workers.Go(func() error {
		w.run()
		return nil
	})
	return nil
}

// Flush round-trips every registered sink: it blocks until every tuple
// dispatched before the call was processed and every sink's Flush has
// returned (spec.md §4.6, §5).
func (r *Reactor) Flush(ctx context.Context) error {
	ack := make(chan error, 1)
	cmd := func() { ack <- r.flushSinks(ctx) }
	if err := r.submit(ctx, r.flushes, cmd); err != nil {
		return err
	}
	select {
	case err := <-ack:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Reactor) flushSinks(ctx context.Context) error {
	r.mu.Lock()
	workers := make([]*sinkWorker, 0)
	for _, ws := range r.sinks {
		workers = append(workers, ws...)
	}
	r.mu.Unlock()
	for _, w := range workers {
		if err := w.flush(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Tick drains every pending command, runs the VM to its next epoch, and
// dispatches derived tuples to their sinks (spec.md §4.6). It is the unit
// Run calls in a loop; exposed directly so tests can drive the reactor
// deterministically without a background goroutine.
func (r *Reactor) Tick(ctx context.Context) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "reactor.Tick")
	defer span.Finish()

	drain(r.commands)
	if err := r.vm.StepEpoch(); err != nil {
		return err
	}
	r.dispatchOutputs()
	drain(r.flushes)
	r.epoch = r.vm.Clock().Epoch
	reactorTicksTotal.Inc()
	reactorEpoch.Set(float64(r.epoch))
	span.SetTag("epoch", r.epoch)
	select {
	case r.events <- ReachedFixedpoint{Epoch: r.epoch}:
	default:
		r.log.Warn("reactor: events channel full, dropping ReachedFixedpoint notification")
	}
	return nil
}

func drain(queue chan func()) {
	for {
		select {
		case cmd := <-queue:
			cmd()
		default:
			return
		}
	}
}

func (r *Reactor) dispatchOutputs() {
	facts := r.vm.DrainOutput()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, fact := range facts {
		for _, w := range r.sinks[fact.Rel] {
			w.send(IDBTuple{Rel: fact.Rel, Tuple: fact.Tuple})
		}
	}
}

// Run ticks the reactor until ctx is cancelled, blocking between ticks
// for either a pending command or the next scheduling opportunity. One
// command always triggers at least one more Tick so InsertFact/Flush
// callers observe prompt progress.
func (r *Reactor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			return ctx.Err()
		case <-r.wake:
		}
		if err := r.Tick(ctx); err != nil {
			r.shutdown()
			return err
		}
	}
}

func (r *Reactor) shutdown() {
	r.mu.Lock()
	cancels := r.streams
	r.streams = nil
	var workers []*sinkWorker
	for _, ws := range r.sinks {
		workers = append(workers, ws...)
	}
	r.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
	for _, w := range workers {
		w.close()
	}
	if err := r.workers.Wait(); err != nil {
		r.log.WithError(err).Warn("reactor: worker goroutine returned an error")
	}
}
