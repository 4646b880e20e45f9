package reactor

import (
	"context"

	"github.com/rhizomedb/rhizome"
	"github.com/rhizomedb/rhizome/blockstore"
	"github.com/rhizomedb/rhizome/cid"
	"github.com/rhizomedb/rhizome/id"
)

// Client runs a Reactor on its own background goroutine and exposes its
// command surface directly, so a caller never drives Run/Tick itself — the
// Go analogue of the original's Tokio-task-backed Client handle
// (rhizome-tokio/src/lib.rs), which spawns the reactor loop onto the
// runtime and hands the caller a cheap, cloneable command sender.
type Client struct {
	r      *Reactor
	cancel context.CancelFunc
	done   chan struct{}
}

// Start builds a Reactor from engine and bs and begins running it
// immediately on a background goroutine. Call Close to stop it.
func Start(engine *rhizome.Engine, bs blockstore.Blockstore, cfg Config) *Client {
	r := New(engine, bs, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = r.Run(ctx)
	}()
	return &Client{r: r, cancel: cancel, done: done}
}

// InsertFact admits fact through the running reactor. See Reactor.InsertFact.
func (c *Client) InsertFact(ctx context.Context, fact EDBTuple) (cid.Cid, error) {
	return c.r.InsertFact(ctx, fact)
}

// RegisterStream registers factory with the running reactor. See
// Reactor.RegisterStream.
func (c *Client) RegisterStream(ctx context.Context, factory StreamFactory) error {
	return c.r.RegisterStream(ctx, factory)
}

// RegisterSink registers factory with the running reactor. See
// Reactor.RegisterSink.
func (c *Client) RegisterSink(rel id.RelationId, factory SinkFactory) error {
	return c.r.RegisterSink(rel, factory)
}

// Flush round-trips every registered sink. See Reactor.Flush.
func (c *Client) Flush(ctx context.Context) error { return c.r.Flush(ctx) }

// Events returns the running reactor's event channel. See Reactor.Events.
func (c *Client) Events() <-chan Event { return c.r.Events() }

// Close stops the background reactor loop and waits for it to finish
// shutting down every stream and sink worker.
func (c *Client) Close() {
	c.cancel()
	<-c.done
}
