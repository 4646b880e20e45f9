package reactor_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhizomedb/rhizome/blockstore"
	"github.com/rhizomedb/rhizome/id"
	"github.com/rhizomedb/rhizome/reactor"
	"github.com/rhizomedb/rhizome/value"
)

func TestClientDrivesReactorInBackground(t *testing.T) {
	engine := passthroughEngine(t)
	sink := &fakeSink{}
	client := reactor.Start(engine, blockstore.NewMem(), reactor.Config{})
	defer client.Close()

	require.NoError(t, client.RegisterSink(id.NewRelationId("mirror"), func() (reactor.Sink, error) { return sink, nil }))

	ctx := context.Background()
	_, err := client.InsertFact(ctx, reactor.EDBTuple{
		Rel: id.NewRelationId("triple"), Entity: value.Str("carol"), Attribute: value.Str("name"), Value: value.Str("Carol"),
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		facts, _ := sink.snapshot()
		return len(facts) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, client.Flush(ctx))
	_, flushed := sink.snapshot()
	assert.Equal(t, 1, flushed)
}
