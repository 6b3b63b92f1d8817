package collector_test

import (
	"testing"

	"github.com/robertof/go-hibouair-exporter/bleuio"
	"github.com/robertof/go-hibouair-exporter/collector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandQueue_SubmitAndDrain(t *testing.T) {
	q := collector.NewCommandQueue()

	require.NoError(t, q.Submit(bleuio.Request{Kind: bleuio.RequestAT}))
	require.NoError(t, q.Submit(bleuio.Request{Kind: bleuio.RequestInfo}))

	select {
	case <-q.Ready():
	default:
		t.Fatal("queue did not signal readiness")
	}

	requests, closed := q.Drain()

	assert.False(t, closed)
	assert.Equal(t, []bleuio.Request{{Kind: bleuio.RequestAT}, {Kind: bleuio.RequestInfo}}, requests)

	requests, _ = q.Drain()
	assert.Empty(t, requests)
}

func TestCommandQueue_Close(t *testing.T) {
	q := collector.NewCommandQueue()

	require.NoError(t, q.Submit(bleuio.Request{Kind: bleuio.RequestCentral}))
	q.Close()
	q.Close()

	assert.ErrorIs(t, q.Submit(bleuio.Request{Kind: bleuio.RequestAT}), collector.ErrQueueClosed)

	requests, closed := q.Drain()

	assert.True(t, closed)
	assert.Len(t, requests, 1)
}
