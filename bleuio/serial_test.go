package bleuio

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

type pipeConn struct {
	*io.PipeReader

	mu      sync.Mutex
	written bytes.Buffer
}

func (c *pipeConn) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.written.Write(b)
}

func (c *pipeConn) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.written.String()
}

func newPipePort(t *testing.T) (*Port, *pipeConn, *io.PipeWriter) {
	t.Helper()

	r, w := io.Pipe()
	conn := &pipeConn{PipeReader: r}

	return NewPort("/dev/test", conn, zerolog.Nop()), conn, w
}

func TestPort_ReadsLines(t *testing.T) {
	p, _, w := newPipePort(t)
	defer p.Close()

	go func() {
		io.WriteString(w, "ECHO OFF\r\n{\"E\":1,\"nol\":1}\r\npartial")
		w.Close()
	}()

	ctx := context.Background()

	line, err := p.ReadLine(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "ECHO OFF", line)

	line, err = p.ReadLine(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, `{"E":1,"nol":1}`, line)

	line, err = p.ReadLine(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "partial", line)

	_, err = p.ReadLine(ctx, time.Second)
	assert.ErrorIs(t, err, io.EOF)
	assert.True(t, IsDisconnect(err))

	_, err = p.ReadLine(ctx, time.Second)
	assert.ErrorIs(t, err, ErrPortClosed)
}

func TestPort_ReadTimeout(t *testing.T) {
	p, _, _ := newPipePort(t)
	defer p.Close()

	_, err := p.ReadLine(context.Background(), 10*time.Millisecond)

	assert.ErrorIs(t, err, ErrReadTimeout)
	assert.False(t, IsTerminal(err))
}

func TestPort_ReadCanceled(t *testing.T) {
	p, _, _ := newPipePort(t)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.ReadLine(ctx, time.Second)

	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, IsTerminal(err))
}

func TestPort_WriteCommand(t *testing.T) {
	p, conn, _ := newPipePort(t)
	defer p.Close()

	p.WriteCommand(CmdEchoOff.Bytes())
	p.WriteCommand(ScanFilterName("HibouAIR").Bytes())

	assert.Equal(t, "ATE0\r\nAT+SCANFILTER=NAME=HibouAIR\r\n", conn.String())
}

func TestPort_CloseStopsReader(t *testing.T) {
	p, _, _ := newPipePort(t)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	select {
	case _, ok := <-p.Lines():
		if ok {
			// the terminating error may or may not have been delivered.
			_, ok = <-p.Lines()
		}
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("reader goroutine did not exit")
	}
}

func TestOpen_NoPath(t *testing.T) {
	_, err := Open("")
	assert.ErrorIs(t, err, ErrNoDevice)
}

func TestIsDisconnect(t *testing.T) {
	assert.True(t, IsDisconnect(errors.Wrap(io.ErrUnexpectedEOF, "read")))
	assert.False(t, IsDisconnect(&serial.PortError{}))
	assert.False(t, IsDisconnect(ErrReadTimeout))
	assert.False(t, IsDisconnect(nil))
}

func TestIsDisconnect_PortErrorValue(t *testing.T) {
	assert.False(t, IsDisconnect(serial.PortError{}))
	assert.False(t, IsDisconnect(errors.Wrap(&serial.PortError{}, "write")))
}
