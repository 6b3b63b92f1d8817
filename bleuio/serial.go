package bleuio

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robertof/go-hibouair-exporter/utils"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

const (
	BaudRate = 115200

	// DefaultReadTimeout is how long a read waits before reporting silence.
	DefaultReadTimeout = 5 * time.Second
)

var (
	ErrNoDevice    = errors.New("bleuio: no device path")
	ErrReadTimeout = errors.New("bleuio: read timeout")
	ErrPortClosed  = errors.New("bleuio: port closed")
)

// Line is a single line read from the dongle, or the error that ended the read loop.
type Line struct {
	Text string
	Err  error
}

// Port is an open serial session with a dongle. One goroutine reads lines in the
// background; writes happen on the caller's goroutine.
type Port struct {
	path string
	rw   io.ReadWriteCloser
	log  zerolog.Logger

	lines     chan Line
	closeOnce sync.Once
	closed    chan struct{}
}

// Open opens the device at path (115200 8N1) and asserts DTR/RTS.
func Open(path string) (*Port, error) {
	if path == "" {
		return nil, ErrNoDevice
	}

	sp, err := serial.Open(path, &serial.Mode{
		BaudRate: BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})

	if err != nil {
		return nil, errors.Wrapf(err, "bleuio: failed to open %q", path)
	}

	logger := log.With().Str("Port", path).Logger()

	if err := sp.SetDTR(true); err != nil {
		logger.Warn().Err(err).Msg("bleuio: unable to assert DTR")
	}

	if err := sp.SetRTS(true); err != nil {
		logger.Warn().Err(err).Msg("bleuio: unable to assert RTS")
	}

	logger.Debug().Int("BaudRate", BaudRate).Msg("bleuio: port opened")

	return NewPort(path, sp, logger), nil
}

// NewPort wraps an already open stream. Used by Open and by tests with in-memory pipes.
func NewPort(path string, rw io.ReadWriteCloser, logger zerolog.Logger) *Port {
	p := &Port{
		path:   path,
		rw:     rw,
		log:    logger,
		lines:  make(chan Line),
		closed: make(chan struct{}),
	}

	go p.readLoop()

	return p
}

func (p *Port) Path() string {
	return p.path
}

func (p *Port) readLoop() {
	defer close(p.lines)

	r := bufio.NewReader(p.rw)

	for {
		text, err := r.ReadString('\n')

		// a partial line without terminator is only delivered together with EOF.
		if err != nil {
			if text != "" && errors.Is(err, io.EOF) {
				if !p.send(Line{Text: trimLine(text)}) {
					return
				}
			}

			select {
			case <-p.closed:
				err = ErrPortClosed
			default:
			}

			p.send(Line{Err: err})
			return
		}

		linesReceivedCounter.Inc()

		if !p.send(Line{Text: trimLine(text)}) {
			return
		}
	}
}

func (p *Port) send(l Line) bool {
	select {
	case p.lines <- l:
		return true
	case <-p.closed:
		return false
	}
}

func trimLine(s string) string {
	return strings.TrimRight(s, "\r\n")
}

// Lines returns the channel fed by the reader goroutine. It is closed after the
// terminating error has been delivered.
func (p *Port) Lines() <-chan Line {
	return p.lines
}

// ReadLine waits for the next line. ErrReadTimeout is not fatal and can be retried; any
// other error means the session is over.
func (p *Port) ReadLine(ctx context.Context, timeout time.Duration) (string, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-t.C:
		readTimeoutsCounter.Inc()
		return "", ErrReadTimeout
	case l, ok := <-p.lines:
		if !ok {
			return "", ErrPortClosed
		}

		return l.Text, l.Err
	}
}

// WriteCommand writes the command bytes. Errors are logged, never returned.
func (p *Port) WriteCommand(cmd []byte) {
	_, err := p.rw.Write(cmd)

	if err != nil {
		writeFailuresCounter.Inc()

		p.log.Error().
			Err(err).
			Str("Command", trimLine(string(cmd))).
			Msg("bleuio: failed to write command")

		return
	}

	commandsWrittenCounter.Inc()

	p.log.Trace().
		Str("Command", trimLine(string(cmd))).
		Msg("bleuio: wrote command")
}

func (p *Port) Close() error {
	var err error

	p.closeOnce.Do(func() {
		close(p.closed)
		err = p.rw.Close()
	})

	return err
}

// IsTerminal reports whether a read error ends the session.
func IsTerminal(err error) bool {
	return err != nil && !errors.Is(err, ErrReadTimeout)
}

// IsDisconnect reports whether err means the dongle went away rather than a local close.
func IsDisconnect(err error) bool {
	if utils.ErrorIsAnyOf(err, io.EOF, io.ErrUnexpectedEOF) {
		return true
	}

	var portErrPtr *serial.PortError
	if errors.As(err, &portErrPtr) {
		return isDisconnectCode(portErrPtr.Code())
	}

	var portErr serial.PortError
	if errors.As(err, &portErr) {
		return isDisconnectCode(portErr.Code())
	}

	return false
}

func isDisconnectCode(code serial.PortErrorCode) bool {
	switch code {
	case serial.PortNotFound, serial.PortClosed, serial.InvalidSerialPort:
		return true
	default:
		return false
	}
}
