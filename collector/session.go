package collector

import (
	"context"
	"time"

	"github.com/robertof/go-hibouair-exporter/bleuio"
	"github.com/robertof/go-hibouair-exporter/collector/model"
	"github.com/rs/zerolog/log"
)

// Transport is what a Session needs from the serial port.
type Transport interface {
	Writer
	Lines() <-chan bleuio.Line
}

// Session runs the state machine for one open dongle. Each iteration services exactly
// one of: a line from the dongle, a read timeout, or a submitted request.
type Session struct {
	// ReadTimeout is the silence after which a liveness notice is emitted.
	ReadTimeout time.Duration

	port    Transport
	queue   *CommandQueue
	machine *Machine

	// requests taken from the queue but not yet written.
	backlog []bleuio.Request
	// the queue was closed and fully drained.
	queueDone bool
}

func NewSession(port Transport, queue *CommandQueue, machine *Machine) *Session {
	if queue == nil {
		queue = NewCommandQueue()
	}

	return &Session{
		ReadTimeout: bleuio.DefaultReadTimeout,
		port:        port,
		queue:       queue,
		machine:     machine,
	}
}

func (s *Session) Machine() *Machine {
	return s.machine
}

// Run starts the handshake and processes events until the port fails, the command
// queue is closed or ctx is canceled. The returned error is nil when the queue was
// closed.
func (s *Session) Run(ctx context.Context) error {
	log.Debug().Dur("ReadTimeout", s.ReadTimeout).Msg("collector: session started")

	s.machine.Start()

	for {
		ev, err := s.next(ctx)

		if err != nil {
			s.machine.Handle(model.Closed(nil))
			return err
		}

		if !s.machine.Handle(ev) {
			return ev.Err
		}
	}
}

func (s *Session) next(ctx context.Context) (model.Event, error) {
	if len(s.backlog) > 0 {
		r := s.backlog[0]
		s.backlog = s.backlog[1:]

		return model.External(r), nil
	}

	if s.queueDone {
		return model.Closed(nil), nil
	}

	timer := time.NewTimer(s.ReadTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return model.Event{}, ctx.Err()
		case l, ok := <-s.port.Lines():
			if !ok {
				return model.Closed(bleuio.ErrPortClosed), nil
			}

			if l.Err != nil {
				return model.Closed(l.Err), nil
			}

			return model.Line(l.Text), nil
		case <-timer.C:
			return model.Timeout(), nil
		case <-s.queue.Ready():
			requests, closed := s.queue.Drain()
			s.backlog = append(s.backlog, requests...)

			if len(s.backlog) > 0 {
				r := s.backlog[0]
				s.backlog = s.backlog[1:]

				if closed {
					s.queueDone = true
				}

				return model.External(r), nil
			}

			if closed {
				s.queueDone = true
				return model.Closed(nil), nil
			}
			// spurious wake up, keep waiting with the same deadline.
		}
	}
}
