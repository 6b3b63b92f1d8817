package collector

import (
	"strings"

	"github.com/robertof/go-hibouair-exporter/bleuio"
	"github.com/robertof/go-hibouair-exporter/collector/model"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Writer is the write half of the transport.
type Writer interface {
	WriteCommand(cmd []byte)
}

type pendingCommand struct {
	cmd      bleuio.Command
	external bool
	ordinal  int64
}

type MachineOptions struct {
	// ScanFilterName is sent as AT+SCANFILTER=NAME=<name> before scanning starts. When
	// empty the step is skipped.
	ScanFilterName string
	// FindScanDataFilter is passed to AT+FINDSCANDATA=<hex>, empty scans unfiltered.
	FindScanDataFilter string

	// Logger receives the text trace of the session. Defaults to the global logger.
	Logger *zerolog.Logger

	// Sinks receive every decoded reading in addition to the registry.
	Sinks []Sink

	// OnAdvertisement, when set, is called for every scan hit.
	OnAdvertisement func(bleuio.Advertisement)
}

// Machine drives the dongle through the configuration handshake
// (ATE0, ATV1, optional AT+SCANFILTER, AT+FINDSCANDATA) and then keeps decoding scan
// results. It is not safe for concurrent use; a Session owns it.
type Machine struct {
	opts     MachineOptions
	log      zerolog.Logger
	w        Writer
	registry *Registry

	state   State
	lastCmd bleuio.Command

	// error of the last acknowledgement of the pending handshake command.
	lastError bleuio.ErrorCode

	// commands written and not yet terminated, oldest first.
	pending []pendingCommand
	// number of commands written in this session.
	written int64
	// difference between the dongle's command index and the write ordinal.
	indexOffset int64

	// index of the last terminator taken, re-deliveries are dropped.
	lastEndIndex int64
	hasLastEnd   bool

	// ordinal of the handshake command last completed by a plain-text reply: a JSON
	// terminator for it may still follow and must not advance the next step.
	textDone    int64
	hasTextDone bool

	// last command echo ({"C":n,"cmd":"..."}) seen.
	echoIndex int64
	echoCmd   string
	hasEcho   bool
}

func NewMachine(w Writer, registry *Registry, opts MachineOptions) *Machine {
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Machine{
		opts:     opts,
		log:      logger,
		w:        w,
		registry: registry,
		state:    StateInit,
	}
}

func (m *Machine) State() State {
	return m.state
}

// LastCommand is the handshake command awaiting its reply.
func (m *Machine) LastCommand() bleuio.Command {
	return m.lastCmd
}

func (m *Machine) LastError() bleuio.ErrorCode {
	return m.lastError
}

// Start begins the handshake on a freshly opened session.
func (m *Machine) Start() {
	if m.state != StateInit {
		m.log.Warn().Stringer("State", m.state).Msg("collector: handshake already started")
		return
	}

	m.log.Info().Msg("collector: port open, disabling echo")
	m.issue(bleuio.CmdEchoOff, StateEchoOff)
}

// Handle processes one event. It returns false once the session is over.
func (m *Machine) Handle(ev model.Event) bool {
	switch ev.Kind {
	case model.EventLineAvailable:
		m.handleLine(ev.Line)
	case model.EventTimeout:
		bleuio.CountTimeout()
		m.log.Info().
			Stringer("State", m.state).
			Msg("collector: no data received from dongle")
	case model.EventExternalCommand:
		cmd := ev.Request.Command()

		m.log.Info().
			Stringer("Request", ev.Request).
			Str("Command", cmd.String()).
			Msg("collector: sending requested command")

		m.write(cmd, true)
	case model.EventClosed:
		m.close(ev.Err)
		return false
	}

	return m.state != StateClosed
}

func (m *Machine) close(err error) {
	if m.state == StateClosed {
		return
	}

	from := m.state
	m.state = StateClosed

	if err != nil {
		m.log.Error().
			Err(err).
			Stringer("From", from).
			Msg("collector: session terminated by transport fault")
	} else {
		m.log.Info().
			Stringer("From", from).
			Msg("collector: session closed")
	}
}

func (m *Machine) handleLine(line string) {
	m.log.Info().Str("Line", line).Msg("collector: received line")

	switch r := bleuio.Classify(line).(type) {
	case bleuio.Raw:
		m.handleRaw(r.Text)
	case bleuio.CommandEcho:
		m.echoIndex, m.echoCmd, m.hasEcho = r.Index, r.Cmd, true
		m.hasTextDone = false
	case bleuio.Acknowledgement:
		m.handleAcknowledgement(r)
	case bleuio.Reply:
		m.log.Debug().
			Int64("Index", r.Index).
			Interface("Fields", r.Fields).
			Msg("collector: reply")
	case bleuio.End:
		m.handleEnd(r)
	case bleuio.ScanData:
		m.notifyAdvertisement(r.Advertisement())
	case bleuio.ScanFindData:
		m.handleScanFindData(r)
	case bleuio.ScanTarget:
		m.notifyAdvertisement(r.Advertisement())
	case bleuio.ScanEnded:
		m.log.Warn().
			Int64("Index", r.Index).
			Str("Action", r.Action).
			Stringer("State", m.state).
			Msg("collector: scan ended")
	case bleuio.Event:
		evt := m.log.Info().Str("Code", r.Code).RawJSON("Data", nonEmptyJSON(r.Data))
		if r.ConnectionIndex == bleuio.NoConnection {
			evt = evt.Str("Connection", "none")
		} else {
			evt = evt.Int64("Connection", r.ConnectionIndex)
		}
		evt.Msg("collector: device event")
	case bleuio.Unknown:
		m.log.Debug().Str("Line", line).Msg("collector: unrecognized response")
	}
}

func (m *Machine) handleAcknowledgement(a bleuio.Acknowledgement) {
	code := bleuio.ErrorCodeFromInt(a.ErrorCode)

	pos, ok := m.owner(a.Index)
	if !ok {
		m.log.Debug().Int64("Index", a.Index).Msg("collector: acknowledgement without pending command")
		return
	}

	p := m.pending[pos]
	if m.echoMismatch(a.Index, p.cmd) {
		m.log.Debug().
			Int64("Index", a.Index).
			Str("Command", m.echoCmd).
			Msg("collector: acknowledgement belongs to another command")
		return
	}

	// the dongle answers in JSON again, a pending text-mode terminator is not expected.
	m.hasTextDone = false

	if !p.external {
		m.lastError = code
	}

	if code == bleuio.Success {
		m.log.Debug().
			Int64("Index", a.Index).
			Str("Command", p.cmd.String()).
			Str("Message", a.ErrorMessage).
			Msg("collector: command acknowledged")
		return
	}

	bleuio.CountProtocolError(code)

	m.log.Error().
		Int64("Index", a.Index).
		Int64("Code", a.ErrorCode).
		Stringer("Error", code).
		Str("Message", a.ErrorMessage).
		Str("Command", p.cmd.String()).
		Bool("External", p.external).
		Msg("collector: command failed")
}

func (m *Machine) handleEnd(e bleuio.End) {
	if m.hasLastEnd && e.Index == m.lastEndIndex {
		m.log.Debug().Int64("Index", e.Index).Msg("collector: ignoring repeated terminator")
		return
	}

	if m.hasTextDone && e.Index-m.indexOffset <= m.textDone {
		m.hasTextDone = false
		m.lastEndIndex, m.hasLastEnd = e.Index, true

		m.log.Debug().
			Int64("Index", e.Index).
			Msg("collector: ignoring terminator of a command already completed in text mode")
		return
	}

	pos, ok := m.owner(e.Index)
	if !ok {
		m.log.Debug().Int64("Index", e.Index).Msg("collector: terminator without pending command")
		return
	}

	p := m.pending[pos]
	if m.echoMismatch(e.Index, p.cmd) {
		m.log.Debug().
			Int64("Index", e.Index).
			Str("Command", m.echoCmd).
			Msg("collector: terminator belongs to another command")
		return
	}

	m.pending = append(m.pending[:pos:pos], m.pending[pos+1:]...)
	m.indexOffset = e.Index - p.ordinal
	m.lastEndIndex, m.hasLastEnd = e.Index, true
	m.hasTextDone = false

	if p.external {
		m.log.Debug().
			Int64("Index", e.Index).
			Str("Command", p.cmd.String()).
			Msg("collector: requested command completed")
		return
	}

	if m.lastError != bleuio.Success {
		m.log.Error().
			Int64("Index", e.Index).
			Stringer("Error", m.lastError).
			Str("Command", m.lastCmd.String()).
			Stringer("State", m.state).
			Msg("collector: operation completed with error, not advancing")
		return
	}

	m.advance()
}

func (m *Machine) handleRaw(text string) {
	// handshake commands never answer a bare OK or ERROR, requested ones do.
	if text == bleuio.ReplyOK || text == bleuio.ReplyError {
		for i, p := range m.pending {
			if !p.external {
				continue
			}

			m.pending = append(m.pending[:i:i], m.pending[i+1:]...)

			m.log.Debug().
				Str("Command", p.cmd.String()).
				Str("Reply", text).
				Msg("collector: requested command completed")
			return
		}
	}

	switch m.state {
	case StateEchoOff:
		if text == bleuio.ReplyEchoOff {
			m.completeInText()
			m.advance()
		} else {
			m.log.Warn().Str("Reply", text).Msg("collector: unexpected reply while disabling echo")
		}
	case StateVerboseOn:
		if text == bleuio.ReplyVerboseOn {
			m.completeInText()
			m.advance()
		} else {
			m.log.Warn().Str("Reply", text).Msg("collector: unexpected reply while enabling verbose mode")
		}
	default:
		if text == bleuio.ReplyError {
			m.log.Warn().Stringer("State", m.state).Msg("collector: dongle replied ERROR")
		}
	}
}

// owner returns the position in pending of the command an acknowledgement or terminator
// with the given index belongs to. The dongle numbers commands in the order it receives
// them, so an index maps to a write ordinal through indexOffset, learned from every
// terminator taken. Without an exact match the closest pending command wins, oldest
// first on ties.
func (m *Machine) owner(index int64) (int, bool) {
	if len(m.pending) == 0 {
		return 0, false
	}

	want := index - m.indexOffset
	best := 0

	for i, p := range m.pending {
		if p.ordinal == want {
			return i, true
		}

		if distance(p.ordinal, want) < distance(m.pending[best].ordinal, want) {
			best = i
		}
	}

	return best, true
}

func distance(a, b int64) int64 {
	if a > b {
		return a - b
	}

	return b - a
}

func (m *Machine) echoMismatch(index int64, cmd bleuio.Command) bool {
	return m.hasEcho && m.echoIndex == index && !strings.EqualFold(m.echoCmd, cmd.String())
}

// completeInText retires the pending handshake command after its plain-text reply.
func (m *Machine) completeInText() {
	for i, p := range m.pending {
		if !p.external {
			m.textDone, m.hasTextDone = p.ordinal, true
			m.pending = append(m.pending[:i:i], m.pending[i+1:]...)
			return
		}
	}
}

// advance moves to the next handshake step after the current command succeeded.
func (m *Machine) advance() {
	switch m.state {
	case StateEchoOff:
		m.log.Info().Msg("collector: echo disabled")
		m.issue(bleuio.CmdVerboseOn, StateVerboseOn)
	case StateVerboseOn:
		m.log.Info().Msg("collector: verbose mode enabled")

		if m.opts.ScanFilterName != "" {
			m.issue(bleuio.ScanFilterName(m.opts.ScanFilterName), StateScanFilterSet)
		} else {
			m.startScan()
		}
	case StateScanFilterSet:
		m.log.Info().Str("Name", m.opts.ScanFilterName).Msg("collector: scan filter set")
		m.startScan()
	case StateScanning:
		m.log.Info().Msg("collector: scanning")
	}
}

func (m *Machine) startScan() {
	m.log.Info().Str("Filter", m.opts.FindScanDataFilter).Msg("collector: starting continuous scan")
	m.issue(bleuio.FindScanData(m.opts.FindScanDataFilter), StateScanning)
}

// issue sends a handshake command and opens a new command cycle.
func (m *Machine) issue(cmd bleuio.Command, next State) {
	from := m.state

	m.lastCmd = cmd
	m.lastError = bleuio.Success
	m.state = next

	m.write(cmd, false)

	m.log.Info().
		Stringer("From", from).
		Stringer("To", next).
		Str("Command", cmd.String()).
		Msg("collector: state transition")
}

func (m *Machine) write(cmd bleuio.Command, external bool) {
	m.written++
	m.pending = append(m.pending, pendingCommand{cmd: cmd, external: external, ordinal: m.written})

	m.w.WriteCommand(cmd.Bytes())
}

func nonEmptyJSON(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}

	return raw
}
