package bleuio

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Kind tags a line of dongle output.
type Kind uint8

const (
	KindRaw Kind = iota
	KindUnknown
	KindCommandEcho
	KindAcknowledgement
	KindReply
	KindEnd
	KindScanData
	KindScanFindData
	KindScanTarget
	KindScanEnded
	KindEvent
)

var kindNames = [...]string{
	KindRaw:             "Raw",
	KindUnknown:         "Unknown",
	KindCommandEcho:     "CommandEcho",
	KindAcknowledgement: "Acknowledgement",
	KindReply:           "Reply",
	KindEnd:             "End",
	KindScanData:        "ScanData",
	KindScanFindData:    "ScanFindData",
	KindScanTarget:      "ScanTarget",
	KindScanEnded:       "ScanEnded",
	KindEvent:           "Event",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}

	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// NoConnection is the connection index events carry when they are not tied to a peer.
const NoConnection = 0xFFFF

// Response is one classified line. Use a type switch on the concrete types below.
type Response interface {
	Kind() Kind
}

// Raw is a line that is not a JSON object, e.g. "OK" or "ECHO OFF" from firmware in
// legacy text mode. It is not an error.
type Raw struct {
	Text string
}

type Unknown struct {
	Fields map[string]json.RawMessage
}

type CommandEcho struct {
	Index int64
	Cmd   string
}

type Acknowledgement struct {
	Index        int64
	ErrorCode    int64
	ErrorMessage string
}

type Reply struct {
	Index  int64
	Fields map[string]any
}

type End struct {
	Index     int64
	LineCount int64
}

type ScanData struct {
	Index   int64
	RSSI    int64
	Address string
	Name    string
	HasName bool
}

type ScanFindData struct {
	Index           int64
	RSSI            int64
	HasRSSI         bool
	Address         string
	AdvertisingType int64
	DataHex         string
}

// ScanTarget carries the same fields as ScanFindData, emitted by AT+SCANTARGET.
type ScanTarget ScanFindData

type ScanEnded struct {
	Index  int64
	Action string
}

type Event struct {
	Code            string
	ConnectionIndex int64
	Data            json.RawMessage
}

func (Raw) Kind() Kind             { return KindRaw }
func (Unknown) Kind() Kind         { return KindUnknown }
func (CommandEcho) Kind() Kind     { return KindCommandEcho }
func (Acknowledgement) Kind() Kind { return KindAcknowledgement }
func (Reply) Kind() Kind           { return KindReply }
func (End) Kind() Kind             { return KindEnd }
func (ScanData) Kind() Kind        { return KindScanData }
func (ScanFindData) Kind() Kind    { return KindScanFindData }
func (ScanTarget) Kind() Kind      { return KindScanTarget }
func (ScanEnded) Kind() Kind       { return KindScanEnded }
func (Event) Kind() Kind           { return KindEvent }

const (
	tagCommand         = "C"
	tagAcknowledgement = "A"
	tagReply           = "R"
	tagEnd             = "E"
	tagScanData        = "S"
	tagScanFindData    = "SF"
	tagScanTarget      = "ST"
	tagScanEnded       = "SE"
	tagEvent           = "EVT"
)

// Classify decodes one line of dongle output. Lines that are not a JSON object come back
// as Raw with the text untouched. Tags are checked in a fixed order and the first one
// present wins, so {"S":1,"SF":1} is ScanData.
func Classify(line string) Response {
	var obj map[string]json.RawMessage

	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return Raw{Text: line}
	}

	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil || obj == nil {
		return Raw{Text: line}
	}

	f := fields(obj)

	switch {
	case f.has(tagCommand):
		return CommandEcho{
			Index: f.num(tagCommand),
			Cmd:   f.str("cmd"),
		}
	case f.has(tagAcknowledgement):
		return Acknowledgement{
			Index:        f.num(tagAcknowledgement),
			ErrorCode:    f.numOr("err", -1),
			ErrorMessage: f.str("errMsg"),
		}
	case f.has(tagReply):
		return Reply{
			Index:  f.num(tagReply),
			Fields: f.rest(tagReply),
		}
	case f.has(tagEnd):
		return End{
			Index:     f.num(tagEnd),
			LineCount: f.num("nol"),
		}
	case f.has(tagScanData):
		_, hasName := obj["name"]
		return ScanData{
			Index:   f.num(tagScanData),
			RSSI:    f.num("rssi"),
			Address: f.str("addr"),
			Name:    f.str("name"),
			HasName: hasName,
		}
	case f.has(tagScanFindData):
		return f.scanFindData(tagScanFindData)
	case f.has(tagScanTarget):
		return ScanTarget(f.scanFindData(tagScanTarget))
	case f.has(tagScanEnded):
		return ScanEnded{
			Index:  f.num(tagScanEnded),
			Action: f.str("action"),
		}
	case f.has(tagEvent):
		return Event{
			Code:            f.text(tagEvent),
			ConnectionIndex: f.connectionIndex("hdl"),
			Data:            obj["data"],
		}
	}

	return Unknown{Fields: obj}
}

type fields map[string]json.RawMessage

func (f fields) has(key string) bool {
	_, ok := f[key]
	return ok
}

func (f fields) numOr(key string, def int64) int64 {
	raw, ok := f[key]
	if !ok {
		return def
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return def
	}

	if v, err := n.Int64(); err == nil {
		return v
	}

	if v, err := n.Float64(); err == nil {
		return int64(v)
	}

	return def
}

func (f fields) num(key string) int64 {
	return f.numOr(key, 0)
}

func (f fields) str(key string) string {
	var s string
	if raw, ok := f[key]; ok {
		_ = json.Unmarshal(raw, &s)
	}

	return s
}

// text returns a string value, or the literal JSON for non-string values.
func (f fields) text(key string) string {
	raw, ok := f[key]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	return string(raw)
}

// connectionIndex accepts both numeric and hex-string ("FFFF") handles.
func (f fields) connectionIndex(key string) int64 {
	if !f.has(key) {
		return NoConnection
	}

	if s := f.str(key); s != "" {
		v, err := strconv.ParseInt(s, 16, 64)
		if err != nil {
			return NoConnection
		}
		return v
	}

	return f.numOr(key, NoConnection)
}

func (f fields) rest(tag string) map[string]any {
	out := make(map[string]any, len(f))

	for k, raw := range f {
		if k == tag {
			continue
		}

		var v any
		if err := json.Unmarshal(raw, &v); err == nil {
			out[k] = v
		}
	}

	return out
}

func (f fields) scanFindData(tag string) ScanFindData {
	return ScanFindData{
		Index:           f.num(tag),
		RSSI:            f.num("rssi"),
		HasRSSI:         f.has("rssi"),
		Address:         f.str("addr"),
		AdvertisingType: f.num("type"),
		DataHex:         f.str("data"),
	}
}
