package bleuio

import (
  "fmt"
  "slices"
  "strings"
)

// Command is a literal AT command line. Bytes() appends the CRLF terminator.
type Command string

const (
  CmdAT             Command = "AT"
  CmdInfo           Command = "ATI"
  CmdEchoOff        Command = "ATE0"
  CmdVerboseOn      Command = "ATV1"
  CmdCentral        Command = "AT+CENTRAL"
  CmdFindScanData   Command = "AT+FINDSCANDATA"
  cmdScanFilterName Command = "AT+SCANFILTER=NAME="

  lineTerminator = "\r\n"
)

// Legacy plain-text replies from firmware that is not in verbose mode.
const (
  ReplyOK        = "OK"
  ReplyError     = "ERROR"
  ReplyEchoOff   = "ECHO OFF"
  ReplyVerboseOn = "VERBOSE ON"
)

// ScanFilterName restricts scan results to advertisers with the given name.
func ScanFilterName(name string) Command {
  return cmdScanFilterName + Command(name)
}

// FindScanData starts a continuous scan reporting advertising data. A non-empty filter
// only reports payloads containing the given hex string.
func FindScanData(filter string) Command {
  if filter == "" {
    return CmdFindScanData
  }

  return CmdFindScanData + "=" + Command(filter)
}

func (c Command) Bytes() []byte {
  return []byte(string(c) + lineTerminator)
}

func (c Command) String() string {
  return string(c)
}

// Request is an ad-hoc command submitted from outside the handshake, e.g. by a UI button.
type Request struct {
  Kind RequestKind
  // Filter is only used by RequestFindScanData.
  Filter string
}

type RequestKind string

const (
  RequestAT           RequestKind = "at"
  RequestInfo         RequestKind = "ati"
  RequestCentral      RequestKind = "central"
  RequestFindScanData RequestKind = "find"
)

var allRequestKinds = []RequestKind{RequestAT, RequestInfo, RequestCentral, RequestFindScanData}

// Command returns the literal command written for the request.
func (r Request) Command() Command {
  switch r.Kind {
  case RequestAT:
    return CmdAT
  case RequestInfo:
    return CmdInfo
  case RequestCentral:
    return CmdCentral
  case RequestFindScanData:
    return FindScanData(r.Filter)
  default:
    panic("unknown request kind: " + string(r.Kind))
  }
}

func (r Request) String() string {
  if r.Kind == RequestFindScanData && r.Filter != "" {
    return string(r.Kind) + "=" + r.Filter
  }

  return string(r.Kind)
}

// ParseRequest accepts "at", "ati", "central", "find" and "find=<hex>" (case insensitive).
func ParseRequest(v string) (Request, error) {
  kind, filter, _ := strings.Cut(strings.TrimSpace(v), "=")
  k := RequestKind(strings.ToLower(strings.TrimSpace(kind)))

  if !slices.Contains(allRequestKinds, k) {
    return Request{}, fmt.Errorf("unknown request %q (must be one of %v)", v, allRequestKinds)
  }

  if filter != "" && k != RequestFindScanData {
    return Request{}, fmt.Errorf("request %q does not take an argument", k)
  }

  return Request{Kind: k, Filter: strings.ToUpper(strings.TrimSpace(filter))}, nil
}

// RequestList collects repeated -send flags.
type RequestList []Request

// *flag.Value
func (l *RequestList) String() string {
  parts := make([]string, len(*l))

  for i, r := range *l {
    parts[i] = r.String()
  }

  return strings.Join(parts, ",")
}

func (l *RequestList) Set(v string) error {
  r, err := ParseRequest(v)
  if err != nil {
    return err
  }

  *l = append(*l, r)
  return nil
}
