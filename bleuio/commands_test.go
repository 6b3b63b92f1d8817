package bleuio

import (
	"flag"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommand_Bytes(t *testing.T) {
	assert.Equal(t, []byte("ATE0\r\n"), CmdEchoOff.Bytes())
	assert.Equal(t, "AT+SCANFILTER=NAME=HibouAIR", ScanFilterName("HibouAIR").String())
	assert.Equal(t, CmdFindScanData, FindScanData(""))
	assert.Equal(t, Command("AT+FINDSCANDATA=5B07050"), FindScanData("5B07050"))
}

func TestParseRequest(t *testing.T) {
	tests := []struct {
		in   string
		want Request
		cmd  Command
	}{
		{"at", Request{Kind: RequestAT}, CmdAT},
		{"ATI", Request{Kind: RequestInfo}, CmdInfo},
		{" central ", Request{Kind: RequestCentral}, CmdCentral},
		{"find", Request{Kind: RequestFindScanData}, CmdFindScanData},
		{"find=5b07", Request{Kind: RequestFindScanData, Filter: "5B07"}, "AT+FINDSCANDATA=5B07"},
	}

	for _, tt := range tests {
		got, err := ParseRequest(tt.in)

		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.cmd, got.Command())
	}
}

func TestParseRequest_Invalid(t *testing.T) {
	for _, in := range []string{"", "reset", "at=1", "ati=x"} {
		_, err := ParseRequest(in)
		assert.Error(t, err, in)
	}
}

func TestRequest_CommandPanicsOnUnknownKind(t *testing.T) {
	assert.Panics(t, func() {
		Request{Kind: "bogus"}.Command()
	})
}

func TestRequestList_Flag(t *testing.T) {
	var list RequestList

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Var(&list, "send", "")

	require.NoError(t, fs.Parse([]string{"-send", "ati", "-send", "find=5B07"}))

	assert.Equal(t, RequestList{
		{Kind: RequestInfo},
		{Kind: RequestFindScanData, Filter: "5B07"},
	}, list)
	assert.Equal(t, "ati,find=5B07", list.String())

	assert.Error(t, fs.Parse([]string{"-send", "nope"}))
}
