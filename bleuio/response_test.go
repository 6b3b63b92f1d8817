package bleuio

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Response
	}{
		{"plain text", "ECHO OFF", Raw{Text: "ECHO OFF"}},
		{"empty line", "", Raw{Text: ""}},
		{"broken json", `{"C":1`, Raw{Text: `{"C":1`}},
		{"json array", `[1,2]`, Raw{Text: `[1,2]`}},
		{"command echo", `{"C":1,"cmd":"ATE0"}`, CommandEcho{Index: 1, Cmd: "ATE0"}},
		{
			"acknowledgement",
			`{"A":3,"err":4,"errMsg":"Invalid parameter"}`,
			Acknowledgement{Index: 3, ErrorCode: 4, ErrorMessage: "Invalid parameter"},
		},
		{
			"acknowledgement without code",
			`{"A":3}`,
			Acknowledgement{Index: 3, ErrorCode: -1},
		},
		{"end", `{"E":2,"nol":3}`, End{Index: 2, LineCount: 3}},
		{
			"scan data",
			`{"S":1,"rssi":-60,"addr":"[0]AA:BB:CC:DD:EE:FF","name":"HibouAIR"}`,
			ScanData{Index: 1, RSSI: -60, Address: "[0]AA:BB:CC:DD:EE:FF", Name: "HibouAIR", HasName: true},
		},
		{
			"scan data wins over scan find data",
			`{"S":1,"SF":1,"rssi":-60,"addr":"AA:BB:CC:DD:EE:FF"}`,
			ScanData{Index: 1, RSSI: -60, Address: "AA:BB:CC:DD:EE:FF"},
		},
		{
			"scan find data",
			`{"SF":7,"rssi":-71,"addr":"[1]D1:79:29:DB:CB:CC","type":3,"data":"0201061BFF5B07"}`,
			ScanFindData{Index: 7, RSSI: -71, HasRSSI: true, Address: "[1]D1:79:29:DB:CB:CC", AdvertisingType: 3, DataHex: "0201061BFF5B07"},
		},
		{
			"scan target",
			`{"ST":2,"addr":"AA:BB:CC:DD:EE:FF","data":"0201"}`,
			ScanTarget{Index: 2, Address: "AA:BB:CC:DD:EE:FF", DataHex: "0201"},
		},
		{"scan ended", `{"SE":4,"action":"scan completed"}`, ScanEnded{Index: 4, Action: "scan completed"}},
		{"empty object", `{}`, Unknown{Fields: map[string]json.RawMessage{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.line)

			if u, ok := tt.want.(Unknown); ok {
				require.IsType(t, u, got)
				assert.Empty(t, got.(Unknown).Fields)
				return
			}

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Kind(), got.Kind())
		})
	}
}

func TestClassify_Reply(t *testing.T) {
	got := Classify(`{"R":2,"fw":"2.7.1","mode":"central"}`)

	require.IsType(t, Reply{}, got)

	r := got.(Reply)
	assert.Equal(t, int64(2), r.Index)
	assert.Equal(t, map[string]any{"fw": "2.7.1", "mode": "central"}, r.Fields)
}

func TestClassify_Event(t *testing.T) {
	got := Classify(`{"EVT":"CONNECTED","hdl":"0001","data":{"addr":"AA:BB:CC:DD:EE:FF"}}`)

	require.IsType(t, Event{}, got)

	e := got.(Event)
	assert.Equal(t, "CONNECTED", e.Code)
	assert.Equal(t, int64(1), e.ConnectionIndex)
	assert.JSONEq(t, `{"addr":"AA:BB:CC:DD:EE:FF"}`, string(e.Data))

	e = Classify(`{"EVT":12}`).(Event)
	assert.Equal(t, "12", e.Code)
	assert.Equal(t, int64(NoConnection), e.ConnectionIndex)
	assert.Nil(t, e.Data)
}

func TestClassify_UnknownKeepsFields(t *testing.T) {
	got := Classify(`{"X":1,"foo":"bar"}`)

	require.IsType(t, Unknown{}, got)
	assert.Len(t, got.(Unknown).Fields, 2)
	assert.Equal(t, "Unknown", got.Kind().String())
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "ScanFindData", KindScanFindData.String())
	assert.Equal(t, "Kind(200)", Kind(200).String())
}
