package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Wire shapes are a contract with non-Go consumers; these pin the exact
// field names and layouts.
// -----------------------------------------------------------------------------

func TestPriceTickWireShape(t *testing.T) {
	tick := NewPriceTick("AAPL", 180.25, 1500, 1700000000000000)

	data, err := json.Marshal(tick)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"price","symbol":"AAPL","price":180.25,"volume":1500,"ts":1700000000000000}`,
		string(data))
}

func TestBookUpdateWireShape(t *testing.T) {
	book := NewBookUpdate("AAPL",
		[]MBookLevel{{180.20, 3.5}, {180.10, 1.0}},
		[]MBookLevel{{180.30, 2.0}},
		42)

	data, err := json.Marshal(book)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"book","symbol":"AAPL","bids":[[180.2,3.5],[180.1,1]],"asks":[[180.3,2]],"ts":42}`,
		string(data))
}

func TestFrameWireShape(t *testing.T) {
	frame := NewRawFrame("can0", 0x201, "0bb8", 42)
	frame.Decoded = &MDecodedSignal{Name: "engine_rpm", Value: 750, Unit: "rpm"}

	data, err := json.Marshal(frame)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"frame","bus":"can0","id":513,"data":"0bb8","decoded":{"name":"engine_rpm","value":750,"unit":"rpm"},"ts":42}`,
		string(data))
}

func TestFrameOmitsMissingDecode(t *testing.T) {
	data, err := json.Marshal(NewRawFrame("can0", 0x7FF, "ff", 1))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "decoded")
}

func TestBatchWireShape(t *testing.T) {
	batch := NewBatch([]Sample{
		NewPriceTick("AAPL", 180, 100, 1),
		NewPriceTick("AAPL", 181, 100, 2),
	})

	data, err := json.Marshal(batch)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"batch":[{"type":"price","symbol":"AAPL","price":180,"volume":100,"ts":1},{"type":"price","symbol":"AAPL","price":181,"volume":100,"ts":2}]}`,
		string(data))
}

// The event flag is internal routing state, never serialized.
func TestEventFlagStaysOffTheWire(t *testing.T) {
	tick := NewPriceTick("AAPL", 180, 100, 1)
	tick.EventFlag = true

	data, err := json.Marshal(tick)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "EventFlag")
	assert.NotContains(t, string(data), "event")
}

// -----------------------------------------------------------------------------

func TestBatchDerivedAccessors(t *testing.T) {
	batch := NewBatch([]Sample{
		NewPriceTick("AAPL", 180, 100, 10),
		NewTrade("AAPL", 180.1, 2, "buy", 20),
	})

	assert.Equal(t, KindBatch, batch.Kind())
	assert.Equal(t, "AAPL", batch.SourceID())
	assert.Equal(t, int64(20), batch.TS(), "batch timestamp is its newest member's")

	empty := NewBatch(nil)
	assert.Equal(t, "", empty.SourceID())
	assert.Equal(t, int64(0), empty.TS())
}

func TestControlCommandParsing(t *testing.T) {
	var cmd MControlCommand
	require.NoError(t, json.Unmarshal([]byte(`{"frequency_ms":100}`), &cmd))
	require.NotNil(t, cmd.FrequencyMs)
	assert.Equal(t, 100, *cmd.FrequencyMs)
	assert.Nil(t, cmd.BufferSize)
	assert.Nil(t, cmd.Subscribe)
	assert.Empty(t, cmd.Snapshot)
}
