package models

// -----------------------------------------------------------------------------
// Sample Types
// -----------------------------------------------------------------------------

// StreamKind identifies the logical class of a telemetry stream.
type StreamKind string

const (
	KindPrice  StreamKind = "price"
	KindTrade  StreamKind = "trade"
	KindBook   StreamKind = "book"
	KindSystem StreamKind = "system"
	KindFrame  StreamKind = "frame"
	KindBatch  StreamKind = "batch"
)

// -----------------------------------------------------------------------------

// Sample is the atomic unit of data crossing the system. Each concrete type
// carries its own wire shape; the Type field doubles as the JSON discriminator.
type Sample interface {

	// Kind returns the stream class of the sample
	Kind() StreamKind

	// SourceID returns the logical stream identity (symbol, bus, ...)
	SourceID() string

	// TS returns the emission timestamp in microseconds.
	// Non-decreasing within one source, unordered across sources.
	TS() int64

	// Event reports the explicit always-pass flag (bypasses decimation/batching)
	Event() bool
}

// -----------------------------------------------------------------------------
// Price Tick
// -----------------------------------------------------------------------------

type MPriceTick struct {
	Type      string  `json:"type"`
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Volume    int64   `json:"volume"`
	Timestamp int64   `json:"ts"`
	EventFlag bool    `json:"-"`
}

func NewPriceTick(symbol string, price float64, volume int64, ts int64) *MPriceTick {
	return &MPriceTick{Type: string(KindPrice), Symbol: symbol, Price: price, Volume: volume, Timestamp: ts}
}

func (p *MPriceTick) Kind() StreamKind { return KindPrice }
func (p *MPriceTick) SourceID() string { return p.Symbol }
func (p *MPriceTick) TS() int64        { return p.Timestamp }
func (p *MPriceTick) Event() bool      { return p.EventFlag }

// -----------------------------------------------------------------------------
// Trade Execution
// -----------------------------------------------------------------------------

type MTrade struct {
	Type      string  `json:"type"`
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Size      float64 `json:"size"`
	Side      string  `json:"side"` // "buy" or "sell"
	Timestamp int64   `json:"ts"`
	EventFlag bool    `json:"-"`
}

func NewTrade(symbol string, price, size float64, side string, ts int64) *MTrade {
	return &MTrade{Type: string(KindTrade), Symbol: symbol, Price: price, Size: size, Side: side, Timestamp: ts}
}

func (t *MTrade) Kind() StreamKind { return KindTrade }
func (t *MTrade) SourceID() string { return t.Symbol }
func (t *MTrade) TS() int64        { return t.Timestamp }
func (t *MTrade) Event() bool      { return t.EventFlag }

// -----------------------------------------------------------------------------
// Order Book Update
// -----------------------------------------------------------------------------

// MBookLevel is one [price, size] pair, serialized as a 2-element array.
type MBookLevel [2]float64

type MBookUpdate struct {
	Type      string       `json:"type"`
	Symbol    string       `json:"symbol"`
	Bids      []MBookLevel `json:"bids"`
	Asks      []MBookLevel `json:"asks"`
	Timestamp int64        `json:"ts"`
	EventFlag bool         `json:"-"`
}

func NewBookUpdate(symbol string, bids, asks []MBookLevel, ts int64) *MBookUpdate {
	return &MBookUpdate{Type: string(KindBook), Symbol: symbol, Bids: bids, Asks: asks, Timestamp: ts}
}

func (b *MBookUpdate) Kind() StreamKind { return KindBook }
func (b *MBookUpdate) SourceID() string { return b.Symbol }
func (b *MBookUpdate) TS() int64        { return b.Timestamp }
func (b *MBookUpdate) Event() bool      { return b.EventFlag }

// -----------------------------------------------------------------------------
// System Metric
// -----------------------------------------------------------------------------

type MSystemMetric struct {
	Type      string  `json:"type"`
	CPUPct    float64 `json:"cpu_pct"`
	MemMB     int64   `json:"mem_mb"`
	MsgRate   uint64  `json:"msg_rate"` // messages per second, process-wide
	Timestamp int64   `json:"ts"`
}

func NewSystemMetric(cpuPct float64, memMB int64, msgRate uint64, ts int64) *MSystemMetric {
	return &MSystemMetric{Type: string(KindSystem), CPUPct: cpuPct, MemMB: memMB, MsgRate: msgRate, Timestamp: ts}
}

func (m *MSystemMetric) Kind() StreamKind { return KindSystem }
func (m *MSystemMetric) SourceID() string { return "system" }
func (m *MSystemMetric) TS() int64        { return m.Timestamp }
func (m *MSystemMetric) Event() bool      { return false }

// -----------------------------------------------------------------------------
// Raw Bus Frame
// -----------------------------------------------------------------------------

// MDecodedSignal is an optional physical-value decode of a raw frame.
type MDecodedSignal struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// MRawFrame models a bus-style fixed-payload frame: up to 8 data bytes plus
// a numeric identifier. Data is hex-encoded on the wire.
type MRawFrame struct {
	Type      string          `json:"type"`
	Bus       string          `json:"bus"`
	FrameID   uint32          `json:"id"`
	Data      string          `json:"data"`
	Decoded   *MDecodedSignal `json:"decoded,omitempty"`
	Timestamp int64           `json:"ts"`
	EventFlag bool            `json:"-"`
}

func NewRawFrame(bus string, frameID uint32, dataHex string, ts int64) *MRawFrame {
	return &MRawFrame{Type: string(KindFrame), Bus: bus, FrameID: frameID, Data: dataHex, Timestamp: ts}
}

func (f *MRawFrame) Kind() StreamKind { return KindFrame }
func (f *MRawFrame) SourceID() string { return f.Bus }
func (f *MRawFrame) TS() int64        { return f.Timestamp }
func (f *MRawFrame) Event() bool      { return f.EventFlag }

// -----------------------------------------------------------------------------
// Batch
// -----------------------------------------------------------------------------

// MBatch groups samples from one source into a single routed unit.
// The broadcaster treats it as one entry; sessions unpack it.
type MBatch struct {
	Samples []Sample `json:"batch"`
}

func NewBatch(samples []Sample) *MBatch {
	return &MBatch{Samples: samples}
}

func (b *MBatch) Kind() StreamKind { return KindBatch }

func (b *MBatch) SourceID() string {
	if len(b.Samples) == 0 {
		return ""
	}
	return b.Samples[0].SourceID()
}

// TS of a batch is the timestamp of its newest member.
func (b *MBatch) TS() int64 {
	if len(b.Samples) == 0 {
		return 0
	}
	return b.Samples[len(b.Samples)-1].TS()
}

func (b *MBatch) Event() bool { return false }
