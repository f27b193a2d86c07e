package models

// -----------------------------------------------------------------------------
// Control Messages (client -> server)
// -----------------------------------------------------------------------------

// MControlCommand is the inbound control envelope. Fields are pointers so a
// single message can carry any combination and absent fields are ignored.
type MControlCommand struct {
	// FrequencyMs sets the shared rate controller delay. The documented
	// policy is global: any session's value affects all sessions.
	FrequencyMs *int `json:"frequency_ms,omitempty"`

	// BufferSize resizes this session's rolling buffers.
	BufferSize *int `json:"buffer_size,omitempty"`

	// Subscribe replaces this session's subscription set.
	Subscribe *MSubscription `json:"subscribe,omitempty"`

	// Snapshot requests the current rolling buffer contents for one channel.
	Snapshot string `json:"snapshot,omitempty"`
}

// MSubscription is the set of streams a session wants. Empty Kinds means all
// kinds; empty Sources means all sources of the selected kinds.
type MSubscription struct {
	Kinds   []string `json:"kinds"`
	Sources []string `json:"sources"`
}

// -----------------------------------------------------------------------------
// Server Replies
// -----------------------------------------------------------------------------

// MSnapshotReply answers a snapshot request with buffered history.
type MSnapshotReply struct {
	Type    string   `json:"type"` // "snapshot"
	Channel string   `json:"channel"`
	Samples []Sample `json:"samples"`
}

// MWarning is sent when a control message is rejected (e.g. rate limited).
type MWarning struct {
	Type    string `json:"type"` // "warning"
	Message string `json:"message"`
}
