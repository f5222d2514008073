// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture — it depends on nothing.
package domain

// ─── Identifiers ─────────────────────────────────────────────────────────────

// ProcessId is an opaque, globally unique identifier for a process instance.
type ProcessId string

// ─── Register Model ──────────────────────────────────────────────────────────

// Tag pairs an audit-only wall-clock timestamp with the generation counter
// that actually drives ordering. Timestamp is never compared during a merge;
// it is compared only by a local add's check against an existing removed
// entry (a local removal compares generations, like a merge).
// See spec §9 — the asymmetry is intentional, not an oversight.
type Tag struct {
	Timestamp  float64 `json:"timestamp"`
	Generation int64   `json:"generation"`
}

// BootstrapTimestamp is the sentinel audit timestamp recorded for a process's
// own added-entry when it joins via a seed rather than creating the group.
// It means "joined via bootstrap, true time unknown" and is never treated
// specially by merge — only normal dominance rules apply to it.
const BootstrapTimestamp = -1.0

// SampleMap is the wire encoding of a bounded random sample of a register.
type SampleMap map[ProcessId]Tag

// ─── Wire Messages ───────────────────────────────────────────────────────────

// Ping is sent either as a direct probe or, when Target is set, as an
// indirect probe the recipient must relay verbatim to Target.
type Ping struct {
	Added   SampleMap  `json:"added,omitempty"`
	Removed SampleMap  `json:"removed,omitempty"`
	Time    int64      `json:"time"`
	Target  *ProcessId `json:"target,omitempty"`
}

// PingAnswer is the direct reply to a Ping whose Target is nil or self.
type PingAnswer struct {
	Added   SampleMap `json:"added,omitempty"`
	Removed SampleMap `json:"removed,omitempty"`
	Time    int64     `json:"time"`
}

// ─── Local Command / Reply Surface ───────────────────────────────────────────

// Join requests the engine create a new group (Seed == self) or bootstrap
// into an existing one via Seed.
type Join struct {
	Seed ProcessId `json:"seed"`
}

// Leave requests a graceful departure. A no-op if not currently joined.
type Leave struct{}

// GetMembers requests the current active-set snapshot.
type GetMembers struct{}

// Members is the local reply to GetMembers. Order is unspecified.
type Members struct {
	Members []ProcessId `json:"members"`
}
