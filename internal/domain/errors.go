package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// The membership engine itself never raises these — spec §7 is explicit that
// protocol-level conditions (malformed payloads, unknown senders, suspected
// peers, duplicate messages, redundant JOIN/LEAVE) are absorbed silently or
// expressed as membership changes, never as errors. These sentinels exist for
// the host/runtime layer, where real failures (a closed socket, a bad config
// file) are still failures.

var (
	// ErrTimerUnknown names a cancel of a timer name that was never armed.
	// Nothing in this module returns it: dsa.TimerQueue.Cancel and
	// Runtime.CancelTimer treat an unknown name as a no-op.
	ErrTimerUnknown = errors.New("timer: unknown name")

	// ErrBindFailed wraps a transport's failure to bind its listen address.
	ErrBindFailed = errors.New("transport: bind failed")

	// ErrInvalidConfig indicates a config file failed to parse or failed
	// validation (e.g. a zero probe period or negative fanout).
	ErrInvalidConfig = errors.New("config: invalid value")

	// ErrNotJoined names a GET_MEMBERS-style request made of a process that
	// never joined a group. Nothing in this module returns it: the engine
	// answers GET_MEMBERS with an empty set, and the control surface's
	// /v1/members replies with an empty list rather than an error.
	ErrNotJoined = errors.New("membership: process has not joined a group")
)
