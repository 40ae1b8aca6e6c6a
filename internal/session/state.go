package session

import "time"

// State is the supervisor's position in the stream start/stop lifecycle.
type State string

const (
	StateIdle               State = "idle"
	StateConfigWriting      State = "config_writing"
	StateMediaMTXRestarting State = "mediamtx_restarting"
	StateMediaMTXReady      State = "mediamtx_ready"
	StateMediaMTXFailed     State = "mediamtx_failed"
	StateTranscoderStarting State = "transcoder_starting"
	StateTranscoderRunning  State = "transcoder_running"
)

// AllStates lists every state, for the state gauge.
var AllStates = []string{
	string(StateIdle),
	string(StateConfigWriting),
	string(StateMediaMTXRestarting),
	string(StateMediaMTXReady),
	string(StateMediaMTXFailed),
	string(StateTranscoderStarting),
	string(StateTranscoderRunning),
}

// RetryPolicy bounds the media server readiness poll.
type RetryPolicy struct {
	Attempts int
	Interval time.Duration
}

// DefaultRetryPolicy matches the media server's observed worst-case SRT
// listener startup on slow SD cards.
var DefaultRetryPolicy = RetryPolicy{Attempts: 15, Interval: time.Second}

// Delays are the settle intervals inserted between lifecycle steps. They are
// explicit configuration so tests can collapse them.
type Delays struct {
	AfterStop   time.Duration // after service stop, before start
	AfterStart  time.Duration // after service start, before is-active check
	BeforeSpawn time.Duration // after readiness, before transcoder spawn
	HLSProbe    time.Duration // before the fire-and-forget playlist fetch
}

// DefaultDelays are the production settle intervals.
var DefaultDelays = Delays{
	AfterStop:   2 * time.Second,
	AfterStart:  3 * time.Second,
	BeforeSpawn: 1 * time.Second,
	HLSProbe:    3 * time.Second,
}
