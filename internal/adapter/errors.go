package adapter

import "errors"

// State transition errors, returned distinctly per the lifecycle's
// invalid-transition rules rather than a single generic "bad state".
var (
	ErrNodeNotReady   = errors.New("NODE_NOT_READY")
	ErrNodeIsRunning  = errors.New("NODE_IS_RUNNING")
	ErrNodeNotRunning = errors.New("NODE_NOT_RUNNING")
	ErrNodeIsStopped  = errors.New("NODE_IS_STOPED")
	ErrGroupNotAllow  = errors.New("GROUP_NOT_ALLOW")
	ErrSubKeyImmutable = errors.New("SUBSCRIPTION_KEY_IMMUTABLE")
)
