package types

// SystemState is the published lifecycle state of a car interface session.
type SystemState string

const (
	StateInit           SystemState = "init"
	StateFingerprinting SystemState = "fingerprinting"
	StateRunning        SystemState = "running"
	StateStopped        SystemState = "stopped"
)
