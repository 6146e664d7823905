package fsm

import "github.com/librescoot/librefsm"

// Interface lifecycle states
const (
	StateInit           librefsm.StateID = "init"
	StateFingerprinting librefsm.StateID = "fingerprinting"
	StateRunning        librefsm.StateID = "running"
	StateStopped        librefsm.StateID = "stopped"
)

// Interface events
const (
	// External commands (from Redis)
	EvReconfigure librefsm.EventID = "reconfigure"
	EvShutdown    librefsm.EventID = "shutdown"

	// Internal
	EvStart               librefsm.EventID = "start"
	EvFingerprintComplete librefsm.EventID = "fingerprint-complete"

	// Timer events
	EvFingerprintTimeout librefsm.EventID = "fingerprint-timeout"
)
