package fsm

import "github.com/librescoot/librefsm"

// Actions defines the interface for the car interface lifecycle.
// CarInterface implements this interface to handle state entry/exit.
type Actions interface {
	// State entry actions
	EnterFingerprinting(c *librefsm.Context) error
	EnterRunning(c *librefsm.Context) error
	EnterStopped(c *librefsm.Context) error

	// State exit actions
	ExitFingerprinting(c *librefsm.Context) error
	ExitRunning(c *librefsm.Context) error

	// Transition actions
	OnFingerprintComplete(c *librefsm.Context) error // Resolves the collected fingerprint
	OnReconfigure(c *librefsm.Context) error         // Reloads settings before detection restarts
}
