package fsm

import (
	"time"

	"github.com/librescoot/librefsm"
)

// NewDefinition creates the car interface FSM definition. Fingerprinting
// ends when window elapses, or earlier if a recorded fingerprint is used.
func NewDefinition(actions Actions, window time.Duration) *librefsm.Definition {
	return librefsm.NewDefinition().
		State(StateInit).
		State(StateFingerprinting,
			librefsm.WithTimeout(window, EvFingerprintTimeout),
			librefsm.WithOnEnter(actions.EnterFingerprinting),
			librefsm.WithOnExit(actions.ExitFingerprinting),
		).
		State(StateRunning,
			librefsm.WithOnEnter(actions.EnterRunning),
			librefsm.WithOnExit(actions.ExitRunning),
		).
		State(StateStopped,
			librefsm.WithOnEnter(actions.EnterStopped),
		).

		// === Transitions ===

		Transition(StateInit, EvStart, StateFingerprinting).

		Transition(StateFingerprinting, EvFingerprintTimeout, StateRunning,
			librefsm.WithAction(actions.OnFingerprintComplete),
		).
		Transition(StateFingerprinting, EvFingerprintComplete, StateRunning,
			librefsm.WithAction(actions.OnFingerprintComplete),
		).

		Transition(StateRunning, EvReconfigure, StateFingerprinting,
			librefsm.WithAction(actions.OnReconfigure),
		).

		Transition(StateInit, EvShutdown, StateStopped).
		Transition(StateFingerprinting, EvShutdown, StateStopped).
		Transition(StateRunning, EvShutdown, StateStopped).

		Initial(StateInit)
}
