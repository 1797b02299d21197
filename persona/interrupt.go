package persona

import (
	"github.com/journee-live/ojin-persona-client/internal/pfsm"
	"github.com/journee-live/ojin-persona-client/internal/serverclient"
)

// StartInterruption implements the Interrupt Protocol (C10), per spec.md
// §4.10: cancel the in-flight interaction, clear the speech buffer, and
// eagerly return to Idle rather than waiting for the server's
// cancel-acknowledgement. A no-op while Initializing, or while already Idle
// with nothing in flight, per spec.md §8's idempotence requirement.
func (e *Engine) StartInterruption() {
	if e.fsm.Is(pfsm.Initializing) {
		return
	}
	if e.fsm.Is(pfsm.Idle) && e.speech.Len() == 0 {
		return
	}

	if err := e.dialer.Send(serverclient.Message{Type: serverclient.TypeCancelInteraction}); err != nil {
		logf("interrupt: cancel send failed: %v", err)
	}

	e.fsm.Set(pfsm.Interrupting)
	e.speech.Clear()
	if e.clock != nil {
		e.clock.ResetSpeechProgress()
	}
	e.fsm.Set(pfsm.Idle)
}
