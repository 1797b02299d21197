package persona

import (
	"context"
	"errors"

	"github.com/journee-live/ojin-persona-client/internal/pfsm"
	"github.com/journee-live/ojin-persona-client/internal/serverclient"
	"github.com/journee-live/ojin-persona-client/internal/speechqueue"
)

// dispatchLoop is the Message Dispatcher (C9): a long-running task that
// reads server messages and routes them by type and current FSM state, per
// spec.md §4.9.
func (e *Engine) dispatchLoop(ctx context.Context) error {
	for {
		msg, err := e.dialer.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			logf("receive failed: %v", err)
			e.emitEnd()
			return err
		}
		if msg == nil {
			return nil // connection closed cleanly
		}

		if fatal := e.handleMessage(*msg); fatal {
			e.emitEnd()
			return nil
		}
	}
}

// handleMessage routes one server message. Returns true when a fatal server
// error ends the session.
func (e *Engine) handleMessage(msg serverclient.Message) bool {
	switch msg.Type {
	case serverclient.TypeSessionReady:
		e.onSessionReady(msg)
	case serverclient.TypeInteractionResponse:
		e.onInteractionResponse(msg)
	case serverclient.TypeErrorResponse:
		return e.onErrorResponse(msg)
	default:
		logf("dispatch: unrecognized message type %q", msg.Type)
	}
	return false
}

// onSessionReady handles spec.md §4.9's SessionReady branch: enter
// Initializing, record the mirror flag, start the interaction, and prime
// the server with an empty-audio request asking it to generate idle
// frames.
func (e *Engine) onSessionReady(msg serverclient.Message) {
	e.fsm.Set(pfsm.Initializing)
	e.mirrored = msg.MirroredLoop()

	if _, err := e.dialer.StartInteraction(); err != nil {
		logf("start_interaction failed: %v", err)
		return
	}

	err := e.dialer.Send(serverclient.Message{
		Type: serverclient.TypeInteractionInput,
		Params: &serverclient.InputParams{
			GenerateIdleFrames: true,
		},
	})
	if err != nil {
		logf("priming send failed: %v", err)
	}
}

// onInteractionResponse handles spec.md §4.9's four state-dependent
// branches for InteractionResponse.
func (e *Engine) onInteractionResponse(msg serverclient.Message) {
	switch e.fsm.Current() {
	case pfsm.Initializing:
		if err := e.idle.Append(msg.VideoFrameBytes); err != nil {
			logf("idle cache append failed: %v", err)
			return
		}
		if msg.IsFinalResponse {
			e.idle.Finalize(e.mirrored)
			e.fsm.Set(pfsm.Idle)
			e.emitPersonaInitializedOnce()
			e.startClockOnce()
		}

	case pfsm.Speaking:
		e.speech.PushBack(speechqueue.VideoFrame{
			FrameIdx: msg.Index,
			Image:    msg.VideoFrameBytes,
			Audio:    msg.AudioBytes,
			IsFinal:  msg.IsFinalResponse,
		})

	case pfsm.Interrupting:
		e.speech.PushBack(speechqueue.VideoFrame{
			FrameIdx: msg.Index,
			Image:    msg.VideoFrameBytes,
			Audio:    msg.AudioBytes,
			IsFinal:  msg.IsFinalResponse,
		})
		if msg.IsFinalResponse {
			e.speech.Clear()
			e.fsm.Set(pfsm.Idle)
		}

	case pfsm.Idle:
		logf("dispatch: discarding stale InteractionResponse idx=%d", msg.Index)
	}
}

// onErrorResponse classifies a server error per spec.md §4.9/§7. Fatal
// errors end the session; survivable ones are logged and the session
// continues.
func (e *Engine) onErrorResponse(msg serverclient.Message) bool {
	code := msg.ErrorCode()
	se := serverclient.ClassifyServerError(code)
	if se.Severity == serverclient.SeverityFatal {
		logf("fatal server error: %s", code)
		return true
	}
	logf("survivable server error: %s", code)
	return false
}
