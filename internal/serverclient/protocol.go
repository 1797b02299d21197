package serverclient

// Wire message type discriminators, per spec.md §4.2 / §6.
const (
	TypeSessionReady        = "session_ready"
	TypeInteractionInput    = "interaction_input"
	TypeInteractionResponse = "interaction_response"
	TypeCancelInteraction   = "cancel_interaction"
	TypeErrorResponse       = "error_response"
)

// Fatal server error codes per spec.md §4.9 / §7.
const (
	CodeNoBackendServerAvailable      = "NO_BACKEND_SERVER_AVAILABLE"
	CodeFailedCreateModel             = "FAILED_CREATE_MODEL"
	CodeInvalidPersonaIDConfiguration = "INVALID_PERSONA_ID_CONFIGURATION"
)

// Survivable server error codes per spec.md §4.9 / §7.
const (
	CodeFrameSizeTooBig      = "FRAME_SIZE_TOO_BIG"
	CodeInvalidInteractionID = "INVALID_INTERACTION_ID"
)

// Message is the JSON envelope exchanged over the duplex connection. A flat
// struct with a type discriminator, matching the wire convention used by
// the teacher's server protocol (server/internal/protocol/message.go) and
// client-side ControlMsg (client/transport.go) rather than Go-side sum
// types wrapped in interfaces. The per-message payloads that the wire
// format nests (SessionReady's `parameters`, ErrorResponse's `payload`) keep
// that nesting here rather than being flattened onto Message, so ReadJSON
// decodes a compliant server's frames correctly.
type Message struct {
	Type string `json:"type"`

	// SessionReady
	Parameters *SessionReadyParameters `json:"parameters,omitempty"`

	// InteractionInput
	AudioInt16Bytes []byte       `json:"audio_int16_bytes,omitempty"`
	Params          *InputParams `json:"params,omitempty"`

	// InteractionResponse
	Index           int    `json:"index,omitempty"`
	VideoFrameBytes []byte `json:"video_frame_bytes,omitempty"`
	AudioBytes      []byte `json:"audio_bytes,omitempty"`
	IsFinalResponse bool   `json:"is_final_response,omitempty"`

	// ErrorResponse
	Payload *ErrorPayload `json:"payload,omitempty"`
}

// SessionReadyParameters is the parameters sub-object of a SessionReady
// message.
type SessionReadyParameters struct {
	IsMirroredLoop bool `json:"is_mirrored_loop"`
}

// ErrorPayload is the payload sub-object of an ErrorResponse message.
type ErrorPayload struct {
	Code string `json:"code"`
}

// InputParams is the params sub-object of an InteractionInput message.
type InputParams struct {
	ClientFrameIndex   int     `json:"client_frame_index"`
	FilterAmount       float64 `json:"filter_amount"`
	MouthOpeningScale  float64 `json:"mouth_opening_scale"`
	GenerateIdleFrames bool    `json:"generate_idle_frames,omitempty"`
}

// MirroredLoop reports the nested is_mirrored_loop flag carried by a
// SessionReady message. Absent Parameters defaults to false (plain
// wraparound), matching spec.md §4.3's is_mirrored_loop=false case.
func (m Message) MirroredLoop() bool {
	return m.Parameters != nil && m.Parameters.IsMirroredLoop
}

// ErrorCode returns the nested error code carried by an ErrorResponse
// message, or "" when Payload is absent.
func (m Message) ErrorCode() string {
	if m.Payload == nil {
		return ""
	}
	return m.Payload.Code
}
