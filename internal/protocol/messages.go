// Package protocol defines the client/coordinator message vocabulary of
// spec.md §6: the request/response pairs a submission's external client
// exchanges with the coordinator over a request/response channel. It is
// split out from internal/submission so that internal/contextfns (which
// sends server messages and blocks on the matching client message) doesn't
// need to import the coordinator that hosts it.
package protocol

import "encoding/json"

// MessageType names one of the fixed wire messages.
type MessageType string

const (
	TypeSubmission      MessageType = "Submission"
	TypeFlowStart       MessageType = "FlowStart"
	TypeFlowEnd         MessageType = "FlowEnd"
	TypeCoordinatorExit MessageType = "CoordinatorExiting"
	TypeStdout          MessageType = "Stdout"
	TypeStderr          MessageType = "Stderr"
	TypeStdoutEOF       MessageType = "StdoutEof"
	TypeStderrEOF       MessageType = "StderrEof"
	TypeGetStdin        MessageType = "GetStdin"
	TypeStdin           MessageType = "Stdin"
	TypeGetStdinEOF     MessageType = "GetStdinEof"
	TypeGetLine         MessageType = "GetLine"
	TypeLine            MessageType = "Line"
	TypeGetLineEOF      MessageType = "GetLineEof"
	TypeGetArgs         MessageType = "GetArgs"
	TypeArgs            MessageType = "Args"
	TypeRead            MessageType = "Read"
	TypeFileContents    MessageType = "FileContents"
	TypeWrite           MessageType = "Write"
	TypeAck             MessageType = "Ack"
	TypePixelWrite      MessageType = "PixelWrite"
	TypeEnterDebugger   MessageType = "EnterDebugger"
	TypeClientExiting   MessageType = "ClientExiting"
)

// ServerMessage is a coordinator-to-client request. Payload is the
// message-specific body, serialized as JSON (e.g. {"string": "..."} for
// Stdout, {"prompt": "..."} for GetLine).
type ServerMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ClientMessage is a client-to-coordinator response, matching the
// ServerMessage that prompted it.
type ClientMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// StringPayload wraps the single-string bodies used by Stdout/Stderr/Stdin/
// Line.
type StringPayload struct {
	String string `json:"string"`
}

// PromptPayload is GetLine's request body.
type PromptPayload struct {
	Prompt string `json:"prompt"`
}

// ArgsPayload is Args's response body.
type ArgsPayload struct {
	Args []string `json:"args"`
}

// PathPayload is Read's request body.
type PathPayload struct {
	Path string `json:"path"`
}

// FileContentsPayload is Read's response body.
type FileContentsPayload struct {
	Path  string `json:"path"`
	Bytes []byte `json:"bytes"`
}

// WritePayload is Write's request body.
type WritePayload struct {
	Path  string `json:"path"`
	Bytes []byte `json:"bytes"`
}

// Pixel is one coordinate/color triple of a PixelWrite request.
type Pixel struct {
	X, Y    int `json:"x_y"`
	R, G, B int `json:"r_g_b"`
}

// PixelWritePayload is PixelWrite's request body: a single pixel write into
// a named image buffer of dimensions W x H.
type PixelWritePayload struct {
	Pixel Pixel  `json:"pixel"`
	W, H  int    `json:"w_h"`
	Name  string `json:"name"`
}

// FlowEndPayload carries the accumulated run metrics at flow termination.
type FlowEndPayload struct {
	JobsCreated   uint64 `json:"jobs_created"`
	JobsCompleted uint64 `json:"jobs_completed"`
	MaxInFlight   int    `json:"max_in_flight"`
}

// CoordinatorExitingPayload carries the coordinator's overall result.
type CoordinatorExitingPayload struct {
	Ok    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}
