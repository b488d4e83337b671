package contextfns

import (
	"encoding/json"
	"fmt"

	"github.com/flowforge/flowcore/common/logger"
	"github.com/flowforge/flowcore/internal/protocol"
	"github.com/flowforge/flowcore/internal/resolver"
)

// Stdout builds the context://stdio/stdout function: sends its single
// String input to the client and expects an Ack-free round trip (the
// client has no response payload to return, but Send still blocks for one
// to preserve ordering with subsequent writes).
func Stdout(channel ClientChannel, log *logger.Logger) resolver.Implementation {
	return stdWriter("context://stdio/stdout", protocol.TypeStdout, channel, log)
}

// Stderr builds the context://stdio/stderr function.
func Stderr(channel ClientChannel, log *logger.Logger) resolver.Implementation {
	return stdWriter("context://stdio/stderr", protocol.TypeStderr, channel, log)
}

func stdWriter(name string, msgType protocol.MessageType, channel ClientChannel, log *logger.Logger) resolver.Implementation {
	seq := chain(name, log,
		func(c *call) error {
			if len(c.inputs) != 1 {
				return fmt.Errorf("expected exactly 1 input, got %d", len(c.inputs))
			}
			var s string
			if err := json.Unmarshal(c.inputs[0], &s); err != nil {
				return fmt.Errorf("input must be a JSON string: %w", err)
			}
			payload, err := json.Marshal(protocol.StringPayload{String: s})
			if err != nil {
				return err
			}
			c.request = protocol.ServerMessage{Type: msgType, Payload: payload}
			return nil
		},
		func(c *call) (json.RawMessage, error) {
			return json.Marshal(true)
		},
	)
	return asImplementation(seq, channel)
}

// GetLine builds the context://stdio/get_line function: prompts the client
// with its String input and returns the client's Line response (or an
// error if the client signals GetLineEof).
func GetLine(channel ClientChannel, log *logger.Logger) resolver.Implementation {
	const name = "context://stdio/get_line"
	seq := chain(name, log,
		func(c *call) error {
			var prompt string
			if len(c.inputs) == 1 {
				if err := json.Unmarshal(c.inputs[0], &prompt); err != nil {
					return fmt.Errorf("input must be a JSON string prompt: %w", err)
				}
			}
			payload, err := json.Marshal(protocol.PromptPayload{Prompt: prompt})
			if err != nil {
				return err
			}
			c.request = protocol.ServerMessage{Type: protocol.TypeGetLine, Payload: payload}
			return nil
		},
		func(c *call) (json.RawMessage, error) {
			if c.response.Type == protocol.TypeGetLineEOF {
				return nil, fmt.Errorf("client reached end of input")
			}
			var line protocol.StringPayload
			if err := json.Unmarshal(c.response.Payload, &line); err != nil {
				return nil, fmt.Errorf("malformed Line response: %w", err)
			}
			return json.Marshal(line.String)
		},
	)
	return asImplementation(seq, channel)
}
