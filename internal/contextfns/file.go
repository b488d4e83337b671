package contextfns

import (
	"encoding/json"
	"fmt"

	"github.com/flowforge/flowcore/common/logger"
	"github.com/flowforge/flowcore/internal/protocol"
	"github.com/flowforge/flowcore/internal/resolver"
)

// readRequest/writeRequest are the JSON shapes the compiled flow passes as
// input to context://file/read and context://file/write.
type readRequest struct {
	Path string `json:"path"`
}

type writeRequest struct {
	Path  string `json:"path"`
	Bytes []byte `json:"bytes"`
}

// ReadFile builds the context://file/read function.
func ReadFile(channel ClientChannel, log *logger.Logger) resolver.Implementation {
	const name = "context://file/read"
	seq := chain(name, log,
		func(c *call) error {
			if len(c.inputs) != 1 {
				return fmt.Errorf("expected exactly 1 input, got %d", len(c.inputs))
			}
			var req readRequest
			if err := json.Unmarshal(c.inputs[0], &req); err != nil {
				return fmt.Errorf("malformed read request: %w", err)
			}
			payload, err := json.Marshal(protocol.PathPayload{Path: req.Path})
			if err != nil {
				return err
			}
			c.request = protocol.ServerMessage{Type: protocol.TypeRead, Payload: payload}
			return nil
		},
		func(c *call) (json.RawMessage, error) {
			var fc protocol.FileContentsPayload
			if err := json.Unmarshal(c.response.Payload, &fc); err != nil {
				return nil, fmt.Errorf("malformed FileContents response: %w", err)
			}
			return json.Marshal(fc)
		},
	)
	return asImplementation(seq, channel)
}

// WriteFile builds the context://file/write function.
func WriteFile(channel ClientChannel, log *logger.Logger) resolver.Implementation {
	const name = "context://file/write"
	seq := chain(name, log,
		func(c *call) error {
			if len(c.inputs) != 1 {
				return fmt.Errorf("expected exactly 1 input, got %d", len(c.inputs))
			}
			var req writeRequest
			if err := json.Unmarshal(c.inputs[0], &req); err != nil {
				return fmt.Errorf("malformed write request: %w", err)
			}
			payload, err := json.Marshal(protocol.WritePayload{Path: req.Path, Bytes: req.Bytes})
			if err != nil {
				return err
			}
			c.request = protocol.ServerMessage{Type: protocol.TypeWrite, Payload: payload}
			return nil
		},
		func(c *call) (json.RawMessage, error) {
			if c.response.Type != protocol.TypeAck {
				return nil, fmt.Errorf("expected Ack, got %s", c.response.Type)
			}
			return json.Marshal(true)
		},
	)
	return asImplementation(seq, channel)
}
