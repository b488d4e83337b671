package contextfns

import (
	"encoding/json"
	"fmt"

	"github.com/flowforge/flowcore/common/logger"
	"github.com/flowforge/flowcore/internal/protocol"
	"github.com/flowforge/flowcore/internal/resolver"
)

// pixelWriteRequest is the JSON shape a flow passes to
// context://image/pixel_write: one pixel of a named W x H buffer.
type pixelWriteRequest struct {
	X, Y    int    `json:"x_y"`
	R, G, B int    `json:"r_g_b"`
	W, H    int    `json:"w_h"`
	Name    string `json:"name"`
}

// PixelWrite builds the context://image/pixel_write function. Concurrent
// writers to the same buffer name are serialized for free: this is a single
// function instance, and the scheduler only ever runs one firing of a given
// function at a time at input capacity 1 (spec.md §5's shared-resource
// policy).
func PixelWrite(channel ClientChannel, log *logger.Logger) resolver.Implementation {
	const name = "context://image/pixel_write"
	seq := chain(name, log,
		func(c *call) error {
			if len(c.inputs) != 1 {
				return fmt.Errorf("expected exactly 1 input, got %d", len(c.inputs))
			}
			var req pixelWriteRequest
			if err := json.Unmarshal(c.inputs[0], &req); err != nil {
				return fmt.Errorf("malformed pixel write request: %w", err)
			}
			payload, err := json.Marshal(protocol.PixelWritePayload{
				Pixel: protocol.Pixel{X: req.X, Y: req.Y, R: req.R, G: req.G, B: req.B},
				W:     req.W,
				H:     req.H,
				Name:  req.Name,
			})
			if err != nil {
				return err
			}
			c.request = protocol.ServerMessage{Type: protocol.TypePixelWrite, Payload: payload}
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
