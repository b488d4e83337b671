package contextfns

import (
	"encoding/json"
	"fmt"

	"github.com/flowforge/flowcore/common/logger"
	"github.com/flowforge/flowcore/internal/protocol"
	"github.com/flowforge/flowcore/internal/resolver"
)

// GetArgs builds the context://args/get function: takes no meaningful
// input and returns the submission's argument vector as an Array/String.
func GetArgs(channel ClientChannel, log *logger.Logger) resolver.Implementation {
	const name = "context://args/get"
	seq := chain(name, log,
		func(c *call) error {
			c.request = protocol.ServerMessage{Type: protocol.TypeGetArgs}
			return nil
		},
		func(c *call) (json.RawMessage, error) {
			var args protocol.ArgsPayload
			if err := json.Unmarshal(c.response.Payload, &args); err != nil {
				return nil, fmt.Errorf("malformed Args response: %w", err)
			}
			return json.Marshal(args.Args)
		},
	)
	return asImplementation(seq, channel)
}

// Registry returns the fixed set of built-in context functions bound to
// channel, keyed by the locator path passed to resolver.Resolve.
func Registry(channel ClientChannel, log *logger.Logger) map[string]resolver.Implementation {
	return map[string]resolver.Implementation{
		"stdio/stdout":      Stdout(channel, log),
		"stdio/stderr":      Stderr(channel, log),
		"stdio/get_line":    GetLine(channel, log),
		"file/read":         ReadFile(channel, log),
		"file/write":        WriteFile(channel, log),
		"image/pixel_write": PixelWrite(channel, log),
		"args/get":          GetArgs(channel, log),
	}
}
