package submission

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/flowcore/common/logger"
	"github.com/flowforge/flowcore/internal/model"
	"github.com/flowforge/flowcore/internal/protocol"
	"github.com/flowforge/flowcore/internal/resolver"
)

type noopChannel struct{}

func (noopChannel) Send(ctx context.Context, msg protocol.ServerMessage) (protocol.ClientMessage, error) {
	return protocol.ClientMessage{Type: protocol.TypeAck}, nil
}

func libImpl() resolver.Implementation {
	return resolver.NativeFunc(func(ctx context.Context, inputs []json.RawMessage) (json.RawMessage, bool, error) {
		return json.RawMessage("null"), false, nil
	})
}

func TestWireContextFuncsBindsOnlyReferencedContextFunctions(t *testing.T) {
	manifest := &model.Manifest{
		Functions: []model.RuntimeFunction{
			{ID: 0, Implementation: "context://stdio/stdout"},
			{ID: 1, Implementation: "lib://stdlib/add"},
		},
	}
	bound := map[int]resolver.Implementation{1: libImpl()}
	log := logger.New("error", "json")

	wireContextFuncs(bound, manifest, noopChannel{}, log)

	require.Contains(t, bound, 0, "the context:// function must get a bound implementation")
	assert.Contains(t, bound, 1, "a lib:// function's existing binding must be left untouched")
}

func TestWireContextFuncsLeavesUnknownContextNameUnbound(t *testing.T) {
	manifest := &model.Manifest{
		Functions: []model.RuntimeFunction{
			{ID: 0, Implementation: "context://nope/nope"},
		},
	}
	bound := map[int]resolver.Implementation{}
	log := logger.New("error", "json")

	wireContextFuncs(bound, manifest, noopChannel{}, log)

	assert.NotContains(t, bound, 0, "an unrecognized context:// name has nothing to bind")
}
