// Package contextfns implements the built-in context:// functions (stdio,
// file IO, image buffer, argument retrieval): ordinary impure functions
// whose implementations communicate synchronously with an external client
// over a request/response channel, each invocation sending a server
// message and blocking for the matching client message (spec.md §4.M, §6).
//
// Every function is built as a validate -> execute -> log pipz.Chain:
// validate rejects a malformed input before anything is sent to the
// client, execute performs the round trip, log records the outcome via the
// shared logger.
package contextfns

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zoobzio/pipz"

	"github.com/flowforge/flowcore/common/logger"
	"github.com/flowforge/flowcore/internal/protocol"
	"github.com/flowforge/flowcore/internal/resolver"
)

// ClientChannel is the submission's external-client transport: send a
// server message, block for the matching client message. A websocket-backed
// implementation lives in internal/submission.
type ClientChannel interface {
	Send(ctx context.Context, msg protocol.ServerMessage) (protocol.ClientMessage, error)
}

// call is the shared request/response envelope threaded through each
// context function's pipz.Chain. ctx rides along on the struct itself since
// pipz.Chainable.Process carries no context parameter of its own.
type call struct {
	ctx     context.Context
	channel ClientChannel
	inputs  []json.RawMessage

	request  protocol.ServerMessage
	response protocol.ClientMessage
	output   json.RawMessage
}

// step adapts a plain function to pipz.Chainable[*call].
type step func(*call) (*call, error)

func (s step) Process(c *call) (*call, error) { return s(c) }

// chain builds the validate -> execute -> log pipeline common to every
// context function. build fills in c.request from c.inputs (or returns an
// error, failing validation); extract turns a successful c.response into
// the function's output.
func chain(name string, log *logger.Logger, build func(*call) error, extract func(*call) (json.RawMessage, error)) *pipz.Chain[*call] {
	validate := step(func(c *call) (*call, error) {
		if c.channel == nil {
			return c, fmt.Errorf("%s: no client channel configured", name)
		}
		if err := build(c); err != nil {
			return c, fmt.Errorf("%s: %w", name, err)
		}
		return c, nil
	})

	execute := step(func(c *call) (*call, error) {
		resp, err := c.channel.Send(c.ctx, c.request)
		if err != nil {
			return c, fmt.Errorf("%s: client round trip: %w", name, err)
		}
		c.response = resp
		out, err := extract(c)
		if err != nil {
			return c, fmt.Errorf("%s: %w", name, err)
		}
		c.output = out
		return c, nil
	})

	logStep := step(func(c *call) (*call, error) {
		if log != nil {
			log.Debug(name+" round trip", "request_type", string(c.request.Type), "response_type", string(c.response.Type))
		}
		return c, nil
	})

	return pipz.NewChain[*call]().Add(validate, execute, logStep)
}

// asImplementation adapts a *call-typed pipz.Chain into the generic
// resolver.Implementation every other component deals with. Context
// functions always ask to run again, since they have no notion of a pure,
// one-shot computation — each round trip happens on demand whenever the
// function is fired.
func asImplementation(ch *pipz.Chain[*call], channel ClientChannel) resolver.Implementation {
	return resolver.NativeFunc(func(ctx context.Context, inputs []json.RawMessage) (json.RawMessage, bool, error) {
		c := &call{ctx: ctx, channel: channel, inputs: inputs}
		c, err := ch.Process(c)
		if err != nil {
			return nil, false, err
		}
		return c.output, true, nil
	})
}
