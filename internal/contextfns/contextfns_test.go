package contextfns

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/flowcore/internal/protocol"
)

// fakeChannel is an in-memory ClientChannel stand-in: it records every
// request it was sent and answers with whatever response the test queued
// for that message type.
type fakeChannel struct {
	sent      []protocol.ServerMessage
	responses map[protocol.MessageType]protocol.ClientMessage
	err       error
}

func (f *fakeChannel) Send(ctx context.Context, msg protocol.ServerMessage) (protocol.ClientMessage, error) {
	f.sent = append(f.sent, msg)
	if f.err != nil {
		return protocol.ClientMessage{}, f.err
	}
	return f.responses[msg.Type], nil
}

func TestStdoutSendsStringPayloadAndAcks(t *testing.T) {
	ch := &fakeChannel{responses: map[protocol.MessageType]protocol.ClientMessage{
		protocol.TypeStdout: {Type: protocol.TypeStdout},
	}}
	impl := Stdout(ch, nil)

	out, runAgain, err := impl.Invoke(context.Background(), []json.RawMessage{json.RawMessage(`"hi"`)})
	require.NoError(t, err)
	assert.True(t, runAgain, "context functions always ask to run again")
	assert.JSONEq(t, "true", string(out))

	require.Len(t, ch.sent, 1)
	assert.Equal(t, protocol.TypeStdout, ch.sent[0].Type)
	var payload protocol.StringPayload
	require.NoError(t, json.Unmarshal(ch.sent[0].Payload, &payload))
	assert.Equal(t, "hi", payload.String)
}

func TestStdoutRejectsWrongInputArity(t *testing.T) {
	ch := &fakeChannel{}
	impl := Stdout(ch, nil)

	_, _, err := impl.Invoke(context.Background(), nil)
	assert.Error(t, err)
	assert.Empty(t, ch.sent, "a validation failure must not reach the client")
}

func TestGetLineReturnsClientLine(t *testing.T) {
	ch := &fakeChannel{responses: map[protocol.MessageType]protocol.ClientMessage{}}
	linePayload, err := json.Marshal(protocol.StringPayload{String: "typed input"})
	require.NoError(t, err)
	ch.responses[protocol.TypeGetLine] = protocol.ClientMessage{Type: protocol.TypeLine, Payload: linePayload}

	impl := GetLine(ch, nil)
	out, _, err := impl.Invoke(context.Background(), []json.RawMessage{json.RawMessage(`"name? "`)})
	require.NoError(t, err)
	assert.JSONEq(t, `"typed input"`, string(out))
}

func TestGetLineErrorsOnEOF(t *testing.T) {
	ch := &fakeChannel{responses: map[protocol.MessageType]protocol.ClientMessage{
		protocol.TypeGetLine: {Type: protocol.TypeGetLineEOF},
	}}
	impl := GetLine(ch, nil)

	_, _, err := impl.Invoke(context.Background(), nil)
	assert.Error(t, err)
}

func TestGetArgsReturnsArgumentVector(t *testing.T) {
	argsPayload, err := json.Marshal(protocol.ArgsPayload{Args: []string{"a", "b"}})
	require.NoError(t, err)
	ch := &fakeChannel{responses: map[protocol.MessageType]protocol.ClientMessage{
		protocol.TypeGetArgs: {Type: protocol.TypeArgs, Payload: argsPayload},
	}}

	impl := GetArgs(ch, nil)
	out, _, err := impl.Invoke(context.Background(), nil)
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(out))
}

func TestWriteFileExpectsAck(t *testing.T) {
	ch := &fakeChannel{responses: map[protocol.MessageType]protocol.ClientMessage{
		protocol.TypeWrite: {Type: protocol.TypeAck},
	}}
	impl := WriteFile(ch, nil)

	req, err := json.Marshal(writeRequest{Path: "/tmp/x", Bytes: []byte("hi")})
	require.NoError(t, err)

	out, _, err := impl.Invoke(context.Background(), []json.RawMessage{req})
	require.NoError(t, err)
	assert.JSONEq(t, "true", string(out))
}

func TestWriteFileFailsWithoutAck(t *testing.T) {
	ch := &fakeChannel{responses: map[protocol.MessageType]protocol.ClientMessage{
		protocol.TypeWrite: {Type: protocol.TypeStdout},
	}}
	impl := WriteFile(ch, nil)
	req, err := json.Marshal(writeRequest{Path: "/tmp/x"})
	require.NoError(t, err)

	_, _, err = impl.Invoke(context.Background(), []json.RawMessage{req})
	assert.Error(t, err)
}

func TestReadFileReturnsFileContents(t *testing.T) {
	fc, err := json.Marshal(protocol.FileContentsPayload{Path: "/tmp/x", Bytes: []byte("data")})
	require.NoError(t, err)
	ch := &fakeChannel{responses: map[protocol.MessageType]protocol.ClientMessage{
		protocol.TypeRead: {Type: protocol.TypeFileContents, Payload: fc},
	}}
	impl := ReadFile(ch, nil)

	req, err := json.Marshal(readRequest{Path: "/tmp/x"})
	require.NoError(t, err)
	out, _, err := impl.Invoke(context.Background(), []json.RawMessage{req})
	require.NoError(t, err)

	var got protocol.FileContentsPayload
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "data", string(got.Bytes))
}

func TestContextFunctionPropagatesClientTransportError(t *testing.T) {
	ch := &fakeChannel{err: assertErr("transport down")}
	impl := Stdout(ch, nil)

	_, _, err := impl.Invoke(context.Background(), []json.RawMessage{json.RawMessage(`"x"`)})
	assert.Error(t, err)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func TestRegistryCoversEveryContextSignatureName(t *testing.T) {
	reg := Registry(&fakeChannel{}, nil)
	for _, name := range []string{
		"stdio/stdout", "stdio/stderr", "stdio/get_line",
		"file/read", "file/write", "image/pixel_write", "args/get",
	} {
		assert.Contains(t, reg, name)
	}
}
