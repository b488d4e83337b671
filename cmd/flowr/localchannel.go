package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"sync"

	"github.com/flowforge/flowcore/internal/protocol"
)

// localChannel implements contextfns.ClientChannel directly against this
// process's own standard streams, local filesystem and an in-memory image
// buffer, rather than round-tripping over a websocket to a separate client
// process. It is the CLI's own "readline" client, the local equivalent of
// flowr's interactive terminal client: `flowr run` needs no separate
// process to answer GetLine/Read/Write/PixelWrite requests.
type localChannel struct {
	stdin  *bufio.Reader
	mu     sync.Mutex
	images map[string]*image.RGBA
}

func newLocalChannel() *localChannel {
	return &localChannel{stdin: bufio.NewReader(os.Stdin), images: make(map[string]*image.RGBA)}
}

func (l *localChannel) Send(ctx context.Context, msg protocol.ServerMessage) (protocol.ClientMessage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch msg.Type {
	case protocol.TypeStdout:
		var p protocol.StringPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return protocol.ClientMessage{}, err
		}
		fmt.Fprint(os.Stdout, p.String)
		return protocol.ClientMessage{Type: protocol.TypeAck}, nil

	case protocol.TypeStderr:
		var p protocol.StringPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return protocol.ClientMessage{}, err
		}
		fmt.Fprint(os.Stderr, p.String)
		return protocol.ClientMessage{Type: protocol.TypeAck}, nil

	case protocol.TypeGetLine:
		var p protocol.PromptPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return protocol.ClientMessage{}, err
		}
		if p.Prompt != "" {
			fmt.Fprint(os.Stdout, p.Prompt)
		}
		line, err := l.stdin.ReadString('\n')
		if err != nil && line == "" {
			payload, _ := json.Marshal(struct{}{})
			return protocol.ClientMessage{Type: protocol.TypeGetLineEOF, Payload: payload}, nil
		}
		line = trimNewline(line)
		payload, err := json.Marshal(protocol.StringPayload{String: line})
		if err != nil {
			return protocol.ClientMessage{}, err
		}
		return protocol.ClientMessage{Type: protocol.TypeLine, Payload: payload}, nil

	case protocol.TypeGetArgs:
		payload, err := json.Marshal(protocol.ArgsPayload{Args: os.Args[1:]})
		if err != nil {
			return protocol.ClientMessage{}, err
		}
		return protocol.ClientMessage{Type: protocol.TypeArgs, Payload: payload}, nil

	case protocol.TypeRead:
		var p protocol.PathPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return protocol.ClientMessage{}, err
		}
		data, err := os.ReadFile(p.Path)
		if err != nil {
			return protocol.ClientMessage{}, fmt.Errorf("reading %s: %w", p.Path, err)
		}
		payload, err := json.Marshal(protocol.FileContentsPayload{Path: p.Path, Bytes: data})
		if err != nil {
			return protocol.ClientMessage{}, err
		}
		return protocol.ClientMessage{Type: protocol.TypeFileContents, Payload: payload}, nil

	case protocol.TypeWrite:
		var p protocol.WritePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return protocol.ClientMessage{}, err
		}
		if err := os.WriteFile(p.Path, p.Bytes, 0o644); err != nil {
			return protocol.ClientMessage{}, fmt.Errorf("writing %s: %w", p.Path, err)
		}
		return protocol.ClientMessage{Type: protocol.TypeAck}, nil

	case protocol.TypePixelWrite:
		var p protocol.PixelWritePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return protocol.ClientMessage{}, err
		}
		l.writePixel(p)
		return protocol.ClientMessage{Type: protocol.TypeAck}, nil

	default:
		return protocol.ClientMessage{}, fmt.Errorf("localChannel: unsupported message type %s", msg.Type)
	}
}

// writePixel sets one pixel of the named buffer, allocating it at the
// declared W x H on first use, and flushes the buffer to "<name>.png" after
// every write so a running flow's output is visible without a separate
// flush step.
func (l *localChannel) writePixel(p protocol.PixelWritePayload) {
	img, ok := l.images[p.Name]
	if !ok {
		img = image.NewRGBA(image.Rect(0, 0, p.W, p.H))
		l.images[p.Name] = img
	}
	img.Set(p.Pixel.X, p.Pixel.Y, color.RGBA{R: uint8(p.Pixel.R), G: uint8(p.Pixel.G), B: uint8(p.Pixel.B), A: 255})

	f, err := os.Create(p.Name + ".png")
	if err != nil {
		return
	}
	defer f.Close()
	_ = png.Encode(f, img)
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// pendingChannel is the contextfns.ClientChannel behind serveCmd's
// context:// bindings. Every Send fails with an error naming the request
// type. Served submissions have no other channel for their context
// functions: the websocket opened at /submissions/:id/ws is not connected
// to the running submission, so the error is what a context function gets
// instead of resolving to nothing.
type pendingChannel struct{}

func (pendingChannel) Send(ctx context.Context, msg protocol.ServerMessage) (protocol.ClientMessage, error) {
	return protocol.ClientMessage{}, fmt.Errorf("no client attached to this submission yet (request type %s)", msg.Type)
}
