// Package bot is the conversational engine: it dispatches normalized
// commands to the flow handler owning the session's current status and
// renders the outbound responses.
package bot

import (
	"context"
	"fmt"

	"github.com/wasgeurtjeNL/prop-pulse-sub000/normalize"
	"github.com/wasgeurtjeNL/prop-pulse-sub000/session"
)

// Message is one outbound chat message.
type Message struct {
	Text     string
	ImageURL string
	Caption  string
}

// Response is what a handler returns: usually a single message, a
// sequence for the search flow where one blob would exceed the channel's
// message size ceiling.
type Response struct {
	Messages []Message
}

func Text(text string) Response {
	return Response{Messages: []Message{{Text: text}}}
}

func Textf(format string, args ...any) Response {
	return Text(fmt.Sprintf(format, args...))
}

func (r *Response) AddText(text string) {
	r.Messages = append(r.Messages, Message{Text: text})
}

func (r *Response) AddImage(url, caption string) {
	r.Messages = append(r.Messages, Message{ImageURL: url, Caption: caption})
}

// Rehoster copies channel media into durable storage.
type Rehoster interface {
	Rehost(ctx context.Context, mediaRef string) (string, error)
}

// stateHandler processes one command for a session parked at one status.
type stateHandler func(ctx context.Context, sess *session.Session, cmd normalize.Command) (Response, error)
