package web

import (
	"strings"

	"github.com/vidpage/vidpage/internal/seek"
)

// playerCommand is one instruction app.js replays against the player.
type playerCommand struct {
	Kind    string        `json:"kind"` // seekTo, play, postMessage, setSource
	Seconds int           `json:"seconds,omitempty"`
	Message *seek.Message `json:"message,omitempty"`
	Src     string        `json:"src,omitempty"`
}

// playerPorts implements the seek ports by recording commands for the
// page to execute. The page reports what its player supports.
type playerPorts struct {
	playing  bool
	src      string
	commands []playerCommand
}

// controller returns a seek.Controller wired to the ports named in caps
// ("native", "message", "frame").
func (p *playerPorts) controller(caps string) *seek.Controller {
	c := &seek.Controller{}
	for _, name := range strings.Split(caps, ",") {
		switch strings.TrimSpace(name) {
		case "native":
			c.Player = nativePort{p}
		case "message":
			c.Messenger = messagePort{p}
		case "frame":
			c.Frame = framePort{p}
		}
	}
	return c
}

type nativePort struct{ p *playerPorts }

func (n nativePort) SeekTo(seconds int, _ bool) error {
	n.p.commands = append(n.p.commands, playerCommand{Kind: "seekTo", Seconds: seconds})
	return nil
}

func (n nativePort) Playing() bool { return n.p.playing }

func (n nativePort) Play() error {
	n.p.commands = append(n.p.commands, playerCommand{Kind: "play"})
	return nil
}

type messagePort struct{ p *playerPorts }

func (m messagePort) PostMessage(msg seek.Message) error {
	m.p.commands = append(m.p.commands, playerCommand{Kind: "postMessage", Message: &msg})
	return nil
}

type framePort struct{ p *playerPorts }

func (f framePort) Source() string { return f.p.src }

func (f framePort) SetSource(u string) error {
	f.p.src = u
	f.p.commands = append(f.p.commands, playerCommand{Kind: "setSource", Src: u})
	return nil
}
