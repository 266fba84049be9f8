// Package chat implements the assistant side panel: message history,
// the delayed bot reply and the single in-flight AI request.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/vidpage/vidpage/internal/video"
)

// Fallback is appended when the AI request fails or times out.
const Fallback = "Sorry, I'm having trouble responding right now. Please try again later."

// Author is who wrote a message.
type Author string

const (
	User Author = "user"
	Bot  Author = "bot"
)

// Message is one chat bubble. Messages are never persisted.
type Message struct {
	Author Author `json:"author"`
	Text   string `json:"text"`
}

// HistoryWindow is how many earlier messages go along with an AI request.
const HistoryWindow = 10

// Responder answers a message given the earlier turns and optional video
// context.
type Responder interface {
	Chat(ctx context.Context, message string, history []video.ChatTurn, vc *video.ContextPayload) (string, error)
}

// Rule is a canned reply chosen when any keyword occurs as a whole word
// (or word sequence) in the lower-cased input.
type Rule struct {
	Keywords []string
	Reply    string
}

// DefaultRules are checked in order; the first match wins.
var DefaultRules = []Rule{
	{Keywords: []string{"hello", "hi", "hey"}, Reply: "Hi! Ask me anything about this video."},
	{Keywords: []string{"summary", "summarize", "overview"}, Reply: "Open the Wiki view for the video summary, or skim the section titles in the sidebar."},
	{Keywords: []string{"chapter", "chapters", "section", "sections"}, Reply: "Click a section in the sidebar to jump to it. Each section starts at the time shown next to its title."},
	{Keywords: []string{"time", "timestamp", "timestamps", "when"}, Reply: "Click any sentence or timestamp badge to play the video from that point."},
	{Keywords: []string{"pdf", "download", "export"}, Reply: "Use the PDF view to download the full transcript."},
	{Keywords: []string{"thank", "thanks"}, Reply: "You're welcome!"},
}

// Options configures a Panel.
type Options struct {
	// Responder is used when LLMEnabled is set.
	Responder  Responder
	LLMEnabled bool
	Timeout    time.Duration
	ReplyDelay time.Duration
	Context    *video.ContextPayload
	Rules      []Rule
}

// Panel holds one session's chat. Safe for concurrent use.
type Panel struct {
	opts Options

	mu       sync.Mutex
	messages []Message
	typing   bool
	seq      uint64
	cancel   context.CancelFunc
}

// New returns an empty panel. Rules default to DefaultRules.
func New(opts Options) *Panel {
	if opts.Rules == nil {
		opts.Rules = DefaultRules
	}
	if opts.Responder == nil {
		opts.LLMEnabled = false
	}
	return &Panel{opts: opts}
}

// Messages returns a copy of the history in arrival order.
func (p *Panel) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.messages...)
}

// Typing reports whether an AI request is outstanding.
func (p *Panel) Typing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.typing
}

// Send appends the user's message, waits the reply delay and appends the
// bot reply, which it also returns. Blank input is ignored. A send
// cancels any AI request still in flight from an earlier send; the
// superseded send returns a nil reply.
func (p *Panel) Send(ctx context.Context, text string) (*Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	p.mu.Lock()
	history := p.historyLocked()
	p.messages = append(p.messages, Message{Author: User, Text: text})
	p.seq++
	seq := p.seq
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()

	if p.opts.ReplyDelay > 0 {
		timer := time.NewTimer(p.opts.ReplyDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if !p.opts.LLMEnabled {
		return p.appendBot(seq, p.ruleReply(text)), nil
	}

	var (
		reqCtx context.Context
		cancel context.CancelFunc
	)
	if p.opts.Timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
	} else {
		reqCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	p.mu.Lock()
	if p.seq != seq {
		p.mu.Unlock()
		return nil, nil
	}
	p.cancel = cancel
	p.typing = true
	p.mu.Unlock()

	reply, err := p.opts.Responder.Chat(reqCtx, text, history, p.opts.Context)

	p.mu.Lock()
	if p.seq != seq {
		p.mu.Unlock()
		return nil, nil
	}
	p.typing = false
	p.cancel = nil
	p.mu.Unlock()

	if err != nil || strings.TrimSpace(reply) == "" {
		if err == nil {
			err = fmt.Errorf("empty reply")
		}
		slog.Error("chat request failed", "error", err)
		reply = Fallback
	}
	return p.appendBot(seq, reply), nil
}

// historyLocked returns the last HistoryWindow messages as chat turns.
// Fallback replies are not real answers and are left out.
func (p *Panel) historyLocked() []video.ChatTurn {
	turns := make([]video.ChatTurn, 0, min(len(p.messages), HistoryWindow))
	for _, m := range p.messages {
		switch {
		case m.Author == User:
			turns = append(turns, video.ChatTurn{Role: video.RoleUser, Content: m.Text})
		case m.Text != Fallback:
			turns = append(turns, video.ChatTurn{Role: video.RoleAssistant, Content: m.Text})
		}
	}
	if len(turns) > HistoryWindow {
		turns = turns[len(turns)-HistoryWindow:]
	}
	return turns
}

func (p *Panel) appendBot(seq uint64, text string) *Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seq != seq && p.opts.LLMEnabled {
		return nil
	}
	m := Message{Author: Bot, Text: text}
	p.messages = append(p.messages, m)
	return &m
}

func (p *Panel) ruleReply(text string) string {
	words := " " + strings.Join(strings.FieldsFunc(strings.ToLower(text), notWordRune), " ") + " "
	for _, r := range p.opts.Rules {
		for _, k := range r.Keywords {
			if strings.Contains(words, " "+k+" ") {
				return r.Reply
			}
		}
	}
	return fmt.Sprintf("You asked: %q. I can point you to the sections and timestamps of this video.", text)
}

func notWordRune(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
}

// InsertAtCaret inserts dropped text into input at the rune offset caret,
// clamped to the input bounds. It returns the new text and caret.
func InsertAtCaret(input string, caret int, dropped string) (string, int) {
	runes := []rune(input)
	caret = max(0, min(caret, len(runes)))
	d := []rune(dropped)
	out := make([]rune, 0, len(runes)+len(d))
	out = append(out, runes[:caret]...)
	out = append(out, d...)
	out = append(out, runes[caret:]...)
	return string(out), caret + len(d)
}
