package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/minhancr123/Task-Management-sub000/internal/mutation"
	"github.com/minhancr123/Task-Management-sub000/internal/stats"
)

type cacheChangedMsg struct{}

type statsMsg stats.Stats

type feedbackMsg mutation.Feedback

// Bridge carries session callbacks, which run on arbitrary goroutines, into
// the bubbletea event loop. Create it before the session so its methods can
// be passed as the session's callbacks.
type Bridge struct {
	events  chan tea.Msg
	changed chan struct{}
	done    chan struct{}
}

// NewBridge creates an open bridge.
func NewBridge() *Bridge {
	return &Bridge{
		events:  make(chan tea.Msg, 64),
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Feedback forwards a mutation feedback event.
func (b *Bridge) Feedback(f mutation.Feedback) {
	b.send(feedbackMsg(f))
}

// Stats forwards a stats recomputation.
func (b *Bridge) Stats(s stats.Stats) {
	b.send(statsMsg(s))
}

// Changed records that the cache changed. Bursts collapse into one message.
func (b *Bridge) Changed() {
	select {
	case b.changed <- struct{}{}:
	default:
	}
}

// Close stops delivery; later callbacks are dropped.
func (b *Bridge) Close() {
	select {
	case <-b.done:
	default:
		close(b.done)
	}
}

func (b *Bridge) send(msg tea.Msg) {
	select {
	case b.events <- msg:
	case <-b.done:
	}
}

// wait returns a command that yields the next bridged message.
func (b *Bridge) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-b.events:
			return msg
		case <-b.changed:
			return cacheChangedMsg{}
		case <-b.done:
			return nil
		}
	}
}
