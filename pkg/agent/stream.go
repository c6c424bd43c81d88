package agent

import "context"

// Event kinds, in the causal order one turn can emit them: zero or more
// tool events, one response, then done; or a terminal error.
const (
	EventToolInvoked = "tool"
	EventAnswer      = "response"
	EventDone        = "done"
	EventError       = "error"
)

// Event is one incremental notification from an in-flight turn.
type Event struct {
	Kind    string
	Name    string
	Content string
}

// Stream is a pull-based view of one turn. Callers drive it with Next and
// read the event via Current; after Next returns false, Result or Err hold
// the outcome. To abandon a stream, cancel the context passed to RunStream;
// the worker unblocks and exits.
type Stream struct {
	ch      chan Event
	current Event
	result  *TurnResult
	err     error
}

// RunStream processes one turn, yielding events as the loop progresses.
func (a *Agent) RunStream(ctx context.Context, req TurnRequest) *Stream {
	s := &Stream{ch: make(chan Event, 16)}
	send := func(ev Event) {
		select {
		case s.ch <- ev:
		case <-ctx.Done():
		}
	}
	go func() {
		defer close(s.ch)
		result, err := a.run(ctx, req, send)
		if err != nil {
			s.err = err
			send(Event{Kind: EventError, Content: err.Error()})
			return
		}
		s.result = result
		send(Event{Kind: EventDone})
	}()
	return s
}

// Next advances to the next event, returning false once the turn finished.
func (s *Stream) Next() bool {
	ev, ok := <-s.ch
	if !ok {
		return false
	}
	s.current = ev
	return true
}

// Current returns the event Next advanced to.
func (s *Stream) Current() Event {
	return s.current
}

// Result returns the turn outcome; valid after the done event.
func (s *Stream) Result() *TurnResult {
	return s.result
}

// Err returns the turn failure, if any; valid after the stream ends.
func (s *Stream) Err() error {
	return s.err
}
