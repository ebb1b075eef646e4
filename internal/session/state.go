// Package session holds the process-wide observable session state: the
// single current Identity-or-absent value every consumer reads from.
package session

import (
	"context"
	"sync"

	domainauth "github.com/latamworkhub/workhub-auth/internal/domain/auth"
)

// Snapshot is the value observers receive. A nil Identity means no one
// is logged in.
type Snapshot struct {
	Identity *domainauth.Identity
}

// Authenticated reports whether the snapshot carries an identity.
func (s Snapshot) Authenticated() bool { return s.Identity != nil }

// State broadcasts the current identity with replay-on-subscribe
// semantics. Reads are public; writes go through the Publisher returned
// by New, which only the authentication gateway should hold.
type State struct {
	mu      sync.Mutex
	current *domainauth.Identity
	subs    map[int]chan Snapshot
	nextID  int
}

// Publisher is the write half of a State.
type Publisher struct {
	state *State
}

// New creates a State and its single Publisher.
func New() (*State, Publisher) {
	s := &State{subs: make(map[int]chan Snapshot)}
	return s, Publisher{state: s}
}

// Current returns the latest identity, or nil when absent. Used by code
// paths that cannot wait for an asynchronous notification, such as
// admission checks during route resolution.
func (s *State) Current() *domainauth.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneIdentity(s.current)
}

// Observe emits the current value immediately, then on every subsequent
// change, until ctx is done. The channel is closed on unsubscribe and
// never closes on its own before that. A slow observer may lose
// intermediate values but always ends up seeing the latest one.
func (s *State) Observe(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 8)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	ch <- Snapshot{Identity: cloneIdentity(s.current)}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
		s.mu.Unlock()
	}()

	return ch
}

// Set replaces the current identity and notifies all observers. The
// publish is atomic from an observer's point of view: each snapshot is a
// whole-value copy, never a partial merge.
func (p Publisher) Set(identity *domainauth.Identity) {
	s := p.state
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = cloneIdentity(identity)
	for _, ch := range s.subs {
		snap := Snapshot{Identity: cloneIdentity(s.current)}
		select {
		case ch <- snap:
		default:
			// Buffer full: evict the oldest pending snapshot so the
			// observer still converges on the latest value.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// Clear publishes the absent value.
func (p Publisher) Clear() { p.Set(nil) }

// State returns the read half backing this publisher.
func (p Publisher) State() *State { return p.state }

func cloneIdentity(identity *domainauth.Identity) *domainauth.Identity {
	if identity == nil {
		return nil
	}
	out := *identity
	return &out
}
