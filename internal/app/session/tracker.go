package session

import (
	"sort"
	"sync"

	"github.com/dsiqueira/retroicq/internal/domain"
)

// Tracker owns the per-partner chat sessions and the focused-window
// marker. It is the single piece of mutable shared state in the core;
// every mutation happens under one mutex, so reconciliations never
// interleave mid-update.
type Tracker struct {
	mu       sync.Mutex
	local    domain.UIN
	sessions map[domain.UIN]*domain.ChatSession
	focused  domain.UIN // "" = no window focused
}

func NewTracker(local domain.UIN) *Tracker {
	return &Tracker{
		local:    local,
		sessions: make(map[domain.UIN]*domain.ChatSession),
	}
}

// Reconcile merges one canonical message into the right session and
// reports whether it was applied (false = duplicate id, session left
// unchanged).
//
// The same send can surface twice: once applied locally and once as the
// remote feed's echo. Dedup by id plus re-sort by timestamp keep the
// session correct no matter which copy arrives first.
func (t *Tracker) Reconcile(msg domain.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	partner := msg.PartnerOf(t.local)

	sess, ok := t.sessions[partner]
	if !ok {
		sess = &domain.ChatSession{PartnerUIN: partner}
		t.sessions[partner] = sess
	}

	for _, m := range sess.Messages {
		if m.ID == msg.ID {
			return false
		}
	}

	// Stable so that ties on SentAt keep arrival order (a bot exchange
	// can land both halves in the same millisecond).
	sess.Messages = append(sess.Messages, msg)
	sort.SliceStable(sess.Messages, func(i, j int) bool {
		return sess.Messages[i].SentAt < sess.Messages[j].SentAt
	})
	sess.Open = true

	// Only an inbound message may grab focus, and only when no window
	// has it. Echoes of my own sends never steal focus.
	if t.focused == "" && msg.InboundTo(t.local) {
		t.focused = partner
	}

	return true
}

// Open creates the session if needed, reopens it and focuses its
// window.
func (t *Tracker) Open(partner domain.UIN) {
	t.mu.Lock()
	defer t.mu.Unlock()

	sess, ok := t.sessions[partner]
	if !ok {
		sess = &domain.ChatSession{PartnerUIN: partner}
		t.sessions[partner] = sess
	}
	sess.Open = true
	sess.Minimized = false
	t.focused = partner
}

// Close hides the window and clears its draft. History is kept; a later
// message (or a bot reply landing after close) reopens the session.
func (t *Tracker) Close(partner domain.UIN) {
	t.mu.Lock()
	defer t.mu.Unlock()

	sess, ok := t.sessions[partner]
	if !ok {
		return
	}
	sess.Open = false
	sess.Draft = ""
	if t.focused == partner {
		t.focused = ""
	}
}

// HasSession reports whether a session exists for the partner, open or
// not.
func (t *Tracker) HasSession(partner domain.UIN) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.sessions[partner]
	return ok
}

// History returns a copy of the partner's message sequence.
func (t *Tracker) History(partner domain.UIN) []domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	sess, ok := t.sessions[partner]
	if !ok {
		return nil
	}
	out := make([]domain.Message, len(sess.Messages))
	copy(out, sess.Messages)
	return out
}

// Focused returns the partner whose window currently has focus, or "".
func (t *Tracker) Focused() domain.UIN {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.focused
}

// Sessions returns a deep copy of all sessions keyed by partner.
func (t *Tracker) Sessions() map[domain.UIN]*domain.ChatSession {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[domain.UIN]*domain.ChatSession, len(t.sessions))
	for uin, sess := range t.sessions {
		out[uin] = sess.Clone()
	}
	return out
}
