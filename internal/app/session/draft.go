package session

import "github.com/dsiqueira/retroicq/internal/domain"

// Draft state lives on the session but is independent of message
// history: inbound arrivals never touch it, and each partner's draft is
// isolated from every other's.

// Draft returns the compose buffer for the partner ("" when no session
// exists).
func (t *Tracker) Draft(partner domain.UIN) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	sess, ok := t.sessions[partner]
	if !ok {
		return ""
	}
	return sess.Draft
}

// SetDraft replaces the compose buffer for the partner. A no-op when no
// session exists; drafts are typed into an open window.
func (t *Tracker) SetDraft(partner domain.UIN, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	sess, ok := t.sessions[partner]
	if !ok {
		return
	}
	sess.Draft = text
}

// ClearDraft empties the partner's compose buffer.
func (t *Tracker) ClearDraft(partner domain.UIN) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if sess, ok := t.sessions[partner]; ok {
		sess.Draft = ""
	}
}
