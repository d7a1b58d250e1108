package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dsiqueira/retroicq/internal/domain"
)

// Store is an in-process RemoteStore for local mode and tests. Writes
// take effect immediately and fan out to the matching watch callbacks,
// which models the real store's echo: a sent message comes back through
// the message feed with its server-assigned id and timestamp.
type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	users    map[domain.UIN]domain.User
	contacts map[domain.UIN]map[domain.UIN]domain.User
	messages []domain.RawMessage

	nextToken   int
	userSubs    map[int]func([]domain.User)
	contactSubs map[int]contactSub
	msgSubs     map[int]func(domain.RawMessage)

	sendErr error
}

type contactSub struct {
	owner domain.UIN
	fn    func([]domain.User)
}

var _ domain.RemoteStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		now:         time.Now,
		users:       make(map[domain.UIN]domain.User),
		contacts:    make(map[domain.UIN]map[domain.UIN]domain.User),
		userSubs:    make(map[int]func([]domain.User)),
		contactSubs: make(map[int]contactSub),
		msgSubs:     make(map[int]func(domain.RawMessage)),
	}
}

// SetSendError makes subsequent SendMessage calls fail with err
// (nil restores normal behavior). Fault-injection knob for local mode
// and tests.
func (s *Store) SetSendError(err error) {
	s.mu.Lock()
	s.sendErr = err
	s.mu.Unlock()
}

// ─────────────────────────────────────────
// Writes
// ─────────────────────────────────────────

func (s *Store) UpsertProfile(ctx context.Context, user domain.User) error {
	s.mu.Lock()
	s.users[user.UIN] = user
	subs, snapshot := s.userFanoutLocked()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
	return nil
}

func (s *Store) SetPresence(ctx context.Context, uin domain.UIN, p domain.Presence) error {
	s.mu.Lock()
	u, ok := s.users[uin]
	if !ok {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	u.Presence = p
	s.users[uin] = u
	subs, snapshot := s.userFanoutLocked()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
	return nil
}

func (s *Store) AddContact(ctx context.Context, owner domain.UIN, contact domain.User) error {
	s.mu.Lock()
	if s.contacts[owner] == nil {
		s.contacts[owner] = make(map[domain.UIN]domain.User)
	}
	s.contacts[owner][contact.UIN] = contact
	subs, snapshot := s.contactFanoutLocked(owner)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
	return nil
}

func (s *Store) RemoveContact(ctx context.Context, owner, contact domain.UIN) error {
	s.mu.Lock()
	owned := s.contacts[owner]
	if _, ok := owned[contact]; !ok {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	delete(owned, contact)
	subs, snapshot := s.contactFanoutLocked(owner)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
	return nil
}

func (s *Store) SendMessage(ctx context.Context, sender, receiver domain.UIN, text string) error {
	s.mu.Lock()
	if s.sendErr != nil {
		err := s.sendErr
		s.mu.Unlock()
		return err
	}
	raw := domain.RawMessage{
		ID:          uuid.NewString(),
		SenderUIN:   string(sender),
		ReceiverUIN: string(receiver),
		Text:        text,
		SentAt:      s.now().UnixMilli(),
		Read:        false,
	}
	s.messages = append(s.messages, raw)
	subs := make([]func(domain.RawMessage), 0, len(s.msgSubs))
	for _, fn := range s.msgSubs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(raw)
	}
	return nil
}

// InjectMessage delivers a raw notification to every message
// subscriber without storing it, simulating out-of-band feed traffic
// (another client's write, a replayed event, a malformed document).
func (s *Store) InjectMessage(raw domain.RawMessage) {
	s.mu.Lock()
	subs := make([]func(domain.RawMessage), 0, len(s.msgSubs))
	for _, fn := range s.msgSubs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(raw)
	}
}

// ─────────────────────────────────────────
// Feeds
// ─────────────────────────────────────────

func (s *Store) WatchUsers(ctx context.Context, limit int, onSnapshot func([]domain.User), onErr func(error)) (func(), error) {
	s.mu.Lock()
	token := s.nextToken
	s.nextToken++
	s.userSubs[token] = onSnapshot
	snapshot := s.userSnapshotLocked(limit)
	s.mu.Unlock()

	onSnapshot(snapshot)
	return func() {
		s.mu.Lock()
		delete(s.userSubs, token)
		s.mu.Unlock()
	}, nil
}

func (s *Store) WatchContacts(ctx context.Context, owner domain.UIN, limit int, onSnapshot func([]domain.User), onErr func(error)) (func(), error) {
	s.mu.Lock()
	token := s.nextToken
	s.nextToken++
	s.contactSubs[token] = contactSub{owner: owner, fn: onSnapshot}
	snapshot := s.contactSnapshotLocked(owner)
	s.mu.Unlock()

	onSnapshot(snapshot)
	return func() {
		s.mu.Lock()
		delete(s.contactSubs, token)
		s.mu.Unlock()
	}, nil
}

func (s *Store) WatchMessages(ctx context.Context, limit int, onAdded func(domain.RawMessage), onErr func(error)) (func(), error) {
	s.mu.Lock()
	token := s.nextToken
	s.nextToken++
	s.msgSubs[token] = onAdded
	backfill := make([]domain.RawMessage, len(s.messages))
	copy(backfill, s.messages)
	if limit > 0 && len(backfill) > limit {
		backfill = backfill[:limit]
	}
	s.mu.Unlock()

	// Initial snapshot replay, then live deliveries.
	for _, raw := range backfill {
		onAdded(raw)
	}
	return func() {
		s.mu.Lock()
		delete(s.msgSubs, token)
		s.mu.Unlock()
	}, nil
}

// ─────────────────────────────────────────
// Helpers (callers hold the lock)
// ─────────────────────────────────────────

func (s *Store) userSnapshotLocked(limit int) []domain.User {
	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

func (s *Store) contactSnapshotLocked(owner domain.UIN) []domain.User {
	out := make([]domain.User, 0, len(s.contacts[owner]))
	for _, u := range s.contacts[owner] {
		out = append(out, u)
	}
	return out
}

func (s *Store) userFanoutLocked() ([]func([]domain.User), []domain.User) {
	subs := make([]func([]domain.User), 0, len(s.userSubs))
	for _, fn := range s.userSubs {
		subs = append(subs, fn)
	}
	return subs, s.userSnapshotLocked(0)
}

func (s *Store) contactFanoutLocked(owner domain.UIN) ([]func([]domain.User), []domain.User) {
	subs := make([]func([]domain.User), 0, len(s.contactSubs))
	for _, sub := range s.contactSubs {
		if sub.owner == owner {
			subs = append(subs, sub.fn)
		}
	}
	return subs, s.contactSnapshotLocked(owner)
}
