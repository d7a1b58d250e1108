package roster

import (
	"fmt"
	"sync"

	"github.com/dsiqueira/retroicq/internal/domain"
)

// Directory is the contact list as the client sees it: the built-in
// bots injected at start plus whatever the remote snapshot currently
// says. Snapshots replace the previous state wholesale, so readers
// always see one consistent directory; bots are never removed by a
// snapshot.
type Directory struct {
	mu       sync.RWMutex
	bots     []domain.User
	contacts []domain.User
	users    []domain.User // everyone on the network, for the add-contact picker
}

func New(bots ...domain.User) *Directory {
	d := &Directory{bots: make([]domain.User, len(bots))}
	copy(d.bots, bots)
	for i := range d.bots {
		d.bots[i].IsBot = true
	}
	return d
}

// ReplaceContacts swaps in a fresh directory snapshot.
func (d *Directory) ReplaceContacts(snapshot []domain.User) {
	cp := make([]domain.User, len(snapshot))
	copy(cp, snapshot)

	d.mu.Lock()
	d.contacts = cp
	d.mu.Unlock()
}

// ReplaceUsers swaps in the network-wide user list.
func (d *Directory) ReplaceUsers(snapshot []domain.User) {
	cp := make([]domain.User, len(snapshot))
	copy(cp, snapshot)

	d.mu.Lock()
	d.users = cp
	d.mu.Unlock()
}

// Contacts returns bots followed by the current contact snapshot.
func (d *Directory) Contacts() []domain.User {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]domain.User, 0, len(d.bots)+len(d.contacts))
	out = append(out, d.bots...)
	out = append(out, d.contacts...)
	return out
}

// Users returns the network-wide user list.
func (d *Directory) Users() []domain.User {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]domain.User, len(d.users))
	copy(out, d.users)
	return out
}

// Lookup finds a bot or contact by UIN.
func (d *Directory) Lookup(uin domain.UIN) (domain.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, u := range d.bots {
		if u.UIN == uin {
			return u, true
		}
	}
	for _, u := range d.contacts {
		if u.UIN == uin {
			return u, true
		}
	}
	return domain.User{}, false
}

// IsBot reports whether the UIN belongs to a built-in bot.
func (d *Directory) IsBot(uin domain.UIN) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, u := range d.bots {
		if u.UIN == uin {
			return true
		}
	}
	return false
}

// Resolve returns the known user for the UIN, or an offline placeholder
// when the directory has no entry (e.g. a session with a removed or
// never-added contact).
func (d *Directory) Resolve(uin domain.UIN) domain.User {
	if u, ok := d.Lookup(uin); ok {
		return u
	}
	return domain.User{
		UIN:      uin,
		Nickname: fmt.Sprintf("UIN %s", uin),
		Presence: domain.PresenceOffline,
	}
}
