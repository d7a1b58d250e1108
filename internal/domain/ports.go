package domain

import "context"

// RawMessage is a message-added feed notification before normalization.
// SentAt of zero means the server-assigned timestamp has not resolved
// yet and the ingestion pipeline substitutes the local receipt time.
type RawMessage struct {
	ID          string
	SenderUIN   string
	ReceiverUIN string
	Text        string
	SentAt      int64
	Read        bool
}

// RemoteStore is the synchronized store shared with other users. The
// core issues write commands to it and consumes its subscription feeds;
// replication, persistence and retry are the store's own business.
//
// Watch callbacks are invoked from the store's delivery goroutine; the
// returned stop function cancels the subscription and is safe to call
// more than once. Delivery order between feeds is not guaranteed.
type RemoteStore interface {
	UpsertProfile(ctx context.Context, user User) error
	SetPresence(ctx context.Context, uin UIN, p Presence) error
	AddContact(ctx context.Context, owner UIN, contact User) error
	RemoveContact(ctx context.Context, owner, contact UIN) error
	SendMessage(ctx context.Context, sender, receiver UIN, text string) error

	WatchUsers(ctx context.Context, limit int, onSnapshot func([]User), onErr func(error)) (stop func(), err error)
	WatchContacts(ctx context.Context, owner UIN, limit int, onSnapshot func([]User), onErr func(error)) (stop func(), err error)
	WatchMessages(ctx context.Context, limit int, onAdded func(RawMessage), onErr func(error)) (stop func(), err error)
}

// Responder produces a bot reply for a prompt. Any failure means "no
// reply produced"; the core never retries.
type Responder interface {
	Respond(ctx context.Context, text string, askerUIN UIN, history []Message) (string, error)
}

// IdentityProvider issues the local identity. Credential storage and
// verification live behind this boundary.
type IdentityProvider interface {
	SignIn(ctx context.Context, creds Credentials) (*Identity, error)
	SignUp(ctx context.Context, creds Credentials) (*Identity, error)
}

// Credentials are whatever the provider needs to establish an identity.
type Credentials struct {
	UIN      string
	Password string
	Nickname string
}

// Notifier receives fire-and-forget side-effect hooks from the core.
// Alert is the incoming-message "uh-oh"; Sent confirms an outgoing
// remote write.
type Notifier interface {
	Alert()
	Sent()
}

// Diagnostics surfaces one-shot, user-visible error text (the retro
// equivalent of a modal alert box).
type Diagnostics interface {
	Report(msg string)
}

// NopNotifier discards all hooks.
type NopNotifier struct{}

func (NopNotifier) Alert() {}
func (NopNotifier) Sent()  {}

// NopDiagnostics discards all reports.
type NopDiagnostics struct{}

func (NopDiagnostics) Report(string) {}
