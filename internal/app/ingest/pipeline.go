package ingest

import (
	"errors"
	"sync"
	"time"

	"github.com/dsiqueira/retroicq/internal/app/roster"
	"github.com/dsiqueira/retroicq/internal/app/session"
	"github.com/dsiqueira/retroicq/internal/domain"
	"github.com/dsiqueira/retroicq/internal/observability"
)

// DefaultAlertWindow bounds how old an inbound message may be and still
// ring the alert; anything older is history backfill from the initial
// snapshot and is delivered silently.
const DefaultAlertWindow = 2 * time.Second

// Pipeline normalizes raw feed notifications into canonical messages
// and hands them to the session tracker. Both delivery paths (remote
// feed and local bot) converge here or on the tracker directly, so the
// dedup and ordering invariants are enforced in exactly one place.
type Pipeline struct {
	local       domain.UIN
	tracker     *session.Tracker
	directory   *roster.Directory
	notifier    domain.Notifier
	diags       domain.Diagnostics
	now         func() time.Time
	alertWindow time.Duration
}

func New(
	local domain.UIN,
	tracker *session.Tracker,
	directory *roster.Directory,
	notifier domain.Notifier,
	diags domain.Diagnostics,
	alertWindow time.Duration,
) *Pipeline {
	if notifier == nil {
		notifier = domain.NopNotifier{}
	}
	if diags == nil {
		diags = domain.NopDiagnostics{}
	}
	if alertWindow <= 0 {
		alertWindow = DefaultAlertWindow
	}
	return &Pipeline{
		local:       local,
		tracker:     tracker,
		directory:   directory,
		notifier:    notifier,
		diags:       diags,
		now:         time.Now,
		alertWindow: alertWindow,
	}
}

// HandleMessage processes one message-added notification from the
// remote feed.
func (p *Pipeline) HandleMessage(raw domain.RawMessage) {
	log := observability.WithComponent("ingest")

	if raw.ID == "" || raw.SenderUIN == "" || raw.ReceiverUIN == "" {
		log.Warn("dropping malformed feed event",
			"id", raw.ID, "sender", raw.SenderUIN, "receiver", raw.ReceiverUIN)
		observability.EventsDropped.Inc()
		return
	}

	msg := domain.Message{
		ID:          domain.MessageID(raw.ID),
		SenderUIN:   domain.UIN(raw.SenderUIN),
		ReceiverUIN: domain.UIN(raw.ReceiverUIN),
		Text:        raw.Text,
		SentAt:      raw.SentAt,
		Read:        true,
	}

	// Not my conversation: a filtering decision, not an error.
	if !msg.Involves(p.local) {
		return
	}

	received := p.now()
	if msg.SentAt == 0 {
		// Server timestamp still pending; use the receipt time.
		msg.SentAt = received.UnixMilli()
	}

	if !p.tracker.Reconcile(msg) {
		observability.MessagesDeduplicated.Inc()
		return
	}
	observability.MessagesReconciled.Inc()

	if msg.InboundTo(p.local) && received.UnixMilli()-msg.SentAt <= p.alertWindow.Milliseconds() {
		observability.AlertsFired.Inc()
		p.notifier.Alert()
	}
}

// HandleUsers replaces the network-wide user list, dropping the local
// user's own profile entry.
func (p *Pipeline) HandleUsers(users []domain.User) {
	filtered := make([]domain.User, 0, len(users))
	for _, u := range users {
		if u.UIN == p.local {
			continue
		}
		filtered = append(filtered, u)
	}
	p.directory.ReplaceUsers(filtered)
}

// HandleContacts replaces the contact snapshot wholesale.
func (p *Pipeline) HandleContacts(contacts []domain.User) {
	p.directory.ReplaceContacts(contacts)
}

// FeedErrorHandler returns the error callback for one subscription
// establishment. A permission-denied from the feed is surfaced to the
// user once per establishment, never per event; everything else is just
// logged and left to the store client's own retry policy.
func (p *Pipeline) FeedErrorHandler(feed string) func(error) {
	var once sync.Once
	log := observability.WithComponent("ingest").With("feed", feed)

	return func(err error) {
		if errors.Is(err, domain.ErrPermissionDenied) {
			once.Do(func() {
				p.diags.Report("ACCESS DENIED: the network rejected this subscription. Check the store's security rules.")
			})
			log.Error("feed subscription denied", "error", err)
			return
		}
		log.Error("feed subscription error", "error", err)
	}
}
