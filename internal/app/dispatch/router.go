package dispatch

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dsiqueira/retroicq/internal/app/roster"
	"github.com/dsiqueira/retroicq/internal/app/session"
	"github.com/dsiqueira/retroicq/internal/domain"
	"github.com/dsiqueira/retroicq/internal/observability"
)

// Router sends the partner's current draft through the right channel:
// bots are answered in-process by the responder, everyone else goes
// through the remote store and comes back via the feed's echo.
type Router struct {
	local     domain.UIN
	directory *roster.Directory
	tracker   *session.Tracker
	store     domain.RemoteStore
	responder domain.Responder
	notifier  domain.Notifier
	diags     domain.Diagnostics
	now       func() time.Time
	newID     func() string
}

func NewRouter(
	local domain.UIN,
	directory *roster.Directory,
	tracker *session.Tracker,
	store domain.RemoteStore,
	responder domain.Responder,
	notifier domain.Notifier,
	diags domain.Diagnostics,
) *Router {
	if notifier == nil {
		notifier = domain.NopNotifier{}
	}
	if diags == nil {
		diags = domain.NopDiagnostics{}
	}
	return &Router{
		local:     local,
		directory: directory,
		tracker:   tracker,
		store:     store,
		responder: responder,
		notifier:  notifier,
		diags:     diags,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Send dispatches the draft for the given partner. A no-op when no
// session exists or the draft is blank.
//
// The draft is cleared before any slow work so the compose surface
// stays responsive; on a failed remote write the text is NOT restored
// and the user retypes it. That is a known limitation, carried over
// deliberately.
func (r *Router) Send(ctx context.Context, partner domain.UIN) {
	if !r.tracker.HasSession(partner) {
		return
	}
	text := r.tracker.Draft(partner)
	if strings.TrimSpace(text) == "" {
		return
	}
	r.tracker.ClearDraft(partner)

	if r.directory.IsBot(partner) {
		r.sendToBot(ctx, partner, text)
		return
	}
	r.sendRemote(ctx, partner, text)
}

// sendToBot applies my message locally, then asks the responder for a
// reply and injects it as an inbound message. The two messages carry
// distinct locally generated ids so the dedup rule never collapses
// them. Responder failure degrades to "no reply": my half of the
// exchange stays in the session.
func (r *Router) sendToBot(ctx context.Context, bot domain.UIN, text string) {
	log := observability.WithComponent("dispatch").With("bot", bot)

	history := r.tracker.History(bot)

	mine := domain.Message{
		ID:          domain.MessageID(r.newID()),
		SenderUIN:   r.local,
		ReceiverUIN: bot,
		Text:        text,
		SentAt:      r.now().UnixMilli(),
		Read:        true,
	}
	if r.tracker.Reconcile(mine) {
		observability.MessagesReconciled.Inc()
	}

	reply, err := r.responder.Respond(ctx, text, r.local, history)
	if err != nil {
		log.Error("bot responder failed", "error", err)
		return
	}

	botMsg := domain.Message{
		ID:          domain.MessageID(r.newID()),
		SenderUIN:   bot,
		ReceiverUIN: r.local,
		Text:        reply,
		SentAt:      r.now().UnixMilli(),
		Read:        false,
	}
	observability.AlertsFired.Inc()
	r.notifier.Alert()
	if r.tracker.Reconcile(botMsg) {
		observability.MessagesReconciled.Inc()
	}
}

// sendRemote issues the write command and leaves the session untouched:
// the message only appears once the feed echoes the successful write,
// so a failed send never leaves a phantom entry.
func (r *Router) sendRemote(ctx context.Context, partner domain.UIN, text string) {
	log := observability.WithComponent("dispatch").With("partner", partner)

	if err := r.store.SendMessage(ctx, r.local, partner, text); err != nil {
		log.Error("remote send failed", "error", err)
		observability.RemoteWriteFailures.Inc()
		r.diags.Report("NETWORK ERROR: message not sent. Check the store's permissions.")
		return
	}
	r.notifier.Sent()
}
