package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dsiqueira/retroicq/internal/app/dispatch"
	"github.com/dsiqueira/retroicq/internal/app/ingest"
	"github.com/dsiqueira/retroicq/internal/app/roster"
	"github.com/dsiqueira/retroicq/internal/app/session"
	"github.com/dsiqueira/retroicq/internal/domain"
	"github.com/dsiqueira/retroicq/internal/observability"
)

// ErrAlreadySignedIn is returned when SignIn is called with an identity
// still established.
var ErrAlreadySignedIn = errors.New("already signed in")

// Config carries the client-side knobs; zero values get sane defaults.
type Config struct {
	Bots        []domain.User
	AlertWindow time.Duration

	UserLimit    int
	ContactLimit int
	MessageLimit int
}

func (c *Config) withDefaults() {
	if c.AlertWindow <= 0 {
		c.AlertWindow = ingest.DefaultAlertWindow
	}
	if c.UserLimit <= 0 {
		c.UserLimit = 50
	}
	if c.ContactLimit <= 0 {
		c.ContactLimit = 100
	}
	if c.MessageLimit <= 0 {
		c.MessageLimit = 100
	}
}

// Controller is the top-level session controller. It owns the feed
// subscriptions with a deterministic lifecycle: started when an
// identity is established, stopped when it is cleared. Everything the
// presentation layer touches goes through here.
type Controller struct {
	provider  domain.IdentityProvider
	store     domain.RemoteStore
	responder domain.Responder
	notifier  domain.Notifier
	diags     domain.Diagnostics
	cfg       Config

	mu        sync.Mutex
	identity  *domain.Identity
	directory *roster.Directory
	tracker   *session.Tracker
	pipeline  *ingest.Pipeline
	router    *dispatch.Router
	cancel    context.CancelFunc
	stops     []func()
}

func New(
	provider domain.IdentityProvider,
	store domain.RemoteStore,
	responder domain.Responder,
	notifier domain.Notifier,
	diags domain.Diagnostics,
	cfg Config,
) *Controller {
	if notifier == nil {
		notifier = domain.NopNotifier{}
	}
	if diags == nil {
		diags = domain.NopDiagnostics{}
	}
	cfg.withDefaults()
	return &Controller{
		provider:  provider,
		store:     store,
		responder: responder,
		notifier:  notifier,
		diags:     diags,
		cfg:       cfg,
	}
}

// SignIn establishes the identity and starts the feed subscriptions.
func (c *Controller) SignIn(ctx context.Context, creds domain.Credentials) (*domain.Identity, error) {
	ident, err := c.provider.SignIn(ctx, creds)
	if err != nil {
		return nil, err
	}
	if err := c.establish(ident); err != nil {
		return nil, err
	}
	return ident, nil
}

// SignUp registers a new user and signs them in.
func (c *Controller) SignUp(ctx context.Context, creds domain.Credentials) (*domain.Identity, error) {
	ident, err := c.provider.SignUp(ctx, creds)
	if err != nil {
		return nil, err
	}
	if err := c.establish(ident); err != nil {
		return nil, err
	}
	return ident, nil
}

func (c *Controller) establish(ident *domain.Identity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.identity != nil {
		return ErrAlreadySignedIn
	}

	log := observability.WithComponent("client").With("uin", ident.UIN)
	log.Info("identity established")

	c.identity = ident
	c.directory = roster.New(c.cfg.Bots...)
	c.tracker = session.NewTracker(ident.UIN)
	c.pipeline = ingest.New(ident.UIN, c.tracker, c.directory, c.notifier, c.diags, c.cfg.AlertWindow)
	c.router = dispatch.NewRouter(ident.UIN, c.directory, c.tracker, c.store, c.responder, c.notifier, c.diags)

	watchCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.stops = nil

	subscribe := func(name string, start func(onErr func(error)) (func(), error)) error {
		stop, err := start(c.pipeline.FeedErrorHandler(name))
		if err != nil {
			return err
		}
		c.stops = append(c.stops, stop)
		return nil
	}

	err := subscribe("users", func(onErr func(error)) (func(), error) {
		return c.store.WatchUsers(watchCtx, c.cfg.UserLimit, c.pipeline.HandleUsers, onErr)
	})
	if err == nil {
		err = subscribe("contacts", func(onErr func(error)) (func(), error) {
			return c.store.WatchContacts(watchCtx, ident.UIN, c.cfg.ContactLimit, c.pipeline.HandleContacts, onErr)
		})
	}
	if err == nil {
		err = subscribe("messages", func(onErr func(error)) (func(), error) {
			return c.store.WatchMessages(watchCtx, c.cfg.MessageLimit, c.pipeline.HandleMessage, onErr)
		})
	}
	if err != nil {
		log.Error("feed subscription failed", "error", err)
		c.teardownLocked()
		return err
	}

	// The classic login greeting.
	c.notifier.Alert()
	return nil
}

// SignOut flips presence to offline (best effort), stops every feed
// subscription and clears the identity. Session history does not
// survive sign-out.
func (c *Controller) SignOut(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.identity == nil {
		return
	}

	log := observability.WithComponent("client").With("uin", c.identity.UIN)
	if err := c.store.SetPresence(ctx, c.identity.UIN, domain.PresenceOffline); err != nil {
		log.Warn("offline presence update failed", "error", err)
	}
	c.teardownLocked()
	log.Info("identity cleared")
}

func (c *Controller) teardownLocked() {
	for _, stop := range c.stops {
		stop()
	}
	c.stops = nil
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.identity = nil
	c.directory = nil
	c.tracker = nil
	c.pipeline = nil
	c.router = nil
}

// ReadModel is the read-only view handed to the presentation layer.
type ReadModel struct {
	Identity *domain.Identity
	Sessions map[domain.UIN]*domain.ChatSession
	Focused  domain.UIN
	Contacts []domain.User
	Users    []domain.User
}

// ReadModel snapshots the current client state. Everything returned is
// a copy; mutating it does not touch the core.
func (c *Controller) ReadModel() ReadModel {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.identity == nil {
		return ReadModel{}
	}
	ident := *c.identity
	return ReadModel{
		Identity: &ident,
		Sessions: c.tracker.Sessions(),
		Focused:  c.tracker.Focused(),
		Contacts: c.directory.Contacts(),
		Users:    c.directory.Users(),
	}
}

// Resolve returns the directory entry (or offline placeholder) for a
// session partner, so closed or unknown contacts still render.
func (c *Controller) Resolve(uin domain.UIN) (domain.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.identity == nil {
		return domain.User{}, domain.ErrNoIdentity
	}
	return c.directory.Resolve(uin), nil
}

// OpenChat opens (or reopens) the session window for the partner.
func (c *Controller) OpenChat(partner domain.UIN) error {
	tracker, err := c.trackerHandle()
	if err != nil {
		return err
	}
	tracker.Open(partner)
	return nil
}

// CloseChat hides the window and drops its draft; history is kept.
func (c *Controller) CloseChat(partner domain.UIN) error {
	tracker, err := c.trackerHandle()
	if err != nil {
		return err
	}
	tracker.Close(partner)
	return nil
}

// SetDraft updates the compose buffer for the partner.
func (c *Controller) SetDraft(partner domain.UIN, text string) error {
	tracker, err := c.trackerHandle()
	if err != nil {
		return err
	}
	tracker.SetDraft(partner, text)
	return nil
}

// Send dispatches the partner's draft. A no-op without an identity.
func (c *Controller) Send(ctx context.Context, partner domain.UIN) error {
	c.mu.Lock()
	router := c.router
	c.mu.Unlock()

	if router == nil {
		return domain.ErrNoIdentity
	}
	router.Send(ctx, partner)
	return nil
}

// AddContact writes the user into the contact subcollection; the
// directory updates when the contact feed's next snapshot lands.
func (c *Controller) AddContact(ctx context.Context, user domain.User) error {
	c.mu.Lock()
	ident := c.identity
	c.mu.Unlock()

	if ident == nil {
		return domain.ErrNoIdentity
	}
	return c.store.AddContact(ctx, ident.UIN, user)
}

// RemoveContact deletes the contact and closes its chat window. Bots
// are refused.
func (c *Controller) RemoveContact(ctx context.Context, uin domain.UIN) error {
	c.mu.Lock()
	ident := c.identity
	directory := c.directory
	tracker := c.tracker
	c.mu.Unlock()

	if ident == nil {
		return domain.ErrNoIdentity
	}
	if directory.IsBot(uin) {
		return domain.ErrSystemContact
	}
	if err := c.store.RemoveContact(ctx, ident.UIN, uin); err != nil {
		return err
	}
	tracker.Close(uin)
	return nil
}

// SetPresence updates the local user's advertised status.
func (c *Controller) SetPresence(ctx context.Context, p domain.Presence) error {
	c.mu.Lock()
	ident := c.identity
	c.mu.Unlock()

	if ident == nil {
		return domain.ErrNoIdentity
	}
	if err := c.store.SetPresence(ctx, ident.UIN, p); err != nil {
		return err
	}
	c.mu.Lock()
	if c.identity != nil {
		c.identity.Presence = p
	}
	c.mu.Unlock()
	return nil
}

func (c *Controller) trackerHandle() (*session.Tracker, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tracker == nil {
		return nil, domain.ErrNoIdentity
	}
	return c.tracker, nil
}
