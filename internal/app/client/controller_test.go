package client_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsiqueira/retroicq/internal/adapters/auth"
	"github.com/dsiqueira/retroicq/internal/adapters/responder"
	"github.com/dsiqueira/retroicq/internal/adapters/store/memory"
	"github.com/dsiqueira/retroicq/internal/app/client"
	"github.com/dsiqueira/retroicq/internal/domain"
)

var gemini = domain.User{UIN: "987654", Nickname: "GeminiBot", Presence: domain.PresenceOnline, IsBot: true}

type recordingNotifier struct {
	alerts int
	sents  int
}

func (n *recordingNotifier) Alert() { n.alerts++ }
func (n *recordingNotifier) Sent()  { n.sents++ }

type recordingDiagnostics struct {
	reports []string
}

func (d *recordingDiagnostics) Report(msg string) { d.reports = append(d.reports, msg) }

func newClient(t *testing.T, store *memory.Store) (*client.Controller, *recordingNotifier, *recordingDiagnostics) {
	t.Helper()
	notifier := &recordingNotifier{}
	diags := &recordingDiagnostics{}
	ctrl := client.New(
		auth.NewAnonymousProvider(store),
		store,
		responder.NewMockResponder(),
		notifier,
		diags,
		client.Config{Bots: []domain.User{gemini}},
	)
	return ctrl, notifier, diags
}

func TestSignInEstablishesIdentityAndGreets(t *testing.T) {
	store := memory.NewStore()
	ctrl, notifier, _ := newClient(t, store)

	ident, err := ctrl.SignIn(context.Background(), domain.Credentials{UIN: "111111"})
	require.NoError(t, err)
	assert.Equal(t, domain.UIN("111111"), ident.UIN)
	assert.Equal(t, "Admin", ident.Nickname)
	assert.Equal(t, 1, notifier.alerts, "login greeting")

	rm := ctrl.ReadModel()
	require.NotNil(t, rm.Identity)
	require.Len(t, rm.Contacts, 1)
	assert.True(t, rm.Contacts[0].IsBot)
}

func TestSignInTwiceFails(t *testing.T) {
	store := memory.NewStore()
	ctrl, _, _ := newClient(t, store)

	_, err := ctrl.SignIn(context.Background(), domain.Credentials{UIN: "111111"})
	require.NoError(t, err)

	_, err = ctrl.SignIn(context.Background(), domain.Credentials{UIN: "222222"})
	assert.ErrorIs(t, err, client.ErrAlreadySignedIn)
}

func TestSignInRejectsShortUIN(t *testing.T) {
	store := memory.NewStore()
	ctrl, _, _ := newClient(t, store)

	_, err := ctrl.SignIn(context.Background(), domain.Credentials{UIN: "ab"})

	var authErr *domain.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, domain.AuthReasonInvalidUIN, authErr.Reason)
	assert.Nil(t, ctrl.ReadModel().Identity)
}

func TestMessageFlowBetweenTwoClients(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	sender, _, _ := newClient(t, store)
	receiver, recvNotifier, _ := newClient(t, store)

	_, err := sender.SignIn(ctx, domain.Credentials{UIN: "111111"})
	require.NoError(t, err)
	_, err = receiver.SignIn(ctx, domain.Credentials{UIN: "222222"})
	require.NoError(t, err)
	loginAlerts := recvNotifier.alerts

	require.NoError(t, sender.OpenChat("222222"))
	require.NoError(t, sender.SetDraft("222222", "oi!"))
	require.NoError(t, sender.Send(ctx, "222222"))

	// Receiver side: message landed, focus grabbed, alert rang.
	rm := receiver.ReadModel()
	sess, ok := rm.Sessions["111111"]
	require.True(t, ok)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, "oi!", sess.Messages[0].Text)
	assert.Equal(t, domain.UIN("111111"), rm.Focused)
	assert.Equal(t, loginAlerts+1, recvNotifier.alerts)

	// Sender side: exactly one copy via the echo, draft cleared, focus
	// untouched (echoes never steal focus).
	rm = sender.ReadModel()
	sess, ok = rm.Sessions["222222"]
	require.True(t, ok)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, "", sess.Draft)
	assert.Equal(t, domain.UIN("222222"), rm.Focused, "focus stays on the window the sender opened")
}

func TestBotConversation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ctrl, notifier, _ := newClient(t, store)

	_, err := ctrl.SignIn(ctx, domain.Credentials{UIN: "111111"})
	require.NoError(t, err)
	loginAlerts := notifier.alerts

	require.NoError(t, ctrl.OpenChat(gemini.UIN))
	require.NoError(t, ctrl.SetDraft(gemini.UIN, "hi bot"))
	require.NoError(t, ctrl.Send(ctx, gemini.UIN))

	rm := ctrl.ReadModel()
	sess, ok := rm.Sessions[gemini.UIN]
	require.True(t, ok)
	require.Len(t, sess.Messages, 2, "my message plus the bot reply")
	assert.Equal(t, domain.UIN("111111"), sess.Messages[0].SenderUIN)
	assert.Equal(t, gemini.UIN, sess.Messages[1].SenderUIN)
	assert.Equal(t, loginAlerts+1, notifier.alerts, "bot reply rings once")
}

func TestRemoteWriteFailureShowsOneDiagnostic(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ctrl, _, diags := newClient(t, store)

	_, err := ctrl.SignIn(ctx, domain.Credentials{UIN: "111111"})
	require.NoError(t, err)
	store.SetSendError(domain.ErrPermissionDenied)

	require.NoError(t, ctrl.OpenChat("222222"))
	require.NoError(t, ctrl.SetDraft("222222", "hello"))
	require.NoError(t, ctrl.Send(ctx, "222222"))

	rm := ctrl.ReadModel()
	sess := rm.Sessions["222222"]
	require.NotNil(t, sess)
	assert.Empty(t, sess.Messages, "no new message after a failed write")
	assert.Equal(t, "", sess.Draft)
	assert.Len(t, diags.reports, 1)
}

func TestSignOutStopsFeedAndGoesOffline(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	watcher, _, _ := newClient(t, store)
	leaver, _, _ := newClient(t, store)

	_, err := watcher.SignIn(ctx, domain.Credentials{UIN: "111111"})
	require.NoError(t, err)
	_, err = leaver.SignIn(ctx, domain.Credentials{UIN: "222222"})
	require.NoError(t, err)

	leaver.SignOut(ctx)

	assert.Nil(t, leaver.ReadModel().Identity)
	assert.ErrorIs(t, leaver.Send(ctx, "111111"), domain.ErrNoIdentity)

	// The watcher's user list now shows the leaver offline.
	var found bool
	for _, u := range watcher.ReadModel().Users {
		if u.UIN == "222222" {
			found = true
			assert.Equal(t, domain.PresenceOffline, u.Presence)
		}
	}
	assert.True(t, found)

	// Messages sent after sign-out do not reach the dead client state.
	require.NoError(t, watcher.OpenChat("222222"))
	require.NoError(t, watcher.SetDraft("222222", "too late"))
	require.NoError(t, watcher.Send(ctx, "222222"))
	assert.Nil(t, leaver.ReadModel().Identity)
}

func TestContactLifecycle(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ctrl, _, _ := newClient(t, store)

	_, err := ctrl.SignIn(ctx, domain.Credentials{UIN: "111111"})
	require.NoError(t, err)

	alice := domain.User{UIN: "222222", Nickname: "Alice", Presence: domain.PresenceOnline}
	require.NoError(t, ctrl.AddContact(ctx, alice))

	rm := ctrl.ReadModel()
	require.Len(t, rm.Contacts, 2) // bot + Alice

	// Removing a bot is refused.
	assert.ErrorIs(t, ctrl.RemoveContact(ctx, gemini.UIN), domain.ErrSystemContact)

	// Removing Alice closes her chat window, history preserved.
	require.NoError(t, ctrl.OpenChat("222222"))
	require.NoError(t, ctrl.RemoveContact(ctx, "222222"))

	rm = ctrl.ReadModel()
	require.Len(t, rm.Contacts, 1)
	require.Contains(t, rm.Sessions, domain.UIN("222222"))
	assert.False(t, rm.Sessions["222222"].Open)
}

func TestBackfillPopulatesSessionsOnSignIn(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	first, _, _ := newClient(t, store)
	_, err := first.SignIn(ctx, domain.Credentials{UIN: "111111"})
	require.NoError(t, err)
	require.NoError(t, first.OpenChat("222222"))
	require.NoError(t, first.SetDraft("222222", "stored before you arrived"))
	require.NoError(t, first.Send(ctx, "222222"))

	// A client signing in later receives the history via the initial
	// snapshot replay.
	second, _, _ := newClient(t, store)
	_, err = second.SignIn(ctx, domain.Credentials{UIN: "222222"})
	require.NoError(t, err)

	rm := second.ReadModel()
	sess, ok := rm.Sessions["111111"]
	require.True(t, ok)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, "stored before you arrived", sess.Messages[0].Text)
}
