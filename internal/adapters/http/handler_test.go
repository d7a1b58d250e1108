package httpadapter_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dsiqueira/retroicq/internal/adapters/auth"
	httpadapter "github.com/dsiqueira/retroicq/internal/adapters/http"
	"github.com/dsiqueira/retroicq/internal/adapters/responder"
	"github.com/dsiqueira/retroicq/internal/adapters/store/memory"
	"github.com/dsiqueira/retroicq/internal/app/client"
	"github.com/dsiqueira/retroicq/internal/domain"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	store := memory.NewStore()
	bot := domain.User{UIN: "987654", Nickname: "GeminiBot", Presence: domain.PresenceOnline, IsBot: true}
	ctrl := client.New(
		auth.NewAnonymousProvider(store),
		store,
		responder.NewMockResponder(),
		nil,
		nil,
		client.Config{Bots: []domain.User{bot}},
	)

	return httpadapter.NewServer(ctrl)
}

func do(t *testing.T, srv http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestChatsRequiresSignIn(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodGet, "/chats", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d, body=%s", w.Code, w.Body.String())
	}

	w = do(t, srv, http.MethodGet, "/roster", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestSignInRejectsShortUIN(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/signin", []byte(`{"uin":"ab"}`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestSignInTwiceConflicts(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/signin", []byte(`{"uin":"111111"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", w.Code, w.Body.String())
	}

	w = do(t, srv, http.MethodPost, "/signin", []byte(`{"uin":"222222"}`))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestBotChatRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/signin", []byte(`{"uin":"111111"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("signin: expected 200, got %d, body=%s", w.Code, w.Body.String())
	}

	w = do(t, srv, http.MethodPost, "/chats/987654/open", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("open: expected 200, got %d, body=%s", w.Code, w.Body.String())
	}

	w = do(t, srv, http.MethodPut, "/chats/987654/draft", []byte(`{"text":"hi bot"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("draft: expected 200, got %d, body=%s", w.Code, w.Body.String())
	}

	w = do(t, srv, http.MethodPost, "/chats/987654/send", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("send: expected 202, got %d, body=%s", w.Code, w.Body.String())
	}

	w = do(t, srv, http.MethodGet, "/chats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("chats: expected 200, got %d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Identity *struct {
			UIN string `json:"uin"`
		} `json:"identity"`
		Sessions []struct {
			PartnerUIN string `json:"partner_uin"`
			Partner    struct {
				Nickname string `json:"nickname"`
				IsBot    bool   `json:"is_bot"`
			} `json:"partner"`
			Messages []struct {
				SenderUIN string `json:"sender_uin"`
				Text      string `json:"text"`
			} `json:"messages"`
			Draft string `json:"draft"`
			Open  bool   `json:"open"`
		} `json:"sessions"`
		Focused string `json:"focused"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode chats response: %v", err)
	}
	if resp.Identity == nil || resp.Identity.UIN != "111111" {
		t.Fatalf("expected identity 111111, got %+v", resp.Identity)
	}
	if len(resp.Sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(resp.Sessions))
	}
	sess := resp.Sessions[0]
	if sess.PartnerUIN != "987654" || !sess.Partner.IsBot {
		t.Fatalf("unexpected partner: %+v", sess)
	}
	if len(sess.Messages) != 2 {
		t.Fatalf("expected my message plus the bot reply, got %d", len(sess.Messages))
	}
	if sess.Messages[0].SenderUIN != "111111" || sess.Messages[0].Text != "hi bot" {
		t.Fatalf("unexpected first message: %+v", sess.Messages[0])
	}
	if sess.Messages[1].SenderUIN != "987654" {
		t.Fatalf("expected bot reply second, got %+v", sess.Messages[1])
	}
	if sess.Draft != "" {
		t.Fatalf("expected draft cleared after send, got %q", sess.Draft)
	}
	if !sess.Open {
		t.Fatal("expected session open")
	}
}

func TestRosterAndContacts(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/signin", []byte(`{"uin":"111111"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("signin: expected 200, got %d", w.Code)
	}

	w = do(t, srv, http.MethodPost, "/roster/contacts", []byte(`{"uin":"222222","nickname":"Alice","status":"online"}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("add contact: expected 201, got %d, body=%s", w.Code, w.Body.String())
	}

	w = do(t, srv, http.MethodGet, "/roster", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("roster: expected 200, got %d", w.Code)
	}

	var roster struct {
		Contacts []struct {
			UIN   string `json:"uin"`
			IsBot bool   `json:"is_bot"`
		} `json:"contacts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &roster); err != nil {
		t.Fatalf("decode roster: %v", err)
	}
	if len(roster.Contacts) != 2 {
		t.Fatalf("expected bot + Alice, got %d contacts", len(roster.Contacts))
	}
	if !roster.Contacts[0].IsBot {
		t.Fatalf("expected the bot listed first, got %+v", roster.Contacts[0])
	}

	// Bots cannot be removed from the roster.
	w = do(t, srv, http.MethodDelete, "/roster/contacts/987654", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("remove bot: expected 400, got %d", w.Code)
	}

	w = do(t, srv, http.MethodDelete, "/roster/contacts/222222", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("remove contact: expected 200, got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestSignOut(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/signin", []byte(`{"uin":"111111"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("signin: expected 200, got %d", w.Code)
	}

	w = do(t, srv, http.MethodPost, "/signout", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("signout: expected 200, got %d", w.Code)
	}

	w = do(t, srv, http.MethodGet, "/chats", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after signout, got %d", w.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodGet, "/signin", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}
