package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dsiqueira/retroicq/internal/app/client"
	"github.com/dsiqueira/retroicq/internal/domain"
)

type Server struct {
	ctrl *client.Controller
}

func NewServer(ctrl *client.Controller) http.Handler {
	s := &Server{ctrl: ctrl}
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())

	// /signin, /signup, /signout → identity lifecycle (POST)
	mux.HandleFunc("/signin", s.handleSignIn)
	mux.HandleFunc("/signup", s.handleSignUp)
	mux.HandleFunc("/signout", s.handleSignOut)

	// /roster            →  GET: contacts + available users
	// /roster/contacts   → POST: add contact
	// /roster/contacts/{uin} → DELETE: remove contact
	mux.HandleFunc("/roster", s.handleRoster)
	mux.HandleFunc("/roster/contacts", s.handleContacts)
	mux.HandleFunc("/roster/contacts/", s.handleContactWithUIN)

	// /chats            →  GET: read model
	// /chats/{uin}/open|close|send → POST, /chats/{uin}/draft → PUT
	mux.HandleFunc("/chats", s.handleChats)
	mux.HandleFunc("/chats/", s.handleChatWithUIN)

	return chainMiddlewares(mux, withLogging, withCORS)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type signInRequest struct {
	UIN      string `json:"uin"`
	Password string `json:"password,omitempty"`
	Nickname string `json:"nickname,omitempty"`
}

type identityResponse struct {
	UIN      string `json:"uin"`
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
	Status   string `json:"status"`
}

type userResponse struct {
	UIN      string `json:"uin"`
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
	Status   string `json:"status"`
	IsBot    bool   `json:"is_bot"`
}

type rosterResponse struct {
	Contacts []userResponse `json:"contacts"`
	Users    []userResponse `json:"users"`
}

type addContactRequest struct {
	UIN      string `json:"uin"`
	Nickname string `json:"nickname"`
	Email    string `json:"email,omitempty"`
	Status   string `json:"status,omitempty"`
}

type messageResponse struct {
	ID          string `json:"id"`
	SenderUIN   string `json:"sender_uin"`
	ReceiverUIN string `json:"receiver_uin"`
	Text        string `json:"text"`
	SentAt      int64  `json:"sent_at"`
	Read        bool   `json:"read"`
}

type sessionResponse struct {
	PartnerUIN string            `json:"partner_uin"`
	Partner    userResponse      `json:"partner"`
	Messages   []messageResponse `json:"messages"`
	Draft      string            `json:"draft"`
	Open       bool              `json:"open"`
	Minimized  bool              `json:"minimized"`
}

type chatsResponse struct {
	Identity *identityResponse `json:"identity,omitempty"`
	Sessions []sessionResponse `json:"sessions"`
	Focused  string            `json:"focused,omitempty"`
}

type draftRequest struct {
	Text string `json:"text"`
}

// ─────────────────────────────────────────────
// Identity handlers
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	s.handleAuth(w, r, s.ctrl.SignIn)
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	s.handleAuth(w, r, s.ctrl.SignUp)
}

func (s *Server) handleAuth(
	w http.ResponseWriter,
	r *http.Request,
	establish func(ctx context.Context, creds domain.Credentials) (*domain.Identity, error),
) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.UIN == "" {
		badRequest(w, "uin is required")
		return
	}

	ident, err := establish(r.Context(), domain.Credentials{
		UIN:      req.UIN,
		Password: req.Password,
		Nickname: req.Nickname,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toIdentityResponse(ident))
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	s.ctrl.SignOut(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

// ─────────────────────────────────────────────
// Roster handlers
// ─────────────────────────────────────────────

func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	rm := s.ctrl.ReadModel()
	if rm.Identity == nil {
		unauthorized(w)
		return
	}

	writeJSON(w, http.StatusOK, rosterResponse{
		Contacts: toUsersResponse(rm.Contacts),
		Users:    toUsersResponse(rm.Users),
	})
}

func (s *Server) handleContacts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req addContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.UIN == "" {
		badRequest(w, "uin is required")
		return
	}

	err := s.ctrl.AddContact(r.Context(), domain.User{
		UIN:      domain.UIN(req.UIN),
		Nickname: req.Nickname,
		Email:    req.Email,
		Presence: domain.ParsePresence(req.Status),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

func (s *Server) handleContactWithUIN(w http.ResponseWriter, r *http.Request) {
	uin := strings.TrimPrefix(r.URL.Path, "/roster/contacts/")
	if uin == "" || strings.Contains(uin, "/") {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}

	if err := s.ctrl.RemoveContact(r.Context(), domain.UIN(uin)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// ─────────────────────────────────────────────
// Chat handlers
// ─────────────────────────────────────────────

func (s *Server) handleChats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	rm := s.ctrl.ReadModel()
	if rm.Identity == nil {
		unauthorized(w)
		return
	}

	resp := chatsResponse{
		Identity: toIdentityResponse(rm.Identity),
		Sessions: make([]sessionResponse, 0, len(rm.Sessions)),
		Focused:  string(rm.Focused),
	}
	for uin, sess := range rm.Sessions {
		partner, err := s.ctrl.Resolve(uin)
		if err != nil {
			writeError(w, err)
			return
		}
		resp.Sessions = append(resp.Sessions, toSessionResponse(sess, partner))
	}

	writeJSON(w, http.StatusOK, resp)
}

// /chats/{uin}/{action}
func (s *Server) handleChatWithUIN(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/chats/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	uin := domain.UIN(parts[0])

	switch parts[1] {
	case "open":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		if err := s.ctrl.OpenChat(uin); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "open"})

	case "close":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		if err := s.ctrl.CloseChat(uin); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})

	case "draft":
		if r.Method != http.MethodPut {
			methodNotAllowed(w)
			return
		}
		var req draftRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "invalid JSON body")
			return
		}
		if err := s.ctrl.SetDraft(uin, req.Text); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "draft updated"})

	case "send":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		if err := s.ctrl.Send(r.Context(), uin); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "dispatched"})

	default:
		http.NotFound(w, r)
	}
}

// ─────────────────────────────────────────────
// Response helpers
// ─────────────────────────────────────────────

func toIdentityResponse(i *domain.Identity) *identityResponse {
	return &identityResponse{
		UIN:      string(i.UIN),
		Nickname: i.Nickname,
		Email:    i.Email,
		Status:   string(i.Presence),
	}
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		UIN:      string(u.UIN),
		Nickname: u.Nickname,
		Email:    u.Email,
		Status:   string(u.Presence),
		IsBot:    u.IsBot,
	}
}

func toUsersResponse(users []domain.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}

func toSessionResponse(sess *domain.ChatSession, partner domain.User) sessionResponse {
	msgs := make([]messageResponse, 0, len(sess.Messages))
	for _, m := range sess.Messages {
		msgs = append(msgs, messageResponse{
			ID:          string(m.ID),
			SenderUIN:   string(m.SenderUIN),
			ReceiverUIN: string(m.ReceiverUIN),
			Text:        m.Text,
			SentAt:      m.SentAt,
			Read:        m.Read,
		})
	}
	return sessionResponse{
		PartnerUIN: string(sess.PartnerUIN),
		Partner:    toUserResponse(partner),
		Messages:   msgs,
		Draft:      sess.Draft,
		Open:       sess.Open,
		Minimized:  sess.Minimized,
	}
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var authErr *domain.AuthError
	switch {
	case errors.As(err, &authErr):
		if authErr.Reason == domain.AuthReasonInvalidUIN {
			badRequest(w, authErr.Error())
			return
		}
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": authErr.Error()})
	case errors.Is(err, domain.ErrNoIdentity):
		unauthorized(w)
	case errors.Is(err, client.ErrAlreadySignedIn):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrSystemContact):
		badRequest(w, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		internalError(w, err)
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func unauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{
		"error": "not signed in",
	})
}

func internalError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"error": "method not allowed",
	})
}
