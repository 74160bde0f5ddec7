package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/figaro/pkg/provider"
	"github.com/go-go-golems/figaro/pkg/session"
	"github.com/go-go-golems/figaro/pkg/settings"
	"github.com/go-go-golems/figaro/pkg/turn"
)

// user-facing error strings, kept stable for clients
const (
	msgNoSecret       = "No secret key env in the server."
	msgNotLoggedIn    = "You're not logged in yet!"
	msgSessionExpired = "Your login session has been expired!"
	msgMissingFields  = "Missing prompt or chat_id"
	msgTimeout        = "Request api was timeout, pls confirm your network worked"
	msgNotFound       = "Not found"
)

// Handler serves the chat API. Every failure crossing this boundary becomes a
// JSON error response; nothing is allowed to crash the process.
type Handler struct {
	settings     *settings.Settings
	resolver     *session.Resolver
	orchestrator *turn.Orchestrator
	metrics      *Metrics
}

func NewHandler(s *settings.Settings, resolver *session.Resolver, orchestrator *turn.Orchestrator, metrics *Metrics) *Handler {
	return &Handler{
		settings:     s,
		resolver:     resolver,
		orchestrator: orchestrator,
		metrics:      metrics,
	}
}

type chatRequest struct {
	Prompt string `json:"prompt"`
	// two accepted shapes for naming the conversation: an explicit id plus
	// optional display name, or a single name doubling as both
	ChatID           string `json:"chat_id"`
	ChatName         string `json:"chat_name"`
	ConversationName string `json:"conversation_name"`
}

// conversationKey normalizes the two request shapes to (id, display name).
func (req *chatRequest) conversationKey() (string, string) {
	if req.ChatID != "" {
		return req.ChatID, req.ChatName
	}
	return req.ConversationName, req.ConversationName
}

type loginRequest struct {
	Key string `json:"key"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeBody decodes a JSON body that may itself be a JSON-encoded string, as
// some clients double-encode their payloads.
func decodeBody(r *http.Request, v interface{}) error {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return errors.Wrap(err, "could not read request body")
	}
	if len(raw) == 0 {
		return errors.New("empty request body")
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return errors.Wrap(err, "could not decode request body")
		}
		raw = []byte(inner)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrap(err, "could not decode request body")
	}
	return nil
}

func (h *Handler) sessionCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.settings.Server.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
	})
}

// resolveSession extracts and validates the session cookie. On a stale
// session it sets an immediately expiring cookie so the client stops
// presenting the rejected credential.
func (h *Handler) resolveSession(w http.ResponseWriter, r *http.Request) (*session.Session, string, bool) {
	cookie, err := r.Cookie(h.settings.Server.CookieName)
	if err != nil || cookie.Value == "" {
		writeError(w, http.StatusBadRequest, msgNotLoggedIn)
		return nil, OutcomeUnauthenticated, false
	}

	sess, err := h.resolver.Resolve(r.Context(), cookie.Value)
	if err != nil {
		if errors.Is(err, session.ErrSessionExpired) {
			h.sessionCookie(w, "", -1)
			writeError(w, http.StatusBadRequest, msgSessionExpired)
			return nil, OutcomeSessionExpired, false
		}
		log.Error().Err(err).Msg("session resolution failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, OutcomeSessionExpired, false
	}
	return sess, "", true
}

// Chat handles POST /api/chat: one turn of a named conversation.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	if r.Method != http.MethodPost {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}

	if h.settings.Session.Secret == "" {
		writeError(w, http.StatusInternalServerError, msgNoSecret)
		return
	}

	sess, outcome, ok := h.resolveSession(w, r)
	if !ok {
		h.metrics.ObserveTurn(outcome, 0)
		return
	}

	req := &chatRequest{}
	if err := decodeBody(r, req); err != nil {
		h.metrics.ObserveTurn(OutcomeBadRequest, 0)
		writeError(w, http.StatusBadRequest, msgMissingFields)
		return
	}
	conversationID, conversationName := req.conversationKey()

	msgs, err := h.orchestrator.SubmitTurn(
		r.Context(),
		sess.User.ID,
		sess.Credential,
		conversationID,
		conversationName,
		req.Prompt,
	)
	if err != nil {
		h.writeTurnError(w, err, started)
		return
	}

	h.metrics.ObserveTurn(OutcomeOK, time.Since(started).Seconds())
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": msgs})
}

func (h *Handler) writeTurnError(w http.ResponseWriter, err error, started time.Time) {
	switch {
	case errors.Is(err, turn.ErrBadRequest):
		h.metrics.ObserveTurn(OutcomeBadRequest, 0)
		writeError(w, http.StatusBadRequest, msgMissingFields)
	case errors.Is(err, provider.ErrTimeout):
		h.metrics.ObserveTurn(OutcomeProviderTimeout, 0)
		writeError(w, http.StatusInternalServerError, msgTimeout)
	case errors.Is(err, turn.ErrStorage):
		h.metrics.ObserveTurn(OutcomeStorageError, 0)
		log.Error().Err(err).Msg("turn persistence failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		h.metrics.ObserveTurn(OutcomeProviderError, 0)
		log.Error().Err(err).Dur("duration", time.Since(started)).Msg("turn failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// Chats dispatches /api/chats: GET lists the user's conversations, POST
// creates an empty one with a generated id.
func (h *Handler) Chats(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listChats(w, r)
	case http.MethodPost:
		h.createChat(w, r)
	default:
		writeError(w, http.StatusNotFound, msgNotFound)
	}
}

func (h *Handler) listChats(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := h.resolveSession(w, r)
	if !ok {
		return
	}

	convs, err := h.orchestrator.ListConversations(r.Context(), sess.User.ID)
	if err != nil {
		log.Error().Err(err).Msg("could not list conversations")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"chats": convs})
}

type createChatRequest struct {
	Name string `json:"name"`
}

// createChat pre-creates an empty conversation so clients can show it before
// its first turn. Conversations can still be created implicitly by sending a
// turn under a fresh id.
func (h *Handler) createChat(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := h.resolveSession(w, r)
	if !ok {
		return
	}

	req := &createChatRequest{}
	if err := decodeBody(r, req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "Missing name")
		return
	}

	conv, err := h.orchestrator.CreateConversation(r.Context(), sess.User.ID, req.Name)
	if err != nil {
		log.Error().Err(err).Msg("could not create conversation")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"chat": conv})
}

// Login handles POST /api/user/login: seals the provider key into a session
// cookie and upserts the user row.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}

	if h.settings.Session.Secret == "" {
		writeError(w, http.StatusInternalServerError, msgNoSecret)
		return
	}

	req := &loginRequest{}
	if err := decodeBody(r, req); err != nil || req.Key == "" {
		writeError(w, http.StatusBadRequest, "Missing key")
		return
	}

	token, err := h.resolver.Login(r.Context(), req.Key)
	if err != nil {
		log.Error().Err(err).Msg("login failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.sessionCookie(w, token, 0)
	writeJSON(w, http.StatusOK, map[string]bool{"loggedIn": true})
}

// Logout handles POST /api/user/logout: flips the login flag and expires the
// cookie. Idempotent; an absent session is still a successful logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}

	if cookie, err := r.Cookie(h.settings.Server.CookieName); err == nil {
		if err := h.resolver.Logout(r.Context(), cookie.Value); err != nil {
			log.Error().Err(err).Msg("logout failed")
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	h.sessionCookie(w, "", -1)
	writeJSON(w, http.StatusOK, map[string]bool{"loggedIn": false})
}
