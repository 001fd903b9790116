// Package http exposes the game engine over a websocket endpoint: inbound
// messages are RPCs acknowledged per message, outbound traffic is room-wide
// snapshot broadcasts.
package http

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ST4RKiLLaX/lets-go-quizzing/internal/app"
	"github.com/ST4RKiLLaX/lets-go-quizzing/internal/auth"
)

// HostAuthCookie carries the host session credential across reconnects.
const HostAuthCookie = "lgq_host_auth"

type WSHandler struct {
	service  *app.GameService
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService, hub *Hub) *WSHandler {
	return &WSHandler{
		service: service,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// inbound is the client RPC frame. The id is echoed in the acknowledgment so
// the client can match responses to requests.
type inbound struct {
	ID      int64           `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type ack struct {
	Type    string         `json:"type"`
	ID      int64          `json:"id"`
	Payload map[string]any `json:"payload"`
}

type createPayload struct {
	QuizRef  string `json:"quizRef"`
	Password string `json:"password"`
}

type joinPayload struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
	Password string `json:"password"`
}

type registerPayload struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Emoji    string `json:"emoji"`
}

type getStatePayload struct {
	RoomID string `json:"roomId"`
}

type overridePayload struct {
	PlayerID   string `json:"playerId"`
	QuestionID string `json:"questionId"`
}

type answerPayload struct {
	QuestionID  string  `json:"questionId"`
	AnswerIndex *int    `json:"answerIndex"`
	AnswerText  *string `json:"answerText"`
}

// ServeWS upgrades the request and runs the connection's read loop. Every
// event for a connection is dispatched sequentially from here, which is what
// keeps its identity bindings race-free.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade failed: %v", err)
		return
	}
	defer socket.Close()

	conn := &app.ConnContext{
		ConnID:     uuid.NewString(),
		RemoteAddr: clientAddr(r),
	}
	credential := hostCredential(r)

	h.hub.Register(conn.ConnID, socket)
	defer func() {
		h.service.Disconnect(conn)
		h.hub.Unregister(conn.ConnID)
	}()

	for {
		_, data, err := socket.ReadMessage()
		if err != nil {
			return
		}
		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			h.reply(conn.ConnID, ack{Type: "ack", Payload: errBody("invalid message")})
			continue
		}
		result, err := h.dispatch(r.Context(), conn, credential, msg)
		if err != nil {
			h.reply(conn.ConnID, ack{Type: "ack", ID: msg.ID, Payload: errBody(err.Error())})
			continue
		}
		h.reply(conn.ConnID, ack{Type: "ack", ID: msg.ID, Payload: okBody(result)})
	}
}

// dispatch decodes the payload for the event type and invokes the
// coordinator. A nil result acknowledges with a bare {ok:true}.
func (h *WSHandler) dispatch(ctx context.Context, conn *app.ConnContext, credential string, msg inbound) (any, error) {
	switch msg.Type {
	case "host:create":
		var p createPayload
		if err := decode(msg.Payload, &p); err != nil {
			return nil, err
		}
		return h.service.CreateRoom(ctx, conn, p.QuizRef, p.Password, credential)
	case "player:join":
		var p joinPayload
		if err := decode(msg.Payload, &p); err != nil {
			return nil, err
		}
		return h.service.JoinRoom(conn, p.RoomID, p.PlayerID)
	case "player:register":
		var p registerPayload
		if err := decode(msg.Payload, &p); err != nil {
			return nil, err
		}
		_, err := h.service.RegisterPlayer(conn, p.PlayerID, p.Name, p.Emoji)
		return nil, err
	case "host:join":
		var p joinPayload
		if err := decode(msg.Payload, &p); err != nil {
			return nil, err
		}
		state, err := h.service.HostJoin(conn, p.RoomID, p.Password, credential)
		if err != nil {
			return nil, err
		}
		return map[string]any{"state": state}, nil
	case "host:get_state":
		var p getStatePayload
		if err := decode(msg.Payload, &p); err != nil {
			return nil, err
		}
		state, err := h.service.GetState(conn, p.RoomID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"state": state}, nil
	case "host:start":
		_, err := h.service.Start(conn)
		return nil, err
	case "host:next":
		_, err := h.service.Next(conn)
		return nil, err
	case "host:stop_timer":
		_, err := h.service.StopTimer(conn)
		return nil, err
	case "host:show_leaderboard":
		_, err := h.service.ShowLeaderboard(conn)
		return nil, err
	case "host:end":
		_, err := h.service.EndGame(conn)
		return nil, err
	case "host:override":
		var p overridePayload
		if err := decode(msg.Payload, &p); err != nil {
			return nil, err
		}
		_, err := h.service.OverrideScore(conn, p.PlayerID, p.QuestionID)
		return nil, err
	case "player:answer":
		var p answerPayload
		if err := decode(msg.Payload, &p); err != nil {
			return nil, err
		}
		_, err := h.service.SubmitAnswer(conn, p.QuestionID, p.AnswerIndex, p.AnswerText)
		return nil, err
	default:
		return nil, errUnsupported(msg.Type)
	}
}

func (h *WSHandler) reply(connID string, msg ack) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("ws: marshal ack failed: %v", err)
		return
	}
	h.hub.WriteTo(connID, data)
}

func decode(raw json.RawMessage, into any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, into)
}

func okBody(result any) map[string]any {
	body := map[string]any{}
	if result != nil {
		if raw, err := json.Marshal(result); err == nil {
			_ = json.Unmarshal(raw, &body)
		}
	}
	body["ok"] = true
	return body
}

func errBody(message string) map[string]any {
	return map[string]any{"error": message}
}

type unsupportedError string

func errUnsupported(t string) error { return unsupportedError(t) }

func (e unsupportedError) Error() string { return "unsupported message type " + string(e) }

// clientAddr prefers the first forwarded address so rate limits key on the
// real client behind a reverse proxy.
func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func hostCredential(r *http.Request) string {
	cookie, err := r.Cookie(HostAuthCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// LoginHandler issues host session credentials in exchange for the host
// password. The websocket side consumes the resulting cookie as an opaque
// credential.
type LoginHandler struct {
	auth    *auth.Service
	limiter *auth.RateLimiter
}

func NewLoginHandler(authSvc *auth.Service, limiter *auth.RateLimiter) *LoginHandler {
	return &LoginHandler{auth: authSvc, limiter: limiter}
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.auth.HostingEnabled() {
		http.Error(w, "hosting disabled", http.StatusForbidden)
		return
	}
	if !h.limiter.AllowLogin(clientAddr(r)) {
		http.Error(w, "too many attempts", http.StatusTooManyRequests)
		return
	}
	var body struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if !h.auth.VerifyPassword(body.Password) {
		http.Error(w, "invalid password", http.StatusUnauthorized)
		return
	}
	token := h.auth.CreateSession()
	http.SetCookie(w, &http.Cookie{
		Name:     HostAuthCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(auth.DefaultSessionTTL.Seconds()),
	})
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "token": token})
}
