// Package app coordinates connection-scoped events into game state
// transitions: it authorizes each event against the connection's bindings,
// runs scoring and the state machine inside the room's critical section, and
// fans the committed state out to the room.
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ST4RKiLLaX/lets-go-quizzing/internal/domain"
	"github.com/ST4RKiLLaX/lets-go-quizzing/internal/game"
)

const (
	defaultPlayerName  = "Anonymous"
	defaultPlayerEmoji = "👤"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, ref string) (domain.Quiz, error)
}

// Credentials verifies host identity, either a prior session credential or a
// freshly supplied password.
type Credentials interface {
	IsAuthenticated(credential string) bool
	HostingEnabled() bool
	VerifyPassword(candidate string) bool
}

// RateLimiter throttles per-address attempt rates for the actions that need
// protection.
type RateLimiter interface {
	AllowLogin(addr string) bool
	AllowPlayerJoin(addr string) bool
	AllowHostCreate(addr string) bool
	AllowHostJoin(addr string) bool
	AllowHostGetState(addr string) bool
}

// Broadcaster delivers snapshots to connections. JoinRoom registers a
// connection's room membership; the broadcast methods fan out to every member
// while the Send methods target one connection.
type Broadcaster interface {
	JoinRoom(connID, roomID string)
	BroadcastState(roomID string, snap StateSnapshot)
	BroadcastRoom(roomID string, snap StateSnapshot)
	SendState(connID string, snap StateSnapshot)
	SendRoom(connID string, snap StateSnapshot)
}

// HistoryExporter persists final standings, best-effort.
type HistoryExporter interface {
	Export(state domain.GameState)
}

// GameService is the session coordinator.
type GameService struct {
	rooms   *game.Registry
	quizzes QuizRepository
	creds   Credentials
	limiter RateLimiter
	history HistoryExporter
	notify  Broadcaster
	clock   func() time.Time
}

func NewGameService(rooms *game.Registry, quizzes QuizRepository, creds Credentials, limiter RateLimiter, history HistoryExporter, notify Broadcaster) *GameService {
	return &GameService{
		rooms:   rooms,
		quizzes: quizzes,
		creds:   creds,
		limiter: limiter,
		history: history,
		notify:  notify,
		clock:   time.Now,
	}
}

// SetClock overrides the time source for deterministic tests.
func (g *GameService) SetClock(now func() time.Time) {
	g.clock = now
}

// RoomCreated is the acknowledgment for a successful host:create.
type RoomCreated struct {
	RoomID string        `json:"roomId"`
	State  StateSnapshot `json:"state"`
}

// CreateRoom loads the quiz, opens a lobby under a fresh room code, and binds
// the connection as its host. The caller must present either a live session
// credential or the host password.
func (g *GameService) CreateRoom(ctx context.Context, conn *ConnContext, quizRef, password, credential string) (RoomCreated, error) {
	if quizRef == "" {
		return RoomCreated{}, fmt.Errorf("%w: quizRef required", domain.ErrValidation)
	}
	if !g.creds.HostingEnabled() {
		return RoomCreated{}, domain.ErrHostingDisabled
	}
	if !g.limiter.AllowHostCreate(conn.RemoteAddr) {
		return RoomCreated{}, domain.ErrRateLimited
	}
	if err := g.authorizeHostCredential(conn, password, credential, "host:create"); err != nil {
		return RoomCreated{}, err
	}

	quiz, err := g.quizzes.GetQuiz(ctx, quizRef)
	if err != nil {
		return RoomCreated{}, err
	}

	roomID, state := g.rooms.Create(quiz, quizRef, conn.ConnID)
	g.notify.JoinRoom(conn.ConnID, roomID)
	conn.Role = RoleHost
	conn.RoomID = roomID

	snap := Snapshot(state)
	g.notify.BroadcastState(roomID, snap)
	return RoomCreated{RoomID: roomID, State: snap}, nil
}

// RoomJoined is the acknowledgment for a successful player:join.
type RoomJoined struct {
	RoomID   string        `json:"roomId"`
	PlayerID string        `json:"playerId"`
	State    StateSnapshot `json:"state"`
}

// JoinRoom binds the connection to a room as a player. A returning player
// supplies its previous playerID to resume; otherwise a fresh one is issued.
// Registration is a separate step, so joining never mutates room state.
func (g *GameService) JoinRoom(conn *ConnContext, roomID, playerID string) (RoomJoined, error) {
	if roomID == "" {
		return RoomJoined{}, fmt.Errorf("%w: roomId required", domain.ErrValidation)
	}
	if !g.limiter.AllowPlayerJoin(conn.RemoteAddr) {
		return RoomJoined{}, domain.ErrRateLimited
	}
	state, ok := g.rooms.Get(roomID)
	if !ok {
		return RoomJoined{}, domain.ErrRoomNotFound
	}

	if playerID == "" {
		playerID = uuid.NewString()
	}
	g.notify.JoinRoom(conn.ConnID, roomID)
	conn.Role = RolePlayer
	conn.RoomID = roomID
	conn.PlayerID = playerID

	snap := Snapshot(g.reconnectPlayer(roomID, state, playerID, conn.ConnID))
	g.notify.BroadcastRoom(roomID, snap)
	return RoomJoined{RoomID: roomID, PlayerID: playerID, State: snap}, nil
}

// reconnectPlayer re-binds an existing player's connection on rejoin. Unknown
// player IDs are left alone; they only become players through registration.
func (g *GameService) reconnectPlayer(roomID string, state domain.GameState, playerID, connID string) domain.GameState {
	if _, ok := state.Players[playerID]; !ok {
		return state
	}
	next, _ := g.rooms.Update(roomID, func(s domain.GameState) domain.GameState {
		player, ok := s.Players[playerID]
		if !ok {
			return s
		}
		players := s.ClonePlayers()
		player.ConnID = connID
		players[playerID] = player
		s.Players = players
		return s
	})
	return next
}

// RegisterPlayer adds the joined connection's player to the lobby roster.
// Registration is only open while the room is in the lobby.
func (g *GameService) RegisterPlayer(conn *ConnContext, playerID, name, emoji string) (StateSnapshot, error) {
	if conn.RoomID == "" {
		return StateSnapshot{}, domain.ErrNotInRoom
	}
	if playerID == "" {
		return StateSnapshot{}, fmt.Errorf("%w: playerId required", domain.ErrValidation)
	}
	if name == "" {
		name = defaultPlayerName
	}
	if emoji == "" {
		emoji = defaultPlayerEmoji
	}

	var stateErr error
	next, ok := g.rooms.Update(conn.RoomID, func(s domain.GameState) domain.GameState {
		if s.Type != domain.StateLobby {
			stateErr = domain.ErrWrongPhase
			return s
		}
		players := s.ClonePlayers()
		players[playerID] = domain.Player{
			ID:     playerID,
			Name:   name,
			Emoji:  emoji,
			ConnID: conn.ConnID,
		}
		s.Players = players
		return s
	})
	if !ok {
		return StateSnapshot{}, domain.ErrRoomNotFound
	}
	if stateErr != nil {
		return StateSnapshot{}, stateErr
	}

	conn.PlayerID = playerID
	snap := Snapshot(next)
	g.notify.BroadcastRoom(conn.RoomID, snap)
	return snap, nil
}

// HostJoin re-binds a (reconnecting) host to an existing room after
// re-verifying its credential.
func (g *GameService) HostJoin(conn *ConnContext, roomID, password, credential string) (StateSnapshot, error) {
	if roomID == "" {
		return StateSnapshot{}, fmt.Errorf("%w: roomId required", domain.ErrValidation)
	}
	if !g.rooms.Exists(roomID) {
		return StateSnapshot{}, domain.ErrRoomNotFound
	}
	if !g.creds.HostingEnabled() {
		return StateSnapshot{}, domain.ErrHostingDisabled
	}
	if !g.limiter.AllowHostJoin(conn.RemoteAddr) {
		return StateSnapshot{}, domain.ErrRateLimited
	}
	if err := g.authorizeHostCredential(conn, password, credential, "host:join"); err != nil {
		return StateSnapshot{}, err
	}

	g.notify.JoinRoom(conn.ConnID, roomID)
	conn.Role = RoleHost
	conn.RoomID = roomID

	state, ok := g.rooms.Get(roomID)
	if !ok {
		return StateSnapshot{}, domain.ErrRoomNotFound
	}
	return Snapshot(state), nil
}

// GetState returns the current snapshot of the host's room. A host bound to
// one room cannot read another, credential or not.
func (g *GameService) GetState(conn *ConnContext, roomID string) (StateSnapshot, error) {
	if roomID == "" {
		roomID = conn.RoomID
	}
	if roomID == "" {
		return StateSnapshot{}, fmt.Errorf("%w: roomId required", domain.ErrValidation)
	}
	if !g.limiter.AllowHostGetState(conn.RemoteAddr) {
		return StateSnapshot{}, domain.ErrRateLimited
	}
	if conn.Role != RoleHost || conn.RoomID != roomID {
		return StateSnapshot{}, domain.ErrUnauthorized
	}
	state, ok := g.rooms.Get(roomID)
	if !ok {
		return StateSnapshot{}, domain.ErrRoomNotFound
	}
	return Snapshot(state), nil
}

// Start begins the game: lobby to first question.
func (g *GameService) Start(conn *ConnContext) (StateSnapshot, error) {
	if err := g.requireHost(conn); err != nil {
		return StateSnapshot{}, err
	}
	next, ok := g.rooms.Update(conn.RoomID, func(s domain.GameState) domain.GameState {
		return game.Transition(s, game.EventStartGame, g.clock())
	})
	if !ok {
		return StateSnapshot{}, domain.ErrRoomNotFound
	}
	snap := Snapshot(next)
	g.notify.BroadcastState(conn.RoomID, snap)
	return snap, nil
}

// Next advances the room. Leaving the Question phase settles the question
// first, inside the same critical section, so scoring runs exactly once per
// question and no submission arriving after the transition can slip in.
func (g *GameService) Next(conn *ConnContext) (StateSnapshot, error) {
	snap, err := g.advance(conn, game.EventNext)
	if err != nil {
		return StateSnapshot{}, err
	}
	// The host UI drives on this echo even when room delivery is lagging.
	g.notify.SendState(conn.ConnID, snap)
	return snap, nil
}

// StopTimer is the host's early reveal: identical scoring-then-transition
// sequence as Next from the Question phase.
func (g *GameService) StopTimer(conn *ConnContext) (StateSnapshot, error) {
	return g.advance(conn, game.EventStopTimer)
}

func (g *GameService) advance(conn *ConnContext, ev game.Event) (StateSnapshot, error) {
	if err := g.requireHost(conn); err != nil {
		return StateSnapshot{}, err
	}
	next, ok := g.rooms.Update(conn.RoomID, func(s domain.GameState) domain.GameState {
		// Score is additive, so it must run only for events that actually
		// leave the Question phase; anything else transitions as a no-op
		// without settling.
		if s.Type == domain.StateQuestion && (ev == game.EventNext || ev == game.EventStopTimer) {
			s = game.Score(s)
		}
		return game.Transition(s, ev, g.clock())
	})
	if !ok {
		return StateSnapshot{}, domain.ErrRoomNotFound
	}
	if next.Type == domain.StateEnd {
		go g.history.Export(next)
	}
	snap := Snapshot(next)
	g.notify.BroadcastState(conn.RoomID, snap)
	return snap, nil
}

// ShowLeaderboard jumps from reveal to the scoreboard without advancing.
func (g *GameService) ShowLeaderboard(conn *ConnContext) (StateSnapshot, error) {
	if err := g.requireHost(conn); err != nil {
		return StateSnapshot{}, err
	}
	next, ok := g.rooms.Update(conn.RoomID, func(s domain.GameState) domain.GameState {
		return game.Transition(s, game.EventShowLeaderboard, g.clock())
	})
	if !ok {
		return StateSnapshot{}, domain.ErrRoomNotFound
	}
	snap := Snapshot(next)
	g.notify.BroadcastState(conn.RoomID, snap)
	return snap, nil
}

// EndGame force-finishes the game from the scoreboard.
func (g *GameService) EndGame(conn *ConnContext) (StateSnapshot, error) {
	return g.advance(conn, game.EventEndGame)
}

// OverrideScore grants a player one extra point, the host's manual correction
// for answers the engine judged wrong.
func (g *GameService) OverrideScore(conn *ConnContext, playerID, questionID string) (StateSnapshot, error) {
	if err := g.requireHost(conn); err != nil {
		return StateSnapshot{}, err
	}
	if playerID == "" || questionID == "" {
		return StateSnapshot{}, fmt.Errorf("%w: playerId and questionId required", domain.ErrValidation)
	}
	var updateErr error
	next, ok := g.rooms.Update(conn.RoomID, func(s domain.GameState) domain.GameState {
		player, ok := s.Players[playerID]
		if !ok {
			updateErr = domain.ErrPlayerNotFound
			return s
		}
		players := s.ClonePlayers()
		player.Score++
		players[playerID] = player
		s.Players = players
		return s
	})
	if !ok {
		return StateSnapshot{}, domain.ErrRoomNotFound
	}
	if updateErr != nil {
		return StateSnapshot{}, updateErr
	}
	snap := Snapshot(next)
	g.notify.BroadcastState(conn.RoomID, snap)
	return snap, nil
}

// SubmitAnswer admits a player's answer for the current question. Admission
// is the only dedup point: one submission per (player, question), Question
// phase only, rejected with a distinct error rather than silently dropped.
func (g *GameService) SubmitAnswer(conn *ConnContext, questionID string, answerIndex *int, answerText *string) (StateSnapshot, error) {
	if conn.RoomID == "" || conn.PlayerID == "" {
		return StateSnapshot{}, domain.ErrNotRegistered
	}
	if questionID == "" {
		return StateSnapshot{}, fmt.Errorf("%w: questionId required", domain.ErrValidation)
	}

	var admitErr error
	next, ok := g.rooms.Update(conn.RoomID, func(s domain.GameState) domain.GameState {
		if s.Type != domain.StateQuestion {
			admitErr = domain.ErrNotAcceptingAnswers
			return s
		}
		if _, dup := s.SubmissionFor(conn.PlayerID, questionID); dup {
			admitErr = domain.ErrAlreadySubmitted
			return s
		}
		submissions := make([]domain.AnswerSubmission, len(s.Submissions), len(s.Submissions)+1)
		copy(submissions, s.Submissions)
		s.Submissions = append(submissions, domain.AnswerSubmission{
			PlayerID:    conn.PlayerID,
			QuestionID:  questionID,
			AnswerIndex: answerIndex,
			AnswerText:  answerText,
			SubmittedAt: g.clock().UnixMilli(),
		})
		return s
	})
	if !ok {
		return StateSnapshot{}, domain.ErrRoomNotFound
	}
	if admitErr != nil {
		return StateSnapshot{}, admitErr
	}

	snap := Snapshot(next)
	g.notify.BroadcastRoom(conn.RoomID, snap)
	g.notify.BroadcastState(conn.RoomID, snap)
	g.notify.SendRoom(conn.ConnID, snap)
	return snap, nil
}

// Disconnect clears the player's connection binding but keeps the player and
// its score, so the same playerID can rejoin on a new connection. The
// connection's own bindings die with the transport.
func (g *GameService) Disconnect(conn *ConnContext) {
	if conn.Role != RolePlayer || conn.RoomID == "" || conn.PlayerID == "" {
		return
	}
	next, ok := g.rooms.Update(conn.RoomID, func(s domain.GameState) domain.GameState {
		player, ok := s.Players[conn.PlayerID]
		if !ok || player.ConnID != conn.ConnID {
			return s
		}
		players := s.ClonePlayers()
		player.ConnID = ""
		players[conn.PlayerID] = player
		s.Players = players
		return s
	})
	if !ok {
		return
	}
	g.notify.BroadcastRoom(conn.RoomID, Snapshot(next))
}

func (g *GameService) requireHost(conn *ConnContext) error {
	if conn.Role != RoleHost || conn.RoomID == "" {
		return domain.ErrUnauthorized
	}
	return nil
}

func (g *GameService) authorizeHostCredential(conn *ConnContext, password, credential, action string) error {
	if g.creds.IsAuthenticated(credential) {
		return nil
	}
	if password != "" && g.creds.VerifyPassword(password) {
		return nil
	}
	log.Printf("auth: %s verification failed from %s", action, conn.RemoteAddr)
	return domain.ErrInvalidPassword
}
