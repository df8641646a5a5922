// internal/game/session.go
package game

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/qspy/internal/auth"
	"github.com/jason-s-yu/qspy/internal/metrics"
	"github.com/jason-s-yu/qspy/internal/protocol"
	"github.com/jason-s-yu/qspy/internal/words"
)

// Join rejection causes. The websocket handler maps these onto close
// statuses the client can distinguish.
var (
	ErrRoomStarted = errors.New("room has already started")
	ErrRoomFull    = errors.New("room is full")
	ErrRoomClosed  = errors.New("room is closed")
)

// client pairs a connection with its outbound frame queue. One writer
// goroutine per client drains the queue for the life of the
// connection, so frames reach the wire in the order they were queued.
type client struct {
	conn     Conn
	outbound chan []byte
}

// Session owns one room end to end: the live connection set, the Room
// state machine, and every timer that can mutate it. All mutation is
// serialized behind mu; a fired timer re-enters through the same lock
// exactly like a client intent. Sends never happen while the lock is
// held, so a slow client cannot stall the room.
type Session struct {
	name         string
	id           string
	passwordHash string

	mu          sync.Mutex
	conns       map[uuid.UUID]*client
	clientCount int
	lastSeen    time.Time
	closed      bool

	room *Room

	startTimer       *time.Timer
	gameTimer        *time.Timer
	revealTimer      *time.Timer
	suggestionTicker *time.Ticker
	suggestionDone   chan struct{}

	// Overridable in tests; production uses the defaults.
	startGrace         time.Duration
	voteRevealDelay    time.Duration
	suggestionInterval time.Duration

	log *logrus.Logger
}

// NewSession builds a session around a fresh lobby-state Room.
func NewSession(name, id, passwordHash string, packs []*words.Pack, suggestions []string, log *logrus.Logger) *Session {
	return &Session{
		name:               name,
		id:                 id,
		passwordHash:       passwordHash,
		conns:              make(map[uuid.UUID]*client),
		lastSeen:           time.Now(),
		room:               NewRoom(packs, suggestions),
		startGrace:         defaultStartGrace,
		voteRevealDelay:    defaultVoteRevealDelay,
		suggestionInterval: defaultSuggestionInterval,
		log:                log,
	}
}

func (s *Session) Name() string { return s.name }
func (s *Session) ID() string   { return s.id }

// CheckPassword verifies a join attempt's password against the room's
// hash.
func (s *Session) CheckPassword(password string) bool {
	ok, err := auth.VerifyRoomPassword(password, s.passwordHash)
	if err != nil {
		s.log.Warnf("room %s: bad password hash: %v", s.id, err)
		return false
	}
	return ok
}

// HasStarted reports whether a round is active or counting down.
func (s *Session) HasStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room.Started || s.room.IsStarting
}

// ClientCount returns the number of live connections.
func (s *Session) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientCount
}

// LastSeen returns the room's last-activity timestamp.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Join registers a connection and adds its player to the room. The
// first joiner becomes host. Gates are re-checked here under the lock:
// the HTTP pre-checks are advisory and can race.
func (s *Session) Join(conn Conn, nickname string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return uuid.Nil, ErrRoomClosed
	}
	if s.room.Started || s.room.IsStarting {
		return uuid.Nil, ErrRoomStarted
	}
	if s.clientCount >= MaxRoomMembers {
		return uuid.Nil, ErrRoomFull
	}

	playerID := uuid.New()
	if _, err := s.room.AddPlayer(playerID, strings.TrimSpace(nickname), s.clientCount == 0); err != nil {
		return uuid.Nil, err
	}
	cl := &client{conn: conn, outbound: make(chan []byte, outboundBuffer)}
	s.conns[playerID] = cl
	s.clientCount++
	s.lastSeen = time.Now()
	metrics.NewClient()
	go s.writeLoop(playerID, cl)

	s.broadcastLocked()
	return playerID, nil
}

// Leave handles a disconnect: the connection and player are removed,
// round consequences applied, timers reconciled, and everyone informed.
func (s *Session) Leave(playerID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cl, ok := s.conns[playerID]
	if !ok {
		return
	}
	close(cl.outbound)
	delete(s.conns, playerID)
	s.clientCount--
	s.room.RemovePlayer(playerID)
	s.syncTimersLocked()
	metrics.RemoveClient()

	s.broadcastLocked()
}

// Touch refreshes the last-activity timestamp.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// HandleIntent validates and executes one client intent under the room
// lock, broadcasting afterwards. An intent whose precondition fails is
// dropped silently: stale clients race the server all the time, and a
// rejected action simply never shows up in the next state message.
func (s *Session) HandleIntent(playerID uuid.UUID, intent protocol.Intent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	sender, ok := s.room.PlayerByID(playerID)
	if !ok {
		return
	}
	s.lastSeen = time.Now()

	switch in := intent.(type) {
	case protocol.ChangeNickname:
		nick := strings.TrimSpace(in.Nickname)
		if nick == "" || utf8.RuneCountInString(nick) > protocol.MaxNicknameLength {
			return
		}
		if nick == sender.Nickname {
			return
		}
		s.room.ChangeNickname(playerID, nick)

	case protocol.KickPlayer:
		if !sender.IsHost || in.Discriminator == sender.Discriminator {
			return
		}
		target, ok := s.room.PlayerByDiscriminator(in.Discriminator)
		if !ok {
			return
		}
		if cl, ok := s.conns[target.ID]; ok {
			go cl.conn.Close(protocol.CloseReasonKicked)
		}
		// Removal and the broadcast happen on the disconnect path once
		// the close lands.
		return

	case protocol.ChangeTime:
		if !sender.IsHost || s.room.Started || s.room.IsStarting {
			return
		}
		if !s.room.SetTimerLength(in.Time) {
			return
		}

	case protocol.UpdatePack:
		if !sender.IsHost || s.room.Started || s.room.IsStarting {
			return
		}
		if !s.room.UpdatePack(in.ID, in.Enabled) {
			return
		}

	case protocol.StartGame:
		if !sender.IsHost {
			return
		}
		if s.room.PlayerCount() < MinPlayersToStart {
			return
		}
		if s.room.Started || s.room.IsStarting {
			return
		}
		if err := s.room.BeginStarting(); err != nil {
			s.log.Errorf("room %s: cannot start: %v", s.id, err)
			return
		}
		s.startTimer = time.AfterFunc(s.startGrace, s.onStartGrace)

	case protocol.CreateVote:
		if !s.room.Started || s.room.EndGame != nil || s.room.CurrentVote != nil {
			return
		}
		if sender.HasCreatedVote {
			return
		}
		target, ok := s.room.PlayerByDiscriminator(in.Target)
		if !ok {
			return
		}
		s.room.CreateVote(sender, target)

	case protocol.Vote:
		vote := s.room.CurrentVote
		if !s.room.Started || s.room.EndGame != nil || vote == nil || vote.VoteCompleted {
			return
		}
		if vote.Initiator.Discriminator == sender.Discriminator {
			return
		}
		if vote.Target.Discriminator == sender.Discriminator {
			return
		}
		if s.room.HasVoted(sender) {
			return
		}
		s.room.RecordVote(sender, in.Agreement)
		if s.room.EvaluateVote() {
			// Hold the result on screen briefly before resolving.
			s.revealTimer = time.AfterFunc(s.voteRevealDelay, s.onVoteReveal)
		}

	case protocol.GuessLocation:
		if !s.room.Started || s.room.CurrentVote != nil || s.room.EndGame != nil {
			return
		}
		if !sender.IsSpy {
			return
		}
		s.room.HandleLocationGuess(sender, in.Guess)
		s.stopRoundTimersLocked()
		metrics.Publish(metrics.EventRoundEnded, s.id)

	case protocol.PlayAgain:
		if !s.room.Started || s.room.EndGame == nil || !sender.IsHost {
			return
		}
		s.stopRoundTimersLocked()
		s.room.Reset()

	default:
		return
	}

	s.broadcastLocked()
}

// onStartGrace fires when the starting countdown elapses: the hidden
// scene becomes live and the round-duration and suggestion clocks
// start.
func (s *Session) onStartGrace() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !s.room.IsStarting {
		return
	}
	s.startTimer = nil
	s.room.StartRound()
	s.gameTimer = time.AfterFunc(time.Duration(s.room.TimerLength)*time.Second, s.onRoundExpired)
	s.startSuggestionLoopLocked()
	metrics.Publish(metrics.EventRoundStarted, s.id)

	s.broadcastLocked()
}

// onRoundExpired fires when the round timer runs out unresolved.
func (s *Session) onRoundExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !s.room.Started || s.room.EndGame != nil {
		return
	}
	s.gameTimer = nil
	s.room.EndRoundViaTimer()
	s.stopRoundTimersLocked()
	metrics.Publish(metrics.EventRoundEnded, s.id)

	s.broadcastLocked()
}

// onVoteReveal fires after the reveal delay of a completed vote. The
// round may have resolved in the meantime (round timer expiry, a spy
// disconnect) or the vote been discarded, in which case this is a
// no-op: a round resolves exactly once.
func (s *Session) onVoteReveal() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.revealTimer = nil
	if s.closed || s.room.EndGame != nil || s.room.CurrentVote == nil || !s.room.CurrentVote.VoteCompleted {
		return
	}
	s.room.EndVote()
	s.syncTimersLocked()
	if s.room.EndGame != nil {
		metrics.Publish(metrics.EventRoundEnded, s.id)
	}

	s.broadcastLocked()
}

// Cancel force-closes the session: every client is disconnected with
// the room-closed reason and all timers die. Used by directory pruning.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.stopAllTimersLocked()

	for _, cl := range s.conns {
		metrics.RemoveClient()
		close(cl.outbound)
		go cl.conn.Close(protocol.CloseReasonRoomClosed)
	}
	s.conns = make(map[uuid.UUID]*client)
	s.clientCount = 0
}

// syncTimersLocked reconciles timers with the room's state after a
// mutation that may have cancelled a start, ended a round, or reset.
func (s *Session) syncTimersLocked() {
	if !s.room.IsStarting && s.startTimer != nil {
		s.startTimer.Stop()
		s.startTimer = nil
	}
	if !s.room.Started || s.room.EndGame != nil {
		s.stopRoundTimersLocked()
	}
}

func (s *Session) stopRoundTimersLocked() {
	if s.gameTimer != nil {
		s.gameTimer.Stop()
		s.gameTimer = nil
	}
	if s.revealTimer != nil {
		s.revealTimer.Stop()
		s.revealTimer = nil
	}
	if s.suggestionTicker != nil {
		s.suggestionTicker.Stop()
		close(s.suggestionDone)
		s.suggestionTicker = nil
		s.suggestionDone = nil
	}
}

func (s *Session) stopAllTimersLocked() {
	if s.startTimer != nil {
		s.startTimer.Stop()
		s.startTimer = nil
	}
	s.stopRoundTimersLocked()
}

// startSuggestionLoopLocked rotates the per-player prompts on a fixed
// cadence while the round lives.
func (s *Session) startSuggestionLoopLocked() {
	ticker := time.NewTicker(s.suggestionInterval)
	done := make(chan struct{})
	s.suggestionTicker = ticker
	s.suggestionDone = done

	go func() {
		for {
			select {
			case <-ticker.C:
				s.mu.Lock()
				if s.closed || !s.room.Started || s.room.EndGame != nil {
					s.mu.Unlock()
					return
				}
				s.room.RotateSuggestions()
				s.broadcastLocked()
				s.mu.Unlock()
			case <-done:
				return
			}
		}
	}()
}

// broadcastLocked serializes a per-recipient projection for every
// connection under the lock and queues it on that connection's
// outbound channel. Marshalling happens here so the bytes cannot
// observe a later mutation; the network writes happen on the
// per-connection writer, which preserves queue order, so no client
// ever sees an older snapshot after a newer one. Enqueues only happen
// under the lock, which also serializes them against the close in
// Leave and Cancel.
func (s *Session) broadcastLocked() {
	for playerID, cl := range s.conns {
		p, ok := s.room.PlayerByID(playerID)
		if !ok {
			continue
		}
		pkt := protocol.NewStatePacket(s.room.LocalView(p), s.room.StateFor(p))
		data, err := json.Marshal(pkt)
		if err != nil {
			s.log.Errorf("room %s: marshal state for %s: %v", s.id, playerID, err)
			continue
		}
		select {
		case cl.outbound <- data:
		default:
			// Queue full: shed the oldest frame. Every frame is a full
			// snapshot, so only the newest matters.
			select {
			case <-cl.outbound:
			default:
			}
			select {
			case cl.outbound <- data:
			default:
			}
		}
	}
}

// writeLoop drains one connection's outbound queue until Leave or
// Cancel closes it.
func (s *Session) writeLoop(playerID uuid.UUID, cl *client) {
	for data := range cl.outbound {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := cl.conn.Write(ctx, data)
		cancel()
		if err != nil {
			// The read loop will notice the broken pipe and run the
			// disconnect path; nothing to do here but log.
			s.log.Debugf("room %s: write to %s: %v", s.id, playerID, err)
		}
	}
}
