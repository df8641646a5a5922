// internal/protocol/protocol.go
//
// Wire contract between clients and the room server. Clients send terse
// intent packets ({method, params}); the server answers every mutation
// with a single "state" packet carrying the sender's personal view plus
// the room-wide projection.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Intent method names accepted from clients.
const (
	MethodChangeNickname = "changeNickname"
	MethodKickPlayer     = "kickPlayer"
	MethodChangeTime     = "changeTime"
	MethodUpdatePack     = "updatePack"
	MethodStartGame      = "startGame"
	MethodCreateVote     = "createVote"
	MethodVote           = "vote"
	MethodGuessLocation  = "guessLocation"
	MethodPlayAgain      = "playAgain"

	MethodState = "state"
)

// Close reasons carried in the close frame of a forcibly terminated
// connection. Clients branch their messaging on these.
const (
	CloseReasonKicked     = "KICK"
	CloseReasonRoomClosed = "ROOM_CLOSED"
)

// ErrUnknownMethod is returned by DecodeIntent for methods outside the
// known set. Such packets are dropped by the caller.
var ErrUnknownMethod = errors.New("unknown method")

// ClientPacket is the raw envelope of a client message. Params stays
// undecoded until the method is known.
type ClientPacket struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// Intent is the decoded form of a client packet: exactly one of the
// concrete intent types below.
type Intent interface {
	isIntent()
}

type ChangeNickname struct {
	Nickname string `json:"nickname"`
}

type KickPlayer struct {
	Discriminator int `json:"discriminator"`
}

type ChangeTime struct {
	Time int `json:"time"`
}

type UpdatePack struct {
	ID      int  `json:"id"`
	Enabled bool `json:"enabled"`
}

type StartGame struct{}

type CreateVote struct {
	Target int `json:"target"`
}

type Vote struct {
	Agreement bool `json:"agreement"`
}

type GuessLocation struct {
	Guess string `json:"guess"`
}

type PlayAgain struct{}

func (ChangeNickname) isIntent() {}
func (KickPlayer) isIntent()     {}
func (ChangeTime) isIntent()     {}
func (UpdatePack) isIntent()     {}
func (StartGame) isIntent()      {}
func (CreateVote) isIntent()     {}
func (Vote) isIntent()           {}
func (GuessLocation) isIntent()  {}
func (PlayAgain) isIntent()      {}

// DecodeIntent parses a raw client message into one of the known
// intents. Any failure means the packet is dropped, never answered.
func DecodeIntent(data []byte) (Intent, error) {
	var pkt ClientPacket
	if err := json.Unmarshal(data, &pkt); err != nil {
		return nil, err
	}
	params := pkt.Params
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}

	switch pkt.Method {
	case MethodChangeNickname:
		var in ChangeNickname
		if err := json.Unmarshal(params, &in); err != nil {
			return nil, err
		}
		return in, nil
	case MethodKickPlayer:
		var in KickPlayer
		if err := json.Unmarshal(params, &in); err != nil {
			return nil, err
		}
		return in, nil
	case MethodChangeTime:
		var in ChangeTime
		if err := json.Unmarshal(params, &in); err != nil {
			return nil, err
		}
		return in, nil
	case MethodUpdatePack:
		var in UpdatePack
		if err := json.Unmarshal(params, &in); err != nil {
			return nil, err
		}
		return in, nil
	case MethodStartGame:
		return StartGame{}, nil
	case MethodCreateVote:
		var in CreateVote
		if err := json.Unmarshal(params, &in); err != nil {
			return nil, err
		}
		return in, nil
	case MethodVote:
		var in Vote
		if err := json.Unmarshal(params, &in); err != nil {
			return nil, err
		}
		return in, nil
	case MethodGuessLocation:
		var in GuessLocation
		if err := json.Unmarshal(params, &in); err != nil {
			return nil, err
		}
		return in, nil
	case MethodPlayAgain:
		return PlayAgain{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, pkt.Method)
	}
}

// StatePlayer is the public projection of a player: what every room
// member may see about everyone else. It is a snapshot, never a live
// reference.
type StatePlayer struct {
	Nickname      string `json:"nickname"`
	Discriminator int    `json:"discriminator"`
	IsHost        bool   `json:"isHost"`
	Score         int    `json:"score"`
}

// LocalPlayer is the recipient's own view, including round-scoped
// secrets. The optional fields are present only while a round exists.
type LocalPlayer struct {
	PlayerID       string  `json:"playerID"`
	Discriminator  int     `json:"discriminator"`
	Nickname       string  `json:"nickname"`
	IsHost         bool    `json:"isHost"`
	Score          int     `json:"score"`
	IsSpy          *bool   `json:"isSpy,omitempty"`
	Role           *string `json:"role,omitempty"`
	HasCreatedVote *bool   `json:"hasCreatedVote,omitempty"`
	HasVoted       bool    `json:"hasVoted"`
}

// Ballot is one voter's recorded agreement in an open vote.
type Ballot struct {
	Player    StatePlayer `json:"player"`
	Agreement bool        `json:"agreement"`
}

// VoteState describes the currently open vote, if any.
type VoteState struct {
	Initiator     StatePlayer `json:"initiator"`
	Target        StatePlayer `json:"target"`
	Votes         []Ballot    `json:"votes"`
	VoteCompleted bool        `json:"voteCompleted"`
}

// ScoreDelta records one player's score change for a finished round.
// Zero deltas are included so clients can render a complete table.
type ScoreDelta struct {
	Player     StatePlayer `json:"player"`
	AddedScore int         `json:"addedScore"`
}

// EndGameState is the round-resolution record. RevealedSpy is absent in
// the all-spy variant, where there is no single spy to reveal.
type EndGameState struct {
	RevealedSpy     *StatePlayer `json:"revealedSpy,omitempty"`
	Location        string       `json:"location"`
	SpySchool       bool         `json:"spySchool"`
	GuessedLocation *string      `json:"guessedLocation,omitempty"`
	NewScores       []ScoreDelta `json:"newScores"`
}

// PackSummary describes a word pack for the lobby UI, without its data.
type PackSummary struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	LocationCount int    `json:"locationCount"`
	RoleCount     int    `json:"roleCount"`
	Enabled       bool   `json:"enabled"`
}

// RoomState is the room-wide projection, recomputed per recipient:
// GuessSelection is present only for spies, CurrentLocation only for
// non-spies.
type RoomState struct {
	Players           []StatePlayer `json:"players"`
	Started           bool          `json:"started"`
	IsStarting        bool          `json:"isStarting"`
	TimerLength       int           `json:"timerLength"`
	Packs             []PackSummary `json:"packs"`
	GuessSelection    []string      `json:"guessSelection,omitempty"`
	CurrentLocation   string        `json:"currentLocation,omitempty"`
	CurrentSuggestion string        `json:"currentSuggestion,omitempty"`
	CurrentVote       *VoteState    `json:"currentVote,omitempty"`
	EndGame           *EndGameState `json:"endGame,omitempty"`
}

// State is the payload of a "state" packet.
type State struct {
	Me        LocalPlayer `json:"me"`
	RoomState RoomState   `json:"roomState"`
}

// ServerPacket is the envelope of every server-to-client message.
type ServerPacket struct {
	Method string `json:"method"`
	Params State  `json:"params"`
}

// NewStatePacket assembles the authoritative state message for one
// recipient.
func NewStatePacket(me LocalPlayer, room RoomState) ServerPacket {
	return ServerPacket{Method: MethodState, Params: State{Me: me, RoomState: room}}
}
