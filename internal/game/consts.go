// internal/game/consts.go
package game

import "time"

const (
	// MaxRoomMembers bounds both the connection count per room and the
	// discriminator range.
	MaxRoomMembers = 20

	// MaxRooms caps the directory.
	MaxRooms = 1000

	// MinPlayersToStart is the floor for startGame and for keeping an
	// active round alive after a departure.
	MinPlayersToStart = 3

	// Round timer bounds, in seconds.
	DefaultTimerLength = 480
	MinTimerLength     = 300
	MaxTimerLength     = 600

	// GuessSelectionSize bounds the candidate list shown to the spy.
	GuessSelectionSize = 30

	defaultStartGrace         = 5 * time.Second
	defaultVoteRevealDelay    = 3 * time.Second
	defaultSuggestionInterval = 60 * time.Second

	pruneInterval = 3 * time.Minute
	pruneAge      = 12 * time.Minute

	writeTimeout = 3 * time.Second

	// outboundBuffer is the per-connection frame queue depth. Overflow
	// sheds the oldest frame; every frame is a full snapshot.
	outboundBuffer = 32
)
