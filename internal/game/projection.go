// internal/game/projection.go
package game

import (
	"github.com/jason-s-yu/qspy/internal/protocol"
)

// LocalView builds the recipient's personal view. Round-scoped fields
// are present only while a round exists, so a lobby client cannot
// distinguish "not spy" from "no round".
func (r *Room) LocalView(p *Player) protocol.LocalPlayer {
	me := protocol.LocalPlayer{
		PlayerID:      p.ID.String(),
		Discriminator: p.Discriminator,
		Nickname:      p.Nickname,
		IsHost:        p.IsHost,
		Score:         p.Score,
		HasVoted:      p.HasVoted,
	}
	if r.Started {
		isSpy := p.IsSpy
		me.IsSpy = &isSpy
		hasCreated := p.HasCreatedVote
		me.HasCreatedVote = &hasCreated
		if p.Role != "" {
			role := p.Role
			me.Role = &role
		}
	}
	return me
}

// StateFor builds the room-wide projection for one recipient. Spies see
// the guess selection but never the location; everyone else sees the
// location. Scene fields stay hidden during the starting grace window
// even though the scene is already computed.
func (r *Room) StateFor(p *Player) protocol.RoomState {
	state := protocol.RoomState{
		Players:     make([]protocol.StatePlayer, 0, len(r.players)),
		Started:     r.Started,
		IsStarting:  r.IsStarting,
		TimerLength: r.TimerLength,
		Packs:       make([]protocol.PackSummary, 0, len(r.packs)),
		CurrentVote: r.CurrentVote,
		EndGame:     r.EndGame,
	}

	for _, other := range r.players {
		state.Players = append(state.Players, snapshot(other))
	}

	for i, rp := range r.packs {
		state.Packs = append(state.Packs, protocol.PackSummary{
			ID:            i,
			Name:          rp.pack.Name,
			Description:   rp.pack.Description,
			LocationCount: rp.pack.LocationCount(),
			RoleCount:     rp.pack.RoleCount(),
			Enabled:       rp.enabled,
		})
	}

	if r.Started {
		if p.IsSpy {
			state.GuessSelection = r.guessSelection
		} else {
			state.CurrentLocation = r.currentLocation
		}
		state.CurrentSuggestion = r.suggestions[p.Discriminator]
	}

	return state
}
