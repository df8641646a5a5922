// internal/game/room.go
package game

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/jason-s-yu/qspy/internal/protocol"
	"github.com/jason-s-yu/qspy/internal/words"
)

// ErrNoDiscriminator means the room is at capacity and no discriminator
// in [1, MaxRoomMembers] is free. Callers gate on capacity before
// adding, so hitting this indicates a bookkeeping bug.
var ErrNoDiscriminator = errors.New("no free discriminator")

// ErrNoPackEnabled means a scene was requested while every pack is
// disabled. The pack-toggle path keeps at least one enabled, so this
// should be unreachable.
var ErrNoPackEnabled = errors.New("no word pack enabled")

// Player is the authoritative per-player record, owned by the Room and
// mutated only while holding the owning session's lock. Snapshots cross
// the broadcast boundary, never this struct.
type Player struct {
	ID            uuid.UUID
	Discriminator int
	Nickname      string
	IsHost        bool
	Score         int

	// Round-scoped fields, cleared on Reset.
	IsSpy          bool
	Role           string
	HasCreatedVote bool
	HasVoted       bool
}

type roomPack struct {
	pack    *words.Pack
	enabled bool
}

// Room is the hidden-role game state machine for one session: players,
// packs, the current scene, vote, end-game record, and the suggestion
// cycle. It holds no locks, timers, or connections; the Session owns
// those and serializes every call in here.
type Room struct {
	players        map[uuid.UUID]*Player
	discriminators map[int]*Player

	packs []*roomPack

	Started     bool
	IsStarting  bool
	TimerLength int

	spy              *Player
	spySchool        bool
	currentLocation  string
	previousLocation string
	guessSelection   []string

	CurrentVote      *protocol.VoteState
	voteParticipants map[int]bool

	EndGame *protocol.EndGameState

	suggestionSource []string
	suggestionPool   []string
	suggestionCursor int
	suggestions      map[int]string

	rng *rand.Rand
}

// NewRoom builds a lobby-state room over the shared immutable packs.
// The first pack starts enabled, the rest disabled.
func NewRoom(packs []*words.Pack, suggestions []string) *Room {
	r := &Room{
		players:          make(map[uuid.UUID]*Player),
		discriminators:   make(map[int]*Player),
		TimerLength:      DefaultTimerLength,
		suggestionSource: suggestions,
		rng:              rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for i, p := range packs {
		r.packs = append(r.packs, &roomPack{pack: p, enabled: i == 0})
	}
	return r
}

// AddPlayer registers a new player, de-duplicating the nickname and
// allocating the smallest free discriminator.
func (r *Room) AddPlayer(id uuid.UUID, nickname string, isHost bool) (*Player, error) {
	disc, err := r.allocateDiscriminator()
	if err != nil {
		return nil, err
	}
	p := &Player{
		ID:            id,
		Discriminator: disc,
		Nickname:      r.safeNickname(nickname),
		IsHost:        isHost,
	}
	r.players[id] = p
	r.discriminators[disc] = p
	return p, nil
}

// ChangeNickname renames a player, re-running de-duplication.
func (r *Room) ChangeNickname(id uuid.UUID, nickname string) {
	p, ok := r.players[id]
	if !ok {
		return
	}
	p.Nickname = r.safeNickname(nickname)
}

// RemovePlayer handles a departure, in or out of a round. While a round
// is active: a departing spy ends the round with the spy revealed and
// no score changes (the secret-holder is gone, the round can never
// resolve); dropping below the player floor resets to lobby. A pending
// start is always cancelled, and its prepared scene discarded so it
// cannot leak into the lobby. If the departure completes an open vote,
// the vote resolves immediately (no reveal delay: a disconnect is not a
// ballot worth watching land).
func (r *Room) RemovePlayer(id uuid.UUID) {
	p, ok := r.players[id]
	if !ok {
		return
	}

	if r.IsStarting {
		r.IsStarting = false
		r.clearScene()
	}

	delete(r.players, id)
	delete(r.discriminators, p.Discriminator)

	if r.Started {
		if p.IsSpy && !r.spySchool {
			if r.EndGame == nil {
				r.EndGame = &protocol.EndGameState{
					RevealedSpy: snapshotPtr(r.spy),
					Location:    r.currentLocation,
					NewScores:   []protocol.ScoreDelta{},
				}
			}
			r.clearVote()
		} else if len(r.players) < MinPlayersToStart {
			r.Reset()
		}
	}

	if r.CurrentVote != nil {
		if r.EndGame != nil {
			// The round already resolved; the vote is moot.
			r.clearVote()
		} else {
			r.dropBallot(p.Discriminator)
			if r.EvaluateVote() {
				r.EndVote()
			}
		}
	}

	if p.IsHost && len(r.players) > 0 {
		r.randomPlayer().IsHost = true
	}
}

// PlayerByID returns the live record for a connection identity.
func (r *Room) PlayerByID(id uuid.UUID) (*Player, bool) {
	p, ok := r.players[id]
	return p, ok
}

// PlayerByDiscriminator resolves a public discriminator.
func (r *Room) PlayerByDiscriminator(d int) (*Player, bool) {
	p, ok := r.discriminators[d]
	return p, ok
}

func (r *Room) PlayerCount() int {
	return len(r.players)
}

// SetTimerLength updates the round length, clamped to [300, 600]
// seconds. Returns false (no change) for out-of-range values.
func (r *Room) SetTimerLength(seconds int) bool {
	if seconds < MinTimerLength || seconds > MaxTimerLength {
		return false
	}
	r.TimerLength = seconds
	return true
}

// UpdatePack toggles a pack. The last enabled pack cannot be disabled.
// Returns false when nothing changed.
func (r *Room) UpdatePack(id int, enabled bool) bool {
	if id < 0 || id >= len(r.packs) {
		return false
	}
	rp := r.packs[id]
	if rp.enabled == enabled {
		return false
	}
	if !enabled && r.enabledPackCount() == 1 {
		return false
	}
	rp.enabled = enabled
	return true
}

func (r *Room) enabledPackCount() int {
	n := 0
	for _, rp := range r.packs {
		if rp.enabled {
			n++
		}
	}
	return n
}

// BeginStarting enters the starting grace window: the scene is computed
// now but stays hidden until StartRound flips Started.
func (r *Room) BeginStarting() error {
	if err := r.createScene(); err != nil {
		return err
	}
	r.initSuggestions()
	r.IsStarting = true
	return nil
}

// StartRound transitions starting -> active.
func (r *Room) StartRound() {
	r.IsStarting = false
	r.Started = true
}

// createScene picks a location, designates the spy (or everyone, for
// the all-spy location), assigns roles, and builds the spy's guess
// selection.
func (r *Room) createScene() error {
	var pairs []words.InfoPair
	for _, rp := range r.packs {
		if rp.enabled {
			pairs = append(pairs, rp.pack.Pairs...)
		}
	}
	if len(pairs) == 0 {
		return ErrNoPackEnabled
	}

	// Bias away from an immediate repeat of last round's location.
	candidates := pairs
	if r.previousLocation != "" {
		filtered := make([]words.InfoPair, 0, len(pairs))
		for _, pair := range pairs {
			if pair.Location != r.previousLocation {
				filtered = append(filtered, pair)
			}
		}
		if len(filtered) > 0 {
			candidates = filtered
		}
	}
	chosen := candidates[r.rng.Intn(len(candidates))]
	r.currentLocation = chosen.Location

	for _, p := range r.players {
		p.IsSpy = false
		p.Role = ""
		p.HasCreatedVote = false
		p.HasVoted = false
	}

	if chosen.Location == words.SpySchoolLocation {
		r.spySchool = true
		r.spy = nil
		for _, p := range r.players {
			p.IsSpy = true
		}
	} else {
		r.spySchool = false
		r.spy = r.randomPlayer()
		r.spy.IsSpy = true
		r.assignRoles(chosen.Roles)
	}

	r.guessSelection = r.buildGuessSelection()
	return nil
}

// assignRoles hands each non-spy a role from a shuffled working copy,
// refilling and reshuffling when the copy runs dry so that repeats are
// minimized when players outnumber distinct roles.
func (r *Room) assignRoles(roles []string) {
	if len(roles) == 0 {
		return
	}
	working := r.shuffledCopy(roles)
	for _, p := range r.players {
		if p.IsSpy {
			continue
		}
		if len(working) == 0 {
			working = r.shuffledCopy(roles)
		}
		p.Role = working[len(working)-1]
		working = working[:len(working)-1]
	}
}

// buildGuessSelection assembles the candidate list shown only to the
// spy. With at most 30 distinct locations across enabled packs the
// whole set ships, shuffled. Otherwise 30 other locations are sampled
// without replacement and the true location overwrites one uniformly
// random slot, so its position carries no information.
func (r *Room) buildGuessSelection() []string {
	seen := make(map[string]bool)
	var distinct []string
	for _, rp := range r.packs {
		if !rp.enabled {
			continue
		}
		for _, pair := range rp.pack.Pairs {
			if !seen[pair.Location] {
				seen[pair.Location] = true
				distinct = append(distinct, pair.Location)
			}
		}
	}

	if len(distinct) <= GuessSelectionSize {
		return r.shuffledCopy(distinct)
	}

	others := make([]string, 0, len(distinct)-1)
	for _, loc := range distinct {
		if loc != r.currentLocation {
			others = append(others, loc)
		}
	}
	selection := r.sample(others, GuessSelectionSize)
	selection[r.rng.Intn(len(selection))] = r.currentLocation
	return selection
}

// sample draws n elements without replacement via a partial
// Fisher-Yates over a copy of pool.
func (r *Room) sample(pool []string, n int) []string {
	work := make([]string, len(pool))
	copy(work, pool)
	out := make([]string, n)
	for i := 0; i < n; i++ {
		j := i + r.rng.Intn(len(work)-i)
		work[i], work[j] = work[j], work[i]
		out[i] = work[i]
	}
	return out
}

func (r *Room) shuffledCopy(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	r.rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// CreateVote opens a vote. Initiator and target are recorded as
// snapshots so later score changes cannot leak into the vote record.
func (r *Room) CreateVote(initiator, target *Player) {
	r.CurrentVote = &protocol.VoteState{
		Initiator: snapshot(initiator),
		Target:    snapshot(target),
		Votes:     []protocol.Ballot{},
	}
	r.voteParticipants = make(map[int]bool)
	initiator.HasCreatedVote = true
}

// HasVoted reports whether the player already recorded a ballot in the
// open vote.
func (r *Room) HasVoted(p *Player) bool {
	return r.voteParticipants != nil && r.voteParticipants[p.Discriminator]
}

// RecordVote appends the voter's ballot.
func (r *Room) RecordVote(voter *Player, agreement bool) {
	if r.CurrentVote == nil {
		return
	}
	r.CurrentVote.Votes = append(r.CurrentVote.Votes, protocol.Ballot{Player: snapshot(voter), Agreement: agreement})
	r.voteParticipants[voter.Discriminator] = true
	voter.HasVoted = true
}

// EvaluateVote marks the vote completed and returns true once every
// eligible voter (everyone but initiator and target) has a recorded
// ballot.
func (r *Room) EvaluateVote() bool {
	if r.CurrentVote == nil {
		return false
	}
	for _, p := range r.players {
		if p.Discriminator == r.CurrentVote.Initiator.Discriminator {
			continue
		}
		if p.Discriminator == r.CurrentVote.Target.Discriminator {
			continue
		}
		if !r.voteParticipants[p.Discriminator] {
			return false
		}
	}
	r.CurrentVote.VoteCompleted = true
	return true
}

// EndVote resolves a completed vote: unanimous agreement ends the round
// with scoring keyed on whether the target really was the spy; a single
// disagreement discards the vote and play continues.
func (r *Room) EndVote() {
	vote := r.CurrentVote
	if vote == nil {
		return
	}
	for _, b := range vote.Votes {
		if !b.Agreement {
			r.clearVote()
			return
		}
	}

	if r.spySchool {
		// No designated spy to convict: nobody wins.
		r.EndGame = &protocol.EndGameState{
			Location:  r.currentLocation,
			SpySchool: true,
			NewScores: []protocol.ScoreDelta{},
		}
		r.zeroScoresForAll()
		r.clearVote()
		return
	}

	r.EndGame = &protocol.EndGameState{
		RevealedSpy: snapshotPtr(r.spy),
		Location:    r.currentLocation,
		NewScores:   []protocol.ScoreDelta{},
	}
	if r.spy != nil && vote.Target.Discriminator == r.spy.Discriminator {
		r.scoreNonSpyVictory(vote.Initiator.Discriminator)
	} else {
		r.scoreSpyVictory()
	}
	r.clearVote()
}

// HandleLocationGuess resolves the round via the spy's guess.
func (r *Room) HandleLocationGuess(guesser *Player, guess string) {
	if r.currentLocation == "" {
		return
	}
	guessed := guess
	r.EndGame = &protocol.EndGameState{
		RevealedSpy:     snapshotPtr(r.spy),
		Location:        r.currentLocation,
		SpySchool:       r.spySchool,
		GuessedLocation: &guessed,
		NewScores:       []protocol.ScoreDelta{},
	}

	switch {
	case r.spySchool && guess == r.currentLocation:
		// The one correct guesser takes the round alone.
		guesser.Score += 4
		for _, p := range r.players {
			delta := 0
			if p == guesser {
				delta = 4
			}
			r.EndGame.NewScores = append(r.EndGame.NewScores, protocol.ScoreDelta{Player: snapshot(p), AddedScore: delta})
		}
	case r.spySchool:
		r.zeroScoresForAll()
	case guess == r.currentLocation:
		r.scoreSpyVictory()
	default:
		r.scoreNonSpyVictory(-1)
	}
}

// EndRoundViaTimer resolves an expired round: the spy survived the full
// timer and is credited two points.
func (r *Room) EndRoundViaTimer() {
	if r.currentLocation == "" {
		return
	}
	r.EndGame = &protocol.EndGameState{
		RevealedSpy: snapshotPtr(r.spy),
		Location:    r.currentLocation,
		SpySchool:   r.spySchool,
		NewScores:   []protocol.ScoreDelta{},
	}
	if r.spySchool {
		r.zeroScoresForAll()
		return
	}
	r.spy.Score += 2
	for _, p := range r.players {
		delta := 0
		if p == r.spy {
			delta = 2
		}
		r.EndGame.NewScores = append(r.EndGame.NewScores, protocol.ScoreDelta{Player: snapshot(p), AddedScore: delta})
	}
}

// scoreSpyVictory awards the spy four points.
func (r *Room) scoreSpyVictory() {
	if r.EndGame == nil || r.spy == nil {
		return
	}
	r.spy.Score += 4
	for _, p := range r.players {
		delta := 0
		if p == r.spy {
			delta = 4
		}
		r.EndGame.NewScores = append(r.EndGame.NewScores, protocol.ScoreDelta{Player: snapshot(p), AddedScore: delta})
	}
}

// scoreNonSpyVictory awards every non-spy a point, with the vote
// initiator (when initiatorDisc >= 0) taking two instead; the spy is
// recorded with an explicit zero.
func (r *Room) scoreNonSpyVictory(initiatorDisc int) {
	if r.EndGame == nil {
		return
	}
	for _, p := range r.players {
		delta := 0
		switch {
		case p.IsSpy:
		case p.Discriminator == initiatorDisc:
			delta = 2
		default:
			delta = 1
		}
		p.Score += delta
		r.EndGame.NewScores = append(r.EndGame.NewScores, protocol.ScoreDelta{Player: snapshot(p), AddedScore: delta})
	}
}

// zeroScoresForAll fills the end-game record with explicit zeros.
func (r *Room) zeroScoresForAll() {
	for _, p := range r.players {
		r.EndGame.NewScores = append(r.EndGame.NewScores, protocol.ScoreDelta{Player: snapshot(p), AddedScore: 0})
	}
}

// Reset returns the room to lobby state, preserving scores and roster.
// The just-finished location is remembered to bias the next scene away
// from a repeat.
func (r *Room) Reset() {
	r.Started = false
	r.IsStarting = false
	if r.currentLocation != "" {
		r.previousLocation = r.currentLocation
	}
	r.clearScene()
	r.clearVote()
	r.EndGame = nil
	r.suggestionPool = nil
	r.suggestionCursor = 0
	r.suggestions = nil
}

func (r *Room) clearScene() {
	r.spy = nil
	r.spySchool = false
	r.currentLocation = ""
	r.guessSelection = nil
	for _, p := range r.players {
		p.IsSpy = false
		p.Role = ""
		p.HasCreatedVote = false
		p.HasVoted = false
	}
}

func (r *Room) clearVote() {
	r.CurrentVote = nil
	r.voteParticipants = nil
	for _, p := range r.players {
		p.HasVoted = false
	}
}

// dropBallot removes a departed player's recorded ballot, if any.
func (r *Room) dropBallot(discriminator int) {
	if r.CurrentVote == nil {
		return
	}
	votes := r.CurrentVote.Votes
	for i, b := range votes {
		if b.Player.Discriminator == discriminator {
			r.CurrentVote.Votes = append(votes[:i], votes[i+1:]...)
			break
		}
	}
	delete(r.voteParticipants, discriminator)
}

// initSuggestions shuffles the prompt pool and deals the first cycle.
func (r *Room) initSuggestions() {
	if len(r.suggestionSource) == 0 {
		return
	}
	r.suggestionPool = r.shuffledCopy(r.suggestionSource)
	r.suggestionCursor = 0
	r.suggestions = make(map[int]string)
	r.RotateSuggestions()
}

// RotateSuggestions assigns the next prompt to every player, wrapping
// and reshuffling the pool as it runs out.
func (r *Room) RotateSuggestions() {
	if len(r.suggestionPool) == 0 {
		return
	}
	for disc := range r.discriminators {
		if r.suggestionCursor >= len(r.suggestionPool) {
			r.suggestionPool = r.shuffledCopy(r.suggestionSource)
			r.suggestionCursor = 0
		}
		r.suggestions[disc] = r.suggestionPool[r.suggestionCursor]
		r.suggestionCursor++
	}
}

func (r *Room) randomPlayer() *Player {
	n := r.rng.Intn(len(r.players))
	for _, p := range r.players {
		if n == 0 {
			return p
		}
		n--
	}
	panic(fmt.Sprintf("no players to pick from (%d)", len(r.players)))
}

// allocateDiscriminator returns the smallest unused value in
// [1, MaxRoomMembers]. Freed discriminators are reusable.
func (r *Room) allocateDiscriminator() (int, error) {
	for d := 1; d <= MaxRoomMembers; d++ {
		if _, taken := r.discriminators[d]; !taken {
			return d, nil
		}
	}
	return 0, ErrNoDiscriminator
}

// safeNickname de-duplicates a nickname within the room by appending
// " 1", " 2", ... until it is free. Comparison is exact post-trim
// string equality.
func (r *Room) safeNickname(nickname string) string {
	if r.playerByName(nickname) == nil {
		return nickname
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s %d", nickname, i)
		if r.playerByName(candidate) == nil {
			return candidate
		}
	}
}

func (r *Room) playerByName(nickname string) *Player {
	for _, p := range r.players {
		if p.Nickname == nickname {
			return p
		}
	}
	return nil
}

func snapshot(p *Player) protocol.StatePlayer {
	return protocol.StatePlayer{
		Nickname:      p.Nickname,
		Discriminator: p.Discriminator,
		IsHost:        p.IsHost,
		Score:         p.Score,
	}
}

func snapshotPtr(p *Player) *protocol.StatePlayer {
	if p == nil {
		return nil
	}
	s := snapshot(p)
	return &s
}
