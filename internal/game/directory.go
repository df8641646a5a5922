// internal/game/directory.go
package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/qspy/internal/auth"
	"github.com/jason-s-yu/qspy/internal/id"
	"github.com/jason-s-yu/qspy/internal/metrics"
	"github.com/jason-s-yu/qspy/internal/words"
)

// Directory rejection causes, mapped to HTTP statuses by the handlers.
var (
	ErrTooManyRooms = errors.New("too many rooms")
	ErrRoomExists   = errors.New("room already exists")
)

// Directory is the only component with cross-room visibility. It owns
// two indices over the same sessions, by human name and by public ID,
// always mutated together under one directory-wide lock. Directory
// traffic is rare next to in-room traffic, so a single lock beats
// fine-grained complexity here.
type Directory struct {
	mu      sync.Mutex
	byName  map[string]*Session
	byID    map[string]*Session
	gen     *id.Generator
	packs   []*words.Pack
	prompts []string
	log     *logrus.Logger
}

// NewDirectory builds an empty directory over the loaded packs and
// suggestion prompts.
func NewDirectory(log *logrus.Logger, packs []*words.Pack, prompts []string) (*Directory, error) {
	gen, err := id.NewGenerator()
	if err != nil {
		return nil, err
	}
	return &Directory{
		byName:  make(map[string]*Session),
		byID:    make(map[string]*Session),
		gen:     gen,
		packs:   packs,
		prompts: prompts,
		log:     log,
	}, nil
}

// CreateRoom allocates a public ID and registers a new session under
// both its name and that ID.
func (d *Directory) CreateRoom(name, password string) (*Session, error) {
	// Hash outside the lock; argon2 is deliberately not cheap.
	hash, err := auth.HashRoomPassword(password)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.byName) >= MaxRooms {
		return nil, ErrTooManyRooms
	}
	if _, taken := d.byName[name]; taken {
		return nil, ErrRoomExists
	}

	roomID, err := d.gen.Next()
	if err != nil {
		return nil, err
	}

	s := NewSession(name, roomID, hash, d.packs, d.prompts, d.log)
	d.byName[name] = s
	d.byID[roomID] = s

	metrics.NewRoom()
	metrics.Publish(metrics.EventRoomCreated, roomID)
	d.log.Infof("room %s created (%q), %d total", roomID, name, len(d.byName))
	return s, nil
}

// FindRoom looks a session up by its human name.
func (d *Directory) FindRoom(name string) *Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.byName[name]
}

// FindRoomByID looks a session up by its public ID.
func (d *Directory) FindRoomByID(roomID string) *Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.byID[roomID]
}

// RoomCount returns the number of registered rooms.
func (d *Directory) RoomCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.byName)
}

// StartPruning runs the idle-room sweep on a fixed interval until the
// context is cancelled.
func (d *Directory) StartPruning(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(pruneInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				d.prune()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// prune removes every room idle past the age threshold from both
// indices and cancels it, force-closing its clients.
func (d *Directory) prune() {
	d.mu.Lock()
	defer d.mu.Unlock()

	cutoff := time.Now().Add(-pruneAge)
	var expired []*Session
	for _, s := range d.byName {
		if s.LastSeen().Before(cutoff) {
			expired = append(expired, s)
		}
	}
	if len(expired) == 0 {
		return
	}

	for _, s := range expired {
		delete(d.byName, s.Name())
		delete(d.byID, s.ID())
		s.Cancel()
		metrics.RemoveRoom()
		metrics.Publish(metrics.EventRoomPruned, s.ID())
	}
	d.log.Infof("pruned %d room(s)", len(expired))
}
