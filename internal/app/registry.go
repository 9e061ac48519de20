package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

// Registry owns the live rooms of this process. One instance is constructed
// at startup and injected into the coordinator, so tests can build isolated
// registries.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*core.Room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[domain.RoomID]*core.Room)}
}

// ResolveOrCreate returns the live room for info.ID, refreshing its metadata
// flags, or creates it.
func (r *Registry) ResolveOrCreate(info domain.MeetingInfo) *core.Room {
	r.mu.RLock()
	room, ok := r.rooms[info.ID]
	r.mu.RUnlock()
	if ok {
		room.ApplyMetadata(info)
		return room
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if room, ok = r.rooms[info.ID]; ok {
		room.ApplyMetadata(info)
		return room
	}
	room = core.NewRoom(info)
	r.rooms[info.ID] = room
	log.Info().Str("module", "app.registry").Str("room", string(info.ID)).Msg("room created")
	return room
}

// Get reports absence instead of erroring: "room not live yet" is an
// expected state for callers.
func (r *Registry) Get(id domain.RoomID) (*core.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[id]
	return room, ok
}

// Remove is idempotent.
func (r *Registry) Remove(id domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[id]; ok {
		delete(r.rooms, id)
		log.Info().Str("module", "app.registry").Str("room", string(id)).Msg("room removed")
	}
}

func (r *Registry) List() []core.RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, room.Info())
	}
	return out
}
