package core

import (
	"sync"

	"github.com/dkeye/Meet/internal/domain"
)

type roomDirectory struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]RoomService
}

func NewRoomDirectory() RoomDirectory {
	return &roomDirectory{rooms: make(map[domain.RoomID]RoomService)}
}

func (d *roomDirectory) GetOrCreate(id domain.RoomID) RoomService {
	d.mu.RLock()
	room, ok := d.rooms[id]
	d.mu.RUnlock()
	if ok {
		return room
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if room, ok = d.rooms[id]; ok {
		return room
	}
	room = NewRoomService(id)
	d.rooms[id] = room
	return room
}

func (d *roomDirectory) Get(id domain.RoomID) (RoomService, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	room, ok := d.rooms[id]
	return room, ok
}

func (d *roomDirectory) Remove(id domain.RoomID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.rooms, id)
}

func (d *roomDirectory) List() []RoomInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]RoomInfo, 0, len(d.rooms))
	for id, r := range d.rooms {
		out = append(out, RoomInfo{ID: id, MemberCount: r.MemberCount()})
	}
	return out
}
