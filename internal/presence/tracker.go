// Package presence tracks which users are currently online in each room.
// The state is soft: it is tied to live connections and is not persisted.
package presence

import (
	"log/slog"
	"sync"

	"chat-status/internal/models"
)

// roomPresence holds connection refcounts per user for one room. Each room
// has its own lock so cross-room operations never contend.
type roomPresence struct {
	mu     sync.Mutex
	online map[models.UserID]int
}

// Tracker maintains per-room online sets. A user may be online in several
// rooms at once; each room is tracked independently.
type Tracker struct {
	mu    sync.RWMutex
	rooms map[string]*roomPresence
}

func NewTracker() *Tracker {
	return &Tracker{rooms: make(map[string]*roomPresence)}
}

func (t *Tracker) room(name string, create bool) *roomPresence {
	t.mu.RLock()
	rp, ok := t.rooms[name]
	t.mu.RUnlock()
	if ok || !create {
		return rp
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if rp, ok = t.rooms[name]; !ok {
		rp = &roomPresence{online: make(map[models.UserID]int)}
		t.rooms[name] = rp
	}
	return rp
}

// Join records one connection for user in room. It reports whether the user
// was newly online (first connection); only then should an occupancy
// broadcast follow.
func (t *Tracker) Join(room string, user models.UserID) bool {
	rp := t.room(room, true)
	rp.mu.Lock()
	defer rp.mu.Unlock()

	rp.online[user]++
	if rp.online[user] > 1 {
		return false
	}
	slog.Debug("[PRESENCE] User online", "room", room, "user", user)
	return true
}

// Leave drops one connection for user in room. It reports whether the user
// went offline (last connection). Unknown rooms and untracked users are
// no-ops returning false.
func (t *Tracker) Leave(room string, user models.UserID) bool {
	rp := t.room(room, false)
	if rp == nil {
		return false
	}

	rp.mu.Lock()
	n, ok := rp.online[user]
	if !ok {
		rp.mu.Unlock()
		return false
	}
	if n > 1 {
		rp.online[user] = n - 1
		rp.mu.Unlock()
		return false
	}
	delete(rp.online, user)
	empty := len(rp.online) == 0
	rp.mu.Unlock()

	if empty {
		// Drop the empty room from the registry. Re-check under both locks;
		// a join may have raced in between.
		t.mu.Lock()
		rp.mu.Lock()
		if len(rp.online) == 0 {
			delete(t.rooms, room)
		}
		rp.mu.Unlock()
		t.mu.Unlock()
	}
	slog.Debug("[PRESENCE] User offline", "room", room, "user", user)
	return true
}

// OnlineCount returns how many users are online in room, excluding the given
// user: the count shown to a client never includes that client's own user.
func (t *Tracker) OnlineCount(room string, excluding models.UserID) int {
	rp := t.room(room, false)
	if rp == nil {
		return 0
	}
	rp.mu.Lock()
	defer rp.mu.Unlock()

	n := len(rp.online)
	if _, ok := rp.online[excluding]; ok {
		n--
	}
	return n
}
