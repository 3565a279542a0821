package room

import (
	"context"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Repository stores live rooms by id.
type Repository interface {
	// Create stores r unless a room with the same id exists.
	Create(r *Room) error
	Get(id string) (*Room, bool)
	Delete(id string)
	List() []*Room
	Count() int
}

const evictInterval = time.Minute

// MemoryRepository keeps rooms in process and closes rooms that stay idle
// longer than the configured timeout.
type MemoryRepository struct {
	rooms sync.Map // id -> *Room

	idleTimeout time.Duration
	evictTicker *time.Ticker
	stopChan    chan struct{}
	stopOnce    sync.Once
}

// NewMemoryRepository starts the eviction loop. A zero idleTimeout disables eviction.
func NewMemoryRepository(idleTimeout time.Duration) *MemoryRepository {
	m := &MemoryRepository{
		idleTimeout: idleTimeout,
		stopChan:    make(chan struct{}),
	}
	if idleTimeout > 0 {
		m.evictTicker = time.NewTicker(evictInterval)
		go m.evictLoop()
	}
	return m
}

func (m *MemoryRepository) Create(r *Room) error {
	if _, loaded := m.rooms.LoadOrStore(r.ID, r); loaded {
		return ErrRoomExists
	}
	return nil
}

func (m *MemoryRepository) Get(id string) (*Room, bool) {
	val, ok := m.rooms.Load(id)
	if !ok {
		return nil, false
	}
	return val.(*Room), true
}

func (m *MemoryRepository) Delete(id string) {
	m.rooms.Delete(id)
	log.Printf("Room %s: Removed.", id)
}

// List returns the rooms ordered by creation time.
func (m *MemoryRepository) List() []*Room {
	var out []*Room
	m.rooms.Range(func(_, value interface{}) bool {
		out = append(out, value.(*Room))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *MemoryRepository) Count() int {
	count := 0
	m.rooms.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	return count
}

func (m *MemoryRepository) evictLoop() {
	for {
		select {
		case <-m.evictTicker.C:
			m.evictIdle(time.Now())
		case <-m.stopChan:
			return
		}
	}
}

// evictIdle closes and removes rooms idle since before now minus the timeout.
func (m *MemoryRepository) evictIdle(now time.Time) int {
	var idle []*Room
	m.rooms.Range(func(_, value interface{}) bool {
		r := value.(*Room)
		if now.Sub(r.LastActive()) > m.idleTimeout {
			idle = append(idle, r)
		}
		return true
	})
	for _, r := range idle {
		r.Close("room idle")
		m.rooms.Delete(r.ID)
		log.Printf("Room %s: Evicted after %s idle.", r.ID, m.idleTimeout)
	}
	return len(idle)
}

// Shutdown stops eviction and closes every room.
func (m *MemoryRepository) Shutdown(ctx context.Context) error {
	m.stopOnce.Do(func() {
		close(m.stopChan)
		if m.evictTicker != nil {
			m.evictTicker.Stop()
		}
	})
	for _, r := range m.List() {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.Close("server shutting down")
		m.rooms.Delete(r.ID)
	}
	return nil
}
