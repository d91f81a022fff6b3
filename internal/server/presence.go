package server

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/npezzotti/go-teamchat/internal/database"
)

// Presence keeps the online flag of every user that reported a status
// since start. The durable copy lives on the account and the user's
// conversations.
type Presence struct {
	db     database.TeamChatRepository
	log    *slog.Logger
	mu     sync.RWMutex
	online map[string]bool
}

func NewPresence(db database.TeamChatRepository, log *slog.Logger) *Presence {
	return &Presence{
		db:     db,
		log:    log,
		online: make(map[string]bool),
	}
}

// SetOnline persists the status of userId, then records it in memory. The
// in-memory snapshot is left untouched when the write fails.
func (p *Presence) SetOnline(ctx context.Context, userId string, isOnline bool) error {
	if err := p.db.SetUserOnline(ctx, userId, isOnline); err != nil {
		return fmt.Errorf("set user online: %w", err)
	}

	p.mu.Lock()
	p.online[userId] = isOnline
	p.mu.Unlock()

	p.log.Debug("presence changed", "user", userId, "online", isOnline)
	return nil
}

// Snapshot returns a copy of the known statuses.
func (p *Presence) Snapshot() map[string]bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return maps.Clone(p.online)
}

func (p *Presence) NumOnline() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var n int64
	for _, online := range p.online {
		if online {
			n++
		}
	}

	return n
}
