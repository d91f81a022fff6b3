package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/npezzotti/go-teamchat/internal/cache"
	"github.com/npezzotti/go-teamchat/internal/database"
	"github.com/npezzotti/go-teamchat/internal/stats"
)

type ChatServer struct {
	log            *slog.Logger
	db             database.TeamChatRepository
	stats          stats.StatsProvider
	registry       *Registry
	presence       *Presence
	engine         *Engine
	relay          *Relay
	validate       *validator.Validate
	handlers       map[string]eventHandler
	ctx            context.Context
	clients        map[*Client]struct{}
	clientsLock    sync.RWMutex
	RegisterChan   chan *Client
	deRegisterChan chan *Client
	stop           chan struct{}
	done           chan struct{}
	shutdownOnce   sync.Once
}

func NewChatServer(logger *slog.Logger, db database.TeamChatRepository, marker cache.FirstMessageMarker, sp stats.StatsProvider) (*ChatServer, error) {
	registry := NewRegistry(logger)

	cs := &ChatServer{
		log:            logger,
		db:             db,
		stats:          sp,
		registry:       registry,
		presence:       NewPresence(db, logger),
		engine:         NewEngine(db, marker, logger),
		relay:          NewRelay(registry, logger, sp),
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		ctx:            context.Background(),
		clients:        make(map[*Client]struct{}),
		RegisterChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
	cs.handlers = cs.eventHandlers()

	for _, name := range []string{
		stats.NumActiveClients,
		stats.NumTotalClients,
		stats.EventsReceived,
		stats.EventsMalformed,
		stats.EventsIgnored,
		stats.EventsFailed,
		stats.SignalsRelayed,
		stats.SignalsDropped,
		stats.MessagesPosted,
	} {
		sp.RegisterMetric(name)
	}
	sp.RegisterGauge("NumOnlineUsers", cs.presence.NumOnline)
	sp.RegisterGauge("NumRooms", func() int64 { return int64(registry.RoomCount()) })

	return cs, nil
}

// Presence exposes the presence snapshot to the HTTP layer.
func (cs *ChatServer) Presence() *Presence {
	return cs.presence
}

func (cs *ChatServer) Run() {
	for {
		select {
		case client := <-cs.RegisterChan:
			cs.log.Info("client connected", "conn", client.id, "user", client.UserId())
			cs.addClient(client)
			cs.stats.Incr(stats.NumActiveClients)
			cs.stats.Incr(stats.NumTotalClients)
		case client := <-cs.deRegisterChan:
			if cs.removeClient(client) {
				cs.log.Info("client disconnected", "conn", client.id, "user", client.UserId())
				cs.stats.Decr(stats.NumActiveClients)
			}
		case <-cs.stop:
			cs.log.Info("stopping clients")
			cs.clientsLock.RLock()
			for c := range cs.clients {
				c.stopClient()
			}
			cs.clientsLock.RUnlock()

			close(cs.done)
			return
		}
	}
}

// Register hands c to the hub. It reports false once the hub has stopped.
func (cs *ChatServer) Register(c *Client) bool {
	select {
	case cs.RegisterChan <- c:
		return true
	case <-cs.done:
		return false
	}
}

// deregister tells the hub c is gone. It returns immediately once the hub
// has stopped.
func (cs *ChatServer) deregister(c *Client) {
	select {
	case cs.deRegisterChan <- c:
	case <-cs.done:
	}
}

func (cs *ChatServer) addClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	cs.clients[c] = struct{}{}
}

func (cs *ChatServer) removeClient(c *Client) bool {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()

	if _, ok := cs.clients[c]; !ok {
		return false
	}
	delete(cs.clients, c)
	return true
}

func (cs *ChatServer) snapshotClients() []*Client {
	cs.clientsLock.RLock()
	defer cs.clientsLock.RUnlock()

	clients := make([]*Client, 0, len(cs.clients))
	for c := range cs.clients {
		clients = append(clients, c)
	}
	return clients
}

// deliver queues every emission of plan, in order, on the connections it
// addresses. origin is the connection whose event produced the plan.
func (cs *ChatServer) deliver(origin *Client, plan []emission) {
	for _, e := range plan {
		var recipients []*Client
		switch e.scope {
		case scopeRoom:
			recipients = cs.registry.MembersOf(e.room)
		case scopeRoomOthers:
			recipients = without(cs.registry.MembersOf(e.room), origin)
		case scopeGlobal:
			recipients = cs.snapshotClients()
		case scopeOthers:
			recipients = without(cs.snapshotClients(), origin)
		case scopeOrigin:
			if origin != nil {
				recipients = []*Client{origin}
			}
		case scopeClient:
			if e.to != nil {
				recipients = []*Client{e.to}
			}
		}

		cs.log.Debug("emit", "event", e.msg.Event, "scope", e.scope.String(), "room", e.room, "recipients", len(recipients))
		for _, c := range recipients {
			c.queueMessage(e.msg)
		}
	}
}

func without(clients []*Client, skip *Client) []*Client {
	out := clients[:0]
	for _, c := range clients {
		if c != skip {
			out = append(out, c)
		}
	}
	return out
}

// Shutdown stops the hub and every connection, waiting until the hub has
// exited or ctx is done.
func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.shutdownOnce.Do(func() {
		cs.log.Info("received shutdown signal")
		close(cs.stop)
	})

	select {
	case <-cs.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
