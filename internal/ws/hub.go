package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go-pos-terminal/internal/live"
	"go-pos-terminal/internal/model"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

const (
	TypeCatalog    = "catalog"
	TypePending    = "pending"
	TypeSyncStatus = "sync_status"

	sendBuffer = 8
)

var ErrHubClosed = errors.New("websocket hub is not running")

// Conn is the part of a websocket connection the hub uses
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
}

// Message is one push to a POS UI client
type Message struct {
	Type     string      `json:"type"`
	TenantID string      `json:"tenantId"`
	Data     interface{} `json:"data"`
}

// SyncStatus is the payload of a sync_status message
type SyncStatus struct {
	State        model.SyncState    `json:"state"`
	StoreFailure bool               `json:"store_failure"`
	Report       *model.CycleReport `json:"report,omitempty"`
}

type Client struct {
	conn     Conn
	tenantID string
	send     chan Message
}

// Hub keeps the connected clients per tenant. Every client gets live catalog
// and pending-order snapshots for its own tenant plus the tenant's sync status.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	Broadcast  chan Message

	views *live.Hub
	log   *zap.Logger
	done  chan struct{}

	mutex   sync.Mutex
	clients map[string]map[*Client]bool
}

func NewHub(views *live.Hub, log *zap.Logger) *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan Message, 16),
		views:      views,
		log:        log.Named("ws"),
		done:       make(chan struct{}),
		clients:    make(map[string]map[*Client]bool),
	}
}

// Run owns client membership until ctx is done
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for tenantID, set := range h.clients {
				for c := range set {
					close(c.send)
				}
				delete(h.clients, tenantID)
			}
			h.mutex.Unlock()
			return nil

		case c := <-h.Register:
			h.mutex.Lock()
			if h.clients[c.tenantID] == nil {
				h.clients[c.tenantID] = make(map[*Client]bool)
			}
			h.clients[c.tenantID][c] = true
			h.mutex.Unlock()
			h.log.Info("ws client connected", zap.String("tenant_id", c.tenantID))

		case c := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.clients[c.tenantID][c]; ok {
				delete(h.clients[c.tenantID], c)
				if len(h.clients[c.tenantID]) == 0 {
					delete(h.clients, c.tenantID)
				}
				close(c.send)
			}
			h.mutex.Unlock()
			h.log.Info("ws client disconnected", zap.String("tenant_id", c.tenantID))

		case msg := <-h.Broadcast:
			h.mutex.Lock()
			for c := range h.clients[msg.TenantID] {
				select {
				case c.send <- msg:
				default:
					h.log.Warn("ws client too slow, message dropped",
						zap.String("tenant_id", c.tenantID), zap.String("type", msg.Type))
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Clients counts connected clients of a tenant
func (h *Hub) Clients(tenantID string) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients[tenantID])
}

// PublishCycle pushes a finished sync cycle to the tenant's clients. It is
// meant to be registered with Orchestrator.OnCycle.
func (h *Hub) PublishCycle(report model.CycleReport) {
	msg := Message{
		Type:     TypeSyncStatus,
		TenantID: report.TenantID,
		Data: SyncStatus{
			State:        model.StateIdle,
			StoreFailure: report.StoreFailure(),
			Report:       &report,
		},
	}
	select {
	case h.Broadcast <- msg:
	case <-h.done:
	}
}

// Serve pumps live views to conn until the peer goes away or the hub stops.
// The caller owns conn and closes it after Serve returns.
func (h *Hub) Serve(ctx context.Context, conn Conn, tenantID string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c := &Client{conn: conn, tenantID: tenantID, send: make(chan Message, sendBuffer)}
	select {
	case h.Register <- c:
	case <-h.done:
		return ErrHubClosed
	}
	defer func() {
		select {
		case h.Unregister <- c:
		case <-h.done:
		}
	}()

	// reads only detect the peer closing; clients never send anything we need
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	catalog, err := h.views.ObserveCatalog(ctx, tenantID)
	if err != nil {
		return err
	}
	defer catalog.Close()
	pending, err := h.views.ObservePending(ctx, tenantID)
	if err != nil {
		return err
	}
	defer pending.Close()

	for {
		var msg Message
		select {
		case <-ctx.Done():
			return nil
		case items, ok := <-catalog.C():
			if !ok {
				return nil
			}
			msg = Message{Type: TypeCatalog, TenantID: tenantID, Data: items}
		case orders, ok := <-pending.C():
			if !ok {
				return nil
			}
			msg = Message{Type: TypePending, TenantID: tenantID, Data: orders}
		case m, ok := <-c.send:
			if !ok {
				return nil
			}
			msg = m
		}

		if err := write(conn, msg); err != nil {
			h.log.Debug("ws write failed", zap.String("tenant_id", tenantID), zap.Error(err))
			return nil
		}
	}
}

func write(conn Conn, msg Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, b)
}
