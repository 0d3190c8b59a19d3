package services

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/howtoquitvivek/skipnomeal/logger"
	"github.com/howtoquitvivek/skipnomeal/nutrition"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

type WSClient struct {
	UserID uint
	Conn   *websocket.Conn
	mu     sync.Mutex
}

// Write serializes writes; a websocket connection allows one writer at a time.
func (c *WSClient) Write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(messageType, data)
}

// MealEvent is pushed to every connection of the meal's owner.
type MealEvent struct {
	Kind   string                `json:"kind"`
	MealID uint                  `json:"meal_id"`
	Totals *nutrition.MealTotals `json:"totals,omitempty"`
}

const (
	EventMealTotalsUpdated = "meal.totals.updated"
	EventMealDeleted       = "meal.deleted"
)

type RealtimeHub struct {
	mu      sync.RWMutex
	clients map[uint]map[*WSClient]struct{}
	log     *logger.Logger
}

func NewRealtimeHub(log *logger.Logger) *RealtimeHub {
	return &RealtimeHub{clients: make(map[uint]map[*WSClient]struct{}), log: log}
}

func (h *RealtimeHub) Register(c *WSClient) {
	h.mu.Lock()
	if h.clients[c.UserID] == nil {
		h.clients[c.UserID] = make(map[*WSClient]struct{})
	}
	h.clients[c.UserID][c] = struct{}{}
	h.mu.Unlock()
}

func (h *RealtimeHub) Unregister(c *WSClient) {
	h.mu.Lock()
	if set := h.clients[c.UserID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.UserID)
		}
	}
	h.mu.Unlock()
	_ = c.Conn.Close()
}

// Connections reports how many sockets a user has open.
func (h *RealtimeHub) Connections(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *RealtimeHub) BroadcastMealTotals(userID, mealID uint, totals nutrition.MealTotals) {
	h.broadcast(userID, MealEvent{Kind: EventMealTotalsUpdated, MealID: mealID, Totals: &totals})
}

func (h *RealtimeHub) BroadcastMealDeleted(userID, mealID uint) {
	h.broadcast(userID, MealEvent{Kind: EventMealDeleted, MealID: mealID})
}

// broadcast is a no-op on a nil hub so services work without realtime.
func (h *RealtimeHub) broadcast(userID uint, payload any) {
	if h == nil {
		return
	}
	msg, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("realtime marshal failed", "error", err)
		return
	}
	h.mu.RLock()
	targets := make([]*WSClient, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.Write(websocket.TextMessage, msg); err != nil {
			h.log.Warn("realtime write failed", "user_id", userID, "error", err)
			h.Unregister(c)
		}
	}
}
