package v1

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yizeng/gab/gin/gorm/gifting-raffle/internal/api/handler/v1/response"
	"github.com/yizeng/gab/gin/gorm/gifting-raffle/internal/domain"
)

const (
	subscriberBuffer = 16
	writeWait        = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced by the middleware on the upgrade request.
	},
}

type subscriber struct {
	conn     *websocket.Conn
	send     chan []byte
	raffleID uint
	userID   uint
}

// RaffleEventHub fans raffle events out to the websockets watching that raffle.
type RaffleEventHub struct {
	mu          sync.Mutex
	subscribers map[uint]map[*subscriber]struct{}
}

func NewRaffleEventHub() *RaffleEventHub {
	return &RaffleEventHub{
		subscribers: make(map[uint]map[*subscriber]struct{}),
	}
}

// Publish never blocks: a subscriber whose buffer is full is dropped.
func (h *RaffleEventHub) Publish(event domain.RaffleEvent) {
	message, err := json.Marshal(event)
	if err != nil {
		zap.L().Error("marshal raffle event", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subscribers[event.RaffleID] {
		select {
		case sub.send <- message:
		default:
			zap.L().Warn("dropping slow raffle subscriber",
				zap.Uint("raffle_id", sub.raffleID), zap.Uint("user_id", sub.userID))
			h.removeLocked(sub)
		}
	}
}

func (h *RaffleEventHub) register(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subscribers[sub.raffleID] == nil {
		h.subscribers[sub.raffleID] = make(map[*subscriber]struct{})
	}
	h.subscribers[sub.raffleID][sub] = struct{}{}
}

func (h *RaffleEventHub) unregister(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(sub)
}

func (h *RaffleEventHub) removeLocked(sub *subscriber) {
	subs, ok := h.subscribers[sub.raffleID]
	if !ok {
		return
	}
	if _, ok = subs[sub]; !ok {
		return
	}

	delete(subs, sub)
	close(sub.send)
	if len(subs) == 0 {
		delete(h.subscribers, sub.raffleID)
	}
}

func (h *RaffleEventHub) count(raffleID uint) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subscribers[raffleID])
}

type RaffleEventsHandler struct {
	hub  *RaffleEventHub
	svc  RaffleService
	uSvc UserService
}

func NewRaffleEventsHandler(hub *RaffleEventHub, svc RaffleService, uSvc UserService) *RaffleEventsHandler {
	return &RaffleEventsHandler{
		hub:  hub,
		svc:  svc,
		uSvc: uSvc,
	}
}

// HandleRaffleEvents godoc
// @Summary      Watch a raffle
// @Description  Streams join and close events of a raffle the user takes part in over a websocket
// @Tags         raffles
// @Param        raffleID  path      int  true  "Raffle ID"
// @Success      101  {string}  string  "Switching Protocols to WebSocket"
// @Failure      400  {object}  response.Err
// @Failure      401  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Failure      500  {object}  response.Err
// @Router       /raffles/{raffleID}/events [get]
// @Security BearerAuth
func (h *RaffleEventsHandler) HandleRaffleEvents(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	raffleID, respErr := parseRaffleID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	ok, err := h.svc.IsParticipating(ctx.Request.Context(), raffleID, user.ID)
	if err != nil {
		err = fmt.Errorf("HandleRaffleEvents -> h.svc.IsParticipating -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}
	if !ok {
		response.RenderErr(ctx, response.ErrNotFound("raffle", "id", raffleID))
		return
	}

	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		zap.L().Warn("websocket upgrade", zap.Error(err))
		return
	}

	sub := &subscriber{
		conn:     conn,
		send:     make(chan []byte, subscriberBuffer),
		raffleID: raffleID,
		userID:   user.ID,
	}
	h.hub.register(sub)

	go sub.writePump()
	go sub.readPump(h.hub)
}

func (s *subscriber) writePump() {
	defer s.conn.Close()

	for message := range s.send {
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}

	_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump only watches for the client going away; clients send nothing.
func (s *subscriber) readPump(hub *RaffleEventHub) {
	defer func() {
		hub.unregister(s)
		s.conn.Close()
	}()

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Debug("raffle subscriber left", zap.Uint("user_id", s.userID), zap.Error(err))
			}
			return
		}
	}
}
