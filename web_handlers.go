package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/elijahnyp/hotel_room/ledger"
	"github.com/elijahnyp/hotel_room/state"
	. "github.com/elijahnyp/hotel_room/util"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: checkOrigin,
}

// checkOrigin accepts any origin unless ws_allowed_origins lists some.
func checkOrigin(r *http.Request) bool {
	allowed := Config.GetStringSlice("ws_allowed_origins")
	if len(allowed) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, a := range allowed {
		if strings.EqualFold(a, origin) {
			return true
		}
	}
	Logger.Warn().Msgf("websocket origin %s not allowed", origin)
	return false
}

// WebSocketMessage represents a message sent over WebSocket
type WebSocketMessage struct {
	Data interface{} `json:"data"`
	Type string      `json:"type"`
}

// WSClient represents a connected WebSocket client
type WSClient struct {
	conn *websocket.Conn
	send chan WebSocketMessage
	hub  *WSHub
}

// WSHub maintains the set of active clients and broadcasts messages
type WSHub struct {
	clients    map[*WSClient]bool
	broadcast  chan WebSocketMessage
	register   chan *WSClient
	unregister chan *WSClient
}

// AccountBalance is the answer to a balance query
type AccountBalance struct {
	Address ledger.Address `json:"address"`
	Balance uint64         `json:"balance"`
}

type apiError struct {
	Error string `json:"error"`
}

var wsHub *WSHub

func init() {
	wsHub = NewHub()
	go wsHub.Run()
}

// NewHub creates a new WebSocket hub
func NewHub() *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WebSocketMessage, 16),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
	}
}

// Run starts the WebSocket hub
func (h *WSHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			Logger.Info().Msg("Client connected to WebSocket")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				Logger.Info().Msg("Client disconnected from WebSocket")
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// BroadcastUpdate sends an update to all connected clients
func (h *WSHub) BroadcastUpdate(messageType string, data interface{}) {
	select {
	case h.broadcast <- WebSocketMessage{Type: messageType, Data: data}:
	default:
		Logger.Warn().Msgf("websocket broadcast queue full, dropping %s", messageType)
	}
}

// broadcastResults pushes every call result, and the room state after a
// successful one, to websocket clients.
func broadcastResults(hub *WSHub) func(CallResult) {
	return func(res CallResult) {
		hub.BroadcastUpdate("call_result", res)
		if res.Ok {
			hub.BroadcastUpdate("room_state", res.Room)
		}
	}
}

// readPump pumps messages from the websocket connection to the hub
func (c *WSClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		if err := c.conn.Close(); err != nil {
			Logger.Debug().Err(err).Msg("Error closing WebSocket connection")
		}
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *WSClient) writePump() {
	defer func() {
		if err := c.conn.Close(); err != nil {
			Logger.Debug().Err(err).Msg("Error closing WebSocket connection")
		}
	}()

	for message := range c.send {
		if err := c.conn.WriteJSON(message); err != nil {
			return
		}
	}
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		Logger.Debug().Err(err).Msg("Error writing close message")
	}
}

// ServeWebSocket streams room updates. The current state is sent first.
func ServeWebSocket(svc *RoomService, hub *WSHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			Logger.Error().Err(err).Msg("WebSocket upgrade failed")
			return
		}

		client := &WSClient{
			conn: conn,
			send: make(chan WebSocketMessage, 256),
			hub:  hub,
		}
		client.send <- WebSocketMessage{Type: "room_state", Data: svc.Snapshot()}

		client.hub.register <- client

		go client.writePump()
		go client.readPump()
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		Logger.Error().Err(err).Msg("Error encoding response")
	}
}

// statusFor maps a failed call onto an HTTP status.
func statusFor(err error) int {
	if errors.Is(err, ErrUnknownOperation) {
		return http.StatusNotFound
	}
	switch state.KindOf(err) {
	case state.KindNone:
		return http.StatusOK
	case state.KindAuthorization:
		return http.StatusForbidden
	case state.KindPrecondition, state.KindExhausted:
		return http.StatusConflict
	case state.KindRejected:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// APIRoom returns the room state as JSON
func APIRoom(svc *RoomService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Snapshot())
	}
}

// APIAccount returns the balance held by an address
func APIAccount(svc *RoomService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr := ledger.Address(mux.Vars(r)["address"])
		writeJSON(w, http.StatusOK, AccountBalance{Address: addr, Balance: svc.Balance(addr)})
	}
}

// APIAccounts lists every funded account
func APIAccounts(svc *RoomService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Accounts())
	}
}

// APICall runs one room operation from a JSON command body
func APICall(svc *RoomService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		op := mux.Vars(r)["operation"]
		var cmd Command
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cmd); err != nil {
			writeJSON(w, http.StatusBadRequest, apiError{Error: fmt.Sprintf("malformed command: %v", err)})
			return
		}
		// a client hanging up must not cancel persisting a call that already ran
		res, err := svc.Dispatch(context.WithoutCancel(r.Context()), op, cmd)
		writeJSON(w, statusFor(err), res)
	}
}

// NewAPIRouter builds the /api routes
func NewAPIRouter(svc *RoomService) *mux.Router {
	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/room", APIRoom(svc)).Methods(http.MethodGet)
	api.HandleFunc("/room/{operation}", APICall(svc)).Methods(http.MethodPost)
	api.HandleFunc("/accounts", APIAccounts(svc)).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{address}", APIAccount(svc)).Methods(http.MethodGet)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, apiError{Error: "not found"})
	})
	return router
}
