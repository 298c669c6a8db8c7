// Pixelboard shared canvas
//
// Every connected viewer sees the same grid. Logged-in users claim cells by
// sending colorCell messages; the first claim on a cell wins and the cell
// never changes hands afterwards.
//
// Features:
// - Single shared board at /board, with its WebSocket at /board/ws
// - New connections receive the full board as an "init" message
// - Accepted claims are broadcast as "cellUpdate" to everyone, sender included
// - Rejected claims (cell already taken) produce no reply at all
// - Malformed or incomplete messages are dropped without closing the connection
// - Slow clients are evicted rather than allowed to stall the broadcast
// - Viewers identified by cookie on first page load
// - In-browser QR button to share the board, backed by go-qrcode

package main

import (
	"crypto/rand"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

type Client struct {
	conn     *websocket.Conn
	send     chan any
	viewerID string
}

type placeRequest struct {
	client *Client
	msg    ClientMessage
}

// Hub owns the set of connected clients and serializes all board events.
// The clients map is touched only by the run goroutine, so register,
// placement, and unregister interleavings have a single total order: a
// client registered before a claim is handled sees that claim either in its
// init snapshot or as a cellUpdate, never neither.
type Hub struct {
	grid    *Grid
	clients map[*Client]bool

	register chan *Client
	unreg    chan *Client
	places   chan placeRequest
}

func newHub(grid *Grid) *Hub {
	return &Hub{
		grid:     grid,
		clients:  make(map[*Client]bool),
		register: make(chan *Client),
		unreg:    make(chan *Client),
		places:   make(chan placeRequest),
	}
}

func (h *Hub) run(cfg *Config) {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true

			c.send <- InitMessage{
				Type: "init",
				Grid: h.grid.Snapshot(),
			}

			logf(cfg, "BOARD: Viewer %s connected (%d online)", c.viewerID, len(h.clients))

		case c := <-h.unreg:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}

			logf(cfg, "BOARD: Viewer %s disconnected (%d online)", c.viewerID, len(h.clients))

		case pr := <-h.places:
			h.handlePlacement(cfg, pr)
		}
	}
}

// handlePlacement applies the first-write-wins rule and, on acceptance,
// fans the update out to every connected client.
func (h *Hub) handlePlacement(cfg *Config, pr placeRequest) {
	msg := pr.msg

	if !msg.wellFormed() {
		return
	}

	accepted := h.grid.TryClaim(msg.Key, Cell{
		Color:    msg.Color,
		Username: msg.Username,
	})
	if !accepted {
		// First come, first served. The loser gets no reply; it learns of
		// the rejection by never seeing a cellUpdate for its request.
		logf(cfg, "BOARD: Rejected claim on %q by %q (viewer %s)", msg.Key, msg.Username, pr.client.viewerID)
		return
	}

	logf(cfg, "BOARD: %q claimed %q (%s)", msg.Username, msg.Key, msg.Color)

	update := CellUpdateMessage{
		Type:     "cellUpdate",
		Key:      msg.Key,
		Color:    msg.Color,
		Username: msg.Username,
	}

	for client := range h.clients {
		select {
		case client.send <- update:
		default:
			delete(h.clients, client)
			close(client.send)
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const viewerCookieName = "pixelboard_id"

func getOrSetViewerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(viewerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Println("rand.Read error:", err)
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     viewerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// WebSocket handler for the shared board
func serveWS(cfg *Config, h *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		viewerID := getOrSetViewerID(w, r)
		if viewerID == "" {
			http.Error(w, "unable to assign viewer id", http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 8),
			viewerID: viewerID,
		}

		h.register <- client

		go client.writePump()
		client.readPump(h)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unreg <- c
		_ = c.conn.Close()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			// Not valid JSON; drop it and keep the connection open.
			continue
		}

		if !msg.wellFormed() {
			continue
		}

		h.places <- placeRequest{
			client: c,
			msg:    msg,
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the board URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../board/qr; strip trailing "/qr" to get the board URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// boardConfigHandler tells the browser client how large to draw the canvas.
func boardConfigHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")

		_ = json.NewEncoder(w).Encode(map[string]int{
			"width":  cfg.gridWidth,
			"height": cfg.gridHeight,
		})
	}
}

// ---- Static file paths ----

//go:embed board/index.html
var indexHTML []byte

//go:embed board/app.css
var boardCSS []byte

//go:embed board/app.js
var boardJS []byte

func getIndexHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_ = getOrSetViewerID(w, r)

		_, _ = w.Write(indexHTML)
	}
}

func getCssHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Length", strconv.Itoa(len(boardCSS)))
		securityHeaders(cfg, w)

		_, _ = w.Write(boardCSS)
	}
}

func getJsHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Length", strconv.Itoa(len(boardJS)))
		securityHeaders(cfg, w)

		_, _ = w.Write(boardJS)
	}
}

// registerBoard sets up routes so that:
//   - $path         → HTML client
//   - $path/ws      → shared-board WebSocket
//   - $path/config  → canvas dimensions for the client
//   - $path/qr      → PNG QR code for the board URL
func registerBoard(cfg *Config, path string, mux *httprouter.Router, hub *Hub) {
	mux.GET(cfg.prefix+path, getIndexHandler(cfg))

	// Shared assets
	mux.GET(cfg.prefix+"/assets/board/app.css", getCssHandler(cfg))
	mux.GET(cfg.prefix+"/assets/board/app.js", getJsHandler(cfg))

	mux.GET(cfg.prefix+path+"/ws", serveWS(cfg, hub))

	mux.GET(cfg.prefix+path+"/config", boardConfigHandler(cfg))

	mux.GET(cfg.prefix+path+"/qr", qrHandler)
}
