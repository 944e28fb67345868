package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mcdev12/sustainifly/go/internal/models"
	"github.com/mcdev12/sustainifly/go/internal/playfield"
	"github.com/mcdev12/sustainifly/go/internal/region"
	"github.com/mcdev12/sustainifly/go/internal/session"
)

const tracerName = "github.com/mcdev12/sustainifly/go/internal/gateway"

// ConnectionManager owns one session per websocket connection.
type ConnectionManager struct {
	sessions map[uuid.UUID]*Connection
	mu       sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	catalog   *region.Catalog
	publisher session.Publisher
	tracer    trace.Tracer

	// sessionsStarted counts every connection ever accepted.
	sessionsStarted uint64
}

// Connection is a websocket client and the session it plays.
type Connection struct {
	ID          string
	Session     *session.Controller
	Conn        *websocket.Conn
	Send        chan []byte
	Manager     *ConnectionManager
	ConnectedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc

	// redraw asks forwardUpdates to re-render the current snapshot.
	redraw chan struct{}

	viewMu    sync.Mutex
	viewport  playfield.Viewport
	frames    []markerFrame
	lastFrame uint64
	spawner   *playfield.Spawner
}

// markerFrame is one marker set as sent to the client.
type markerFrame struct {
	id      uint64
	markers []playfield.Marker
}

// markerHistory is how many recent marker sets taps are checked against.
const markerHistory = 4

// ConnectionConfig holds configuration for websocket connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	DispatchTimeout time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	CheckOrigin     func(r *http.Request) bool

	// Clock drives every session's collection timer. Nil means the wall clock.
	Clock session.Clock
	// NewSpawner builds the marker spawner for a connection. Nil means a
	// randomly seeded one.
	NewSpawner func() (*playfield.Spawner, error)
}

// DefaultConnectionConfig returns default websocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		DispatchTimeout: 5 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  64,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a websocket connection manager.
func NewConnectionManager(config ConnectionConfig, catalog *region.Catalog, publisher session.Publisher) *ConnectionManager {
	if config.NewSpawner == nil {
		config.NewSpawner = playfield.NewSpawner
	}
	if config.SendBufferSize <= 0 {
		config.SendBufferSize = 64
	}
	if config.DispatchTimeout <= 0 {
		config.DispatchTimeout = 5 * time.Second
	}
	return &ConnectionManager{
		sessions: make(map[uuid.UUID]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:    config,
		catalog:   catalog,
		publisher: publisher,
		tracer:    otel.Tracer(tracerName),
	}
}

// Start blocks until ctx is cancelled, then ends every open session.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")
	<-ctx.Done()
	log.Info().Msg("connection manager shutting down")
	cm.CloseAll()
}

// CloseAll cancels every open session.
func (cm *ConnectionManager) CloseAll() {
	cm.mu.RLock()
	conns := make([]*Connection, 0, len(cm.sessions))
	for _, c := range cm.sessions {
		conns = append(conns, c)
	}
	cm.mu.RUnlock()

	for _, c := range conns {
		c.cancel()
	}
}

// UpgradeConnection upgrades an HTTP connection and starts a fresh session on it.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) error {
	spawner, err := cm.config.NewSpawner()
	if err != nil {
		http.Error(w, "failed to seed playfield", http.StatusInternalServerError)
		return fmt.Errorf("failed to create spawner: %w", err)
	}

	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	opts := []session.Option{session.WithPublisher(cm.publisher)}
	if cm.config.Clock != nil {
		opts = append(opts, session.WithClock(cm.config.Clock))
	}
	ctrl := session.NewController(cm.catalog, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	connection := &Connection{
		ID:          uuid.New().String(),
		Session:     ctrl,
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBufferSize),
		Manager:     cm,
		ConnectedAt: time.Now(),
		ctx:         ctx,
		cancel:      cancel,
		redraw:      make(chan struct{}, 1),
		viewport:    playfield.DefaultViewport,
		spawner:     spawner,
	}

	cm.registerConnection(connection)

	go connection.runSession()
	go connection.forwardUpdates()
	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("session_id", ctrl.ID().String()).
		Msg("WebSocket session established")

	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.sessions[conn.Session.ID()] = conn
	cm.sessionsStarted++

	log.Debug().
		Str("connection_id", conn.ID).
		Str("session_id", conn.Session.ID().String()).
		Int("total_connections", len(cm.sessions)).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	id := conn.Session.ID()
	if existing, ok := cm.sessions[id]; ok && existing == conn {
		delete(cm.sessions, id)
		log.Info().
			Str("connection_id", conn.ID).
			Str("session_id", id.String()).
			Msg("connection unregistered")
	}
}

// Snapshot returns the latest snapshot of a live session.
func (cm *ConnectionManager) Snapshot(id uuid.UUID) (models.Snapshot, bool) {
	cm.mu.RLock()
	conn, ok := cm.sessions[id]
	cm.mu.RUnlock()
	if !ok {
		return models.Snapshot{}, false
	}
	return conn.Session.Snapshot(), true
}

// GetConnectionStats returns statistics about active connections.
func (cm *ConnectionManager) GetConnectionStats() map[string]interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	pages := make(map[string]int)
	for _, conn := range cm.sessions {
		pages[string(conn.Session.Snapshot().Page)]++
	}

	return map[string]interface{}{
		"total_connections": len(cm.sessions),
		"sessions_started":  cm.sessionsStarted,
		"sessions_by_page":  pages,
	}
}

func (c *Connection) runSession() {
	if err := c.Session.Run(c.ctx); err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Msg("session loop failed")
	}
}

// forwardUpdates is the only goroutine that renders. It sends every snapshot
// the session produces, plus redraws of the current one, until the loop exits.
// Snapshots older than the last one sent are skipped.
func (c *Connection) forwardUpdates() {
	updates := c.Session.Updates()
	var sent uint64
	for {
		var snap models.Snapshot
		select {
		case s, ok := <-updates:
			if !ok {
				return
			}
			snap = s
		case <-c.redraw:
			snap = c.Session.Snapshot()
		}
		if snap.Version < sent {
			continue
		}
		sent = snap.Version
		c.sendSnapshot(snap)
	}
}

// render attaches a fresh marker set to Collecting snapshots and remembers it
// under a new frame ID.
func (c *Connection) render(snap models.Snapshot) SessionView {
	c.viewMu.Lock()
	defer c.viewMu.Unlock()

	if snap.Page != models.PageCollecting {
		c.frames = nil
		return SessionView{Snapshot: snap}
	}

	c.lastFrame++
	markers := c.spawner.Spawn(c.viewport, snap.ImageKey)
	c.frames = append(c.frames, markerFrame{id: c.lastFrame, markers: markers})
	if len(c.frames) > markerHistory {
		c.frames = c.frames[len(c.frames)-markerHistory:]
	}

	out := make([]playfield.Marker, len(markers))
	copy(out, markers)
	return SessionView{Snapshot: snap, Frame: c.lastFrame, Markers: out}
}

func (c *Connection) sendSnapshot(snap models.Snapshot) {
	data, err := encodeView(c.render(snap))
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to marshal snapshot")
		return
	}
	c.enqueue(data)
}

func (c *Connection) sendError(err error) {
	data, mErr := encodeError(err)
	if mErr != nil {
		log.Error().Err(mErr).Str("connection_id", c.ID).Msg("failed to marshal error")
		return
	}
	c.enqueue(data)
}

// enqueue hands a frame to the write pump. A full buffer means the client
// stopped reading, so the connection is closed.
func (c *Connection) enqueue(data []byte) {
	select {
	case <-c.ctx.Done():
		return
	default:
	}

	select {
	case c.Send <- data:
	case <-c.ctx.Done():
	default:
		log.Warn().
			Str("connection_id", c.ID).
			Msg("connection send buffer full, closing connection")
		c.cancel()
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.cancel()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case <-c.ctx.Done():
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.cancel()
		c.Manager.unregisterConnection(c)
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			return
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// handleClientMessage turns one client frame into a session event.
func (c *Connection) handleClientMessage(raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Debug().Err(err).Str("connection_id", c.ID).Msg("malformed client message")
		c.sendError(errInvalidMessage)
		return
	}

	ctx, span := c.Manager.tracer.Start(c.ctx, "gateway.client_message",
		trace.WithAttributes(
			attribute.String("session.id", c.Session.ID().String()),
			attribute.String("message.type", string(msg.Type)),
		))
	defer span.End()

	if err := c.handleMessage(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Debug().
			Err(err).
			Str("connection_id", c.ID).
			Str("message_type", string(msg.Type)).
			Msg("client message rejected")
		c.sendError(err)
	}
}

func (c *Connection) handleMessage(ctx context.Context, msg ClientMessage) error {
	if msg.Type == ClientViewport {
		return c.setViewport(msg.Width, msg.Height)
	}

	ev, ok, err := msg.toEvent()
	if err != nil || !ok {
		return err
	}

	if msg.Type == ClientTap && msg.X != nil && msg.Y != nil {
		if err := c.hit(playfield.Point{X: *msg.X, Y: *msg.Y}, msg.Frame); err != nil {
			return err
		}
	}

	dctx, cancel := context.WithTimeout(ctx, c.Manager.config.DispatchTimeout)
	defer cancel()
	if _, err := c.Session.Dispatch(dctx, ev); err != nil {
		if errors.Is(err, session.ErrClosed) {
			c.cancel()
		}
		return err
	}
	return nil
}

// setViewport records the client's play area and redraws the current page.
func (c *Connection) setViewport(width, height float64) error {
	if width <= 0 || height <= 0 {
		return errBadViewport
	}
	c.viewMu.Lock()
	c.viewport = playfield.Viewport{Width: width, Height: height}
	c.viewMu.Unlock()

	select {
	case c.redraw <- struct{}{}:
	default:
	}
	return nil
}

// hit checks p against the marker set the client tapped on. With a frame ID
// that set is used; without one the two newest sets are tried, covering a tap
// that raced a tick.
func (c *Connection) hit(p playfield.Point, frame *uint64) error {
	c.viewMu.Lock()
	defer c.viewMu.Unlock()

	if frame != nil {
		for _, f := range c.frames {
			if f.id == *frame {
				if _, ok := playfield.Resolve(f.markers, p); ok {
					return nil
				}
				return errTapMissed
			}
		}
		return errStaleFrame
	}

	for i := len(c.frames) - 1; i >= 0 && i >= len(c.frames)-2; i-- {
		if _, ok := playfield.Resolve(c.frames[i].markers, p); ok {
			return nil
		}
	}
	return errTapMissed
}
