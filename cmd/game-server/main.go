package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lobby-platform/internal/broadcast"
	"lobby-platform/internal/config"
	"lobby-platform/internal/engine"
	"lobby-platform/internal/events"
	"lobby-platform/internal/lifecycle"
	"lobby-platform/internal/logging"
	"lobby-platform/internal/metrics"
	"lobby-platform/internal/rng"
	"lobby-platform/internal/room"
	"lobby-platform/internal/roomlock"
	"lobby-platform/internal/router"
	"lobby-platform/internal/socket"
	"lobby-platform/internal/storage/analytics"
	"lobby-platform/internal/store"
	"lobby-platform/internal/timer"
	"lobby-platform/internal/wire"

	// Blank-imported for their init() engine.Register side effects —
	// the closed factory switch in internal/engine/factory.go only
	// dispatches to kinds whose variant package has been linked in.
	_ "lobby-platform/internal/engine/candy"
	_ "lobby-platform/internal/engine/chess"
	_ "lobby-platform/internal/engine/ludo"
	_ "lobby-platform/internal/engine/memory"
	_ "lobby-platform/internal/engine/monopoly"
	_ "lobby-platform/internal/engine/poker"
	_ "lobby-platform/internal/engine/snakeladder"
	_ "lobby-platform/internal/engine/sudoku"
	_ "lobby-platform/internal/engine/tictactoe"
	_ "lobby-platform/internal/engine/twentyfortyeight"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // development default; a real deployment pins this
	},
}

// wsEmitter adapts *websocket.Conn to the transport-agnostic
// socket.Emitter interface so internal/socket never imports
// gorilla/websocket directly.
type wsEmitter struct {
	conn *websocket.Conn
}

func (e *wsEmitter) Emit(eventType string, payload any) error {
	return e.conn.WriteJSON(wire.Envelope{Type: wire.EventType(eventType), Payload: mustMarshal(payload)})
}

func (e *wsEmitter) Close() error { return e.conn.Close() }

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// Server holds every long-lived collaborator the websocket handler and
// REST surface share.
type Server struct {
	cfg       config.Config
	rooms     *room.Registry
	games     *store.GameStore
	sockets   *socket.Manager
	locks     *roomlock.Registry
	timers    *timer.Scheduler
	life      *lifecycle.Coordinator
	dispatch  *router.Router
	rngSystem *rng.System
	log       *logging.Backend
	registry  *prometheus.Registry
}

func newServer(cfg config.Config, logBackend *logging.Backend) (*Server, error) {
	rngSystem, err := rng.NewSystem(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize RNG: %w", err)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	rooms := room.NewRegistry(logBackend.Logger("ROOM"))
	games := store.New(logBackend.Logger("STOR"))
	sockets := socket.New(games, logBackend.Logger("SOCK"))
	locks := roomlock.New()

	var publisher *events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err = events.New(cfg.KafkaBrokers, "game-lifecycle", logBackend)
		if err != nil {
			log.Printf("events: kafka unavailable, falling back to no-op: %v", err)
			publisher = events.NewNoop()
		}
	} else {
		publisher = events.NewNoop()
	}

	var analyticsSink *analytics.Sink
	if cfg.ClickHouseDSN != "" {
		analyticsSink, err = analytics.Open(context.Background(), analytics.Config{Addr: cfg.ClickHouseDSN, Database: "default"})
		if err != nil {
			log.Printf("analytics: clickhouse unavailable, continuing without it: %v", err)
			analyticsSink = nil
		}
	}

	bc := broadcast.New(rooms, games, sockets, logBackend.Logger("BCST"))

	var coordinator *lifecycle.Coordinator
	timers := timer.New(locks, logBackend.Logger("TMR "), time.Duration(cfg.TurnTimeoutMs)*time.Millisecond, cfg.MaxAutoPlays, func(roomCode string, seatIndex int, playerID string) {
		coordinator.HandleTimerFired(roomCode, seatIndex, playerID)
	})

	coordinator = lifecycle.New(rooms, games, timers, locks, bc, func() rng.Source { return rngSystem }, publisher, analyticsSink, logBackend.Logger("LIFE"))

	dispatch := router.New(rooms, games, sockets, locks, timers, coordinator, m, logBackend.Logger("RTR "))

	return &Server{
		cfg: cfg, rooms: rooms, games: games, sockets: sockets, locks: locks,
		timers: timers, life: coordinator, dispatch: dispatch, rngSystem: rngSystem, log: logBackend,
		registry: reg,
	}, nil
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	socketID := uuid.NewString()
	emitter := &wsEmitter{conn: conn}

	playerID := c.Query("playerId")
	if playerID == "" {
		playerID = socketID
	}
	s.sockets.Register(socketID, playerID, emitter)
	defer s.sockets.Unregister(socketID)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket error: %v", err)
			}
			return
		}
		var env wire.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			emitter.Emit(string(wire.EventError), wire.ErrorPayload{Kind: "envelope", Message: "malformed message"})
			continue
		}
		s.dispatch.Dispatch(socketID, env)
	}
}

func (s *Server) handleRoomDebug(c *gin.Context) {
	code := room.Normalize(c.Param("code"))
	rm, ok := s.rooms.Get(code)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	resp := gin.H{
		"code":   rm.Code,
		"kind":   rm.Kind,
		"status": rm.Status,
		"seats":  rm.Seats,
	}
	if eng, ok := s.games.Peek(code); ok {
		resp["engineKind"] = eng.Kind()
		resp["isTerminal"] = eng.IsTerminal()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCreateRoom(c *gin.Context) {
	var req struct {
		Kind string `json:"kind"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	kind := engine.Kind(req.Kind)
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown game kind"})
		return
	}
	rm, err := s.rooms.Create(kind, s.cfg.MaxChatHistory)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"code": rm.Code})
}

func (s *Server) sweepStaleLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(s.cfg.StaleGameSweepIntervalMs) * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.games.CleanupStale(time.Duration(s.cfg.StaleGameMaxIdleMs) * time.Millisecond)
			s.rooms.CleanupStale(time.Duration(s.cfg.RoomIdleTTLMs) * time.Millisecond)
		}
	}
}

func main() {
	cfg := config.Load()
	logBackend := logging.NewStdout("info")
	appLog := logBackend.Logger("MAIN")

	srv, err := newServer(cfg, logBackend)
	if err != nil {
		log.Fatalf("failed to create game server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go srv.sweepStaleLoop(ctx)

	r := gin.Default()
	r.GET("/ws", srv.handleWebSocket)
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(srv.registry, promhttp.HandlerOpts{})))
	r.GET("/api/rooms/:code", srv.handleRoomDebug)
	r.POST("/api/rooms", srv.handleCreateRoom)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		appLog.Info("shutting down server")
		cancel()
		os.Exit(0)
	}()

	appLog.Infof("game server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
