package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wfunc/trivia/broadcast"
	"github.com/wfunc/trivia/config"
	"github.com/wfunc/trivia/logger"
	"github.com/wfunc/trivia/monitor"
	"github.com/wfunc/trivia/network"
	"github.com/wfunc/trivia/persistence"
	"github.com/wfunc/trivia/question"
	"github.com/wfunc/trivia/room"
	"github.com/wfunc/trivia/rpc"
	"github.com/wfunc/trivia/services"
	"github.com/wfunc/trivia/session"
	"github.com/wfunc/trivia/timer"
	"golang.org/x/sync/errgroup"
)

var (
	ErrServerClosed  = errors.New("server: closed")
	errShuttingDown  = errors.New("server: shutting down")
	writeRetryPeriod = 5 * time.Millisecond
)

// connEvent is what a reader goroutine reports: bytes read, or the error
// that ended the stream.
type connEvent struct {
	id   network.ConnID
	data []byte
	err  error
}

// GameServer is the connection multiplexer. One loop goroutine owns every
// connection, player and room; other goroutines only block on I/O and hand
// their results to the loop over channels.
type GameServer struct {
	cfg      *config.Config
	ctx      context.Context
	cancel   context.CancelFunc
	upgrader websocket.Upgrader

	listener     net.Listener
	httpListener net.Listener
	httpServer   *http.Server
	rpcServer    *rpc.Server

	// owned by the loop goroutine
	conns       map[network.ConnID]*network.Connection
	pending     map[network.ConnID]struct{}
	nextID      network.ConnID
	closing     bool
	sessions    *session.Registry
	roomManager *room.Manager
	broadcaster *broadcast.RoomBroadcaster
	timers      *timer.Queue
	feed        *question.Feed
	handlers    map[string]handlerFunc

	records *services.RecordService
	monitor *monitor.Monitor

	accepted chan network.Transport
	events   chan connEvent
	calls    chan func()
	done     chan struct{}
}

// NewGameServer wires the server. store may be nil to run without a game
// archive.
func NewGameServer(cfg *config.Config, source question.Source, store persistence.Store) *GameServer {
	ctx, cancel := context.WithCancel(context.Background())
	s := &GameServer{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
		conns:    make(map[network.ConnID]*network.Connection),
		pending:  make(map[network.ConnID]struct{}),
		sessions: session.NewRegistry(),
		timers:   timer.NewQueue(),
		records:  services.NewRecordService(store, 64),
		monitor:  monitor.NewMonitor("trivia"),
		accepted: make(chan network.Transport),
		events:   make(chan connEvent, 256),
		calls:    make(chan func()),
		done:     make(chan struct{}),
	}

	s.feed = question.NewFeed(ctx, source, s.timers, question.FeedOptions{
		Batch:   cfg.Game.QuestionBatch,
		Timeout: cfg.Questions.Timeout,
		Retries: cfg.Questions.Retries,
		Backoff: cfg.Questions.Backoff,
	})

	// 初始化广播器
	s.broadcaster = broadcast.NewRoomBroadcaster(s, s.sessions)
	s.roomManager = room.NewRoomManager(room.Options{
		PublicCapacity: cfg.Game.PublicCapacity,
		WinThreshold:   cfg.Game.WinThreshold,
	}, s.broadcaster, s.feed)
	s.roomManager.SetRecorder(s.records)
	s.roomManager.SetObserver(s.monitor)
	s.handlers = s.routesTable()

	return s
}

// Listen opens the game, HTTP and RPC listeners. Run calls it when it has
// not been called yet.
func (s *GameServer) Listen() error {
	listener, err := net.Listen("tcp", s.cfg.Server.TCPAddress())
	if err != nil {
		return err
	}
	s.listener = listener

	if addr := s.cfg.Server.HTTPAddress; addr != "" {
		httpListener, err := net.Listen("tcp", addr)
		if err != nil {
			listener.Close()
			return err
		}
		s.httpListener = httpListener
		s.httpServer = &http.Server{
			Handler:           s.routes(),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	if addr := s.cfg.Server.RPCAddress; addr != "" {
		rpcServer, err := rpc.NewServer(addr, s)
		if err != nil {
			listener.Close()
			if s.httpListener != nil {
				s.httpListener.Close()
			}
			return err
		}
		s.rpcServer = rpcServer
	}
	return nil
}

// Addr is the game protocol listen address.
func (s *GameServer) Addr() net.Addr {
	return s.listener.Addr()
}

// HTTPAddr is the HTTP listen address, or nil when HTTP is disabled.
func (s *GameServer) HTTPAddr() net.Addr {
	if s.httpListener == nil {
		return nil
	}
	return s.httpListener.Addr()
}

// Run serves until ctx is cancelled. Connected players are told about the
// shutdown before their connections close.
func (s *GameServer) Run(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	defer s.cancel()
	logger.Log.Infof("Game server listening on %s", s.listener.Addr())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.loop(gctx)
	})
	g.Go(func() error {
		return s.acceptLoop()
	})
	g.Go(func() error {
		return s.records.Run(gctx)
	})

	if s.httpServer != nil {
		g.Go(func() error {
			logger.Log.Infof("HTTP server listening on %s", s.httpListener.Addr())
			if err := s.httpServer.Serve(s.httpListener); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return s.httpServer.Shutdown(shutdownCtx)
		})
	}

	if s.rpcServer != nil {
		g.Go(s.rpcServer.Start)
		g.Go(func() error {
			<-gctx.Done()
			s.rpcServer.Stop()
			return nil
		})
	}

	err := g.Wait()
	if cerr := s.records.Close(); cerr != nil {
		logger.Log.Warnw("failed to close game archive", "error", cerr)
	}
	logger.Log.Info("Game server stopped.")
	return err
}

// acceptLoop hands new TCP connections to the loop. It ends when the loop
// closes the listener.
func (s *GameServer) acceptLoop() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return nil
			default:
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.handoff(network.NewTCPTransport(conn, s.cfg.Server.WriteSlice))
	}
}

// handoff passes a new transport to the loop, or closes it when the loop is
// gone.
func (s *GameServer) handoff(t network.Transport) {
	select {
	case s.accepted <- t:
	case <-s.done:
		t.Close()
	}
}

// Do runs fn on the loop goroutine and waits for it to finish.
func (s *GameServer) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	call := func() {
		defer close(finished)
		fn()
	}
	select {
	case s.calls <- call:
	case <-s.done:
		return ErrServerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *GameServer) loop(ctx context.Context) error {
	defer close(s.done)

	tick := s.cfg.Server.Tick
	wait := time.NewTimer(tick)
	defer wait.Stop()
	lastTick := time.Now()

	for {
		s.flushPending()
		wait.Reset(s.nextWake(lastTick))

		select {
		case <-ctx.Done():
			s.shutdown()
			return nil
		case t := <-s.accepted:
			s.register(t)
		case ev := <-s.events:
			s.handleEvent(ev)
		case res := <-s.feed.Results():
			if s.feed.Handle(res) {
				s.roomManager.QuestionsLoaded(res.RoomID, res.Questions, res.Err)
			}
		case fn := <-s.calls:
			fn()
		case <-wait.C:
		}

		now := time.Now()
		s.timers.RunDue(now)
		if now.Sub(lastTick) >= tick {
			lastTick = now
			s.onTick()
		}
	}
}

// nextWake bounds the readiness wait: the next tick, the next timer, or a
// short retry period while writes are pending.
func (s *GameServer) nextWake(lastTick time.Time) time.Duration {
	d := s.cfg.Server.Tick - time.Since(lastTick)
	if d < 0 {
		d = 0
	}
	d = s.timers.Until(d)
	if len(s.pending) > 0 && d > writeRetryPeriod {
		d = writeRetryPeriod
	}
	return d
}

func (s *GameServer) onTick() {
	s.roomManager.Update()
	s.monitor.SetActiveRooms(s.roomManager.Len())
	s.monitor.SetPendingWrites(len(s.pending))
}

func (s *GameServer) register(t network.Transport) {
	if s.closing {
		t.Close()
		return
	}
	s.nextID++
	id := s.nextID
	c := network.NewConnection(id, t, s.cfg.Server.MaxFrameSize)
	s.conns[id] = c

	addr := ""
	if ra := t.RemoteAddr(); ra != nil {
		addr = ra.String()
	}
	p := s.sessions.Add(id, addr)
	s.monitor.IncOnlinePlayers()
	logger.Log.Infow("connection accepted", "conn", id, "player", p.ID, "addr", addr)

	go s.readLoop(id, t)
	s.broadcaster.SendTo(p, network.Message{
		Action:  network.ActionSetName,
		Message: "Welcome! Please enter your name:",
	})
}

// readLoop is the only goroutine that reads from t.
func (s *GameServer) readLoop(id network.ConnID, t network.Transport) {
	buf := make([]byte, s.cfg.Server.ReadBuffer)
	for {
		n, err := t.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			if !s.post(connEvent{id: id, data: data}) {
				return
			}
		}
		if err != nil {
			s.post(connEvent{id: id, err: err})
			return
		}
	}
}

func (s *GameServer) post(ev connEvent) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

func (s *GameServer) handleEvent(ev connEvent) {
	c, ok := s.conns[ev.id]
	if !ok {
		return // stale: the connection is already gone
	}
	if ev.err != nil {
		s.teardown(c, ev.err)
		return
	}

	c.Frames.Append(ev.data)
	for {
		msg, ok, err := c.Frames.Next()
		if errors.Is(err, network.ErrFrameTooLarge) {
			s.monitor.IncFrameErrors()
			s.teardown(c, err)
			return
		}
		if err != nil {
			s.monitor.IncFrameErrors()
			logger.Log.Debugw("undecodable frame", "conn", c.ID, "error", err)
			_ = s.Enqueue(c.ID, network.ErrorMessage("Invalid message format."))
			continue
		}
		if !ok {
			return
		}
		s.dispatch(c, msg)
		if _, live := s.conns[c.ID]; !live {
			return
		}
	}
}

// Enqueue queues msg on a connection and marks it for writing.
func (s *GameServer) Enqueue(id network.ConnID, msg network.Message) error {
	if s.closing && msg.Action != network.ActionServerShutdown {
		return errShuttingDown
	}
	c, ok := s.conns[id]
	if !ok {
		return net.ErrClosed
	}
	if err := c.Send(msg); err != nil {
		return err
	}
	s.pending[id] = struct{}{}
	return nil
}

func (s *GameServer) flushPending() {
	for id := range s.pending {
		c, ok := s.conns[id]
		if !ok {
			delete(s.pending, id)
			continue
		}
		if err := c.Flush(); err != nil {
			s.teardown(c, err)
			continue
		}
		if c.State == network.StateReading {
			delete(s.pending, id)
		}
	}
}

// teardown deregisters c, flushes what it can, closes the transport and then
// removes the player from the registry and its room.
func (s *GameServer) teardown(c *network.Connection, cause error) {
	if _, ok := s.conns[c.ID]; !ok {
		return
	}
	delete(s.conns, c.ID)
	delete(s.pending, c.ID)

	if c.Frames.Pending() > 0 {
		_ = c.Flush()
	}
	c.State = network.StateClosed
	_ = c.Transport.Close()

	p, ok := s.sessions.Remove(c.ID)
	if !ok {
		return
	}
	s.monitor.DecOnlinePlayers()
	logger.Log.Infow("connection closed", "conn", c.ID, "player", p.ID, "name", p.Name, "cause", cause)
	s.roomManager.RemovePlayer(p)
}

func (s *GameServer) shutdown() {
	s.closing = true
	logger.Log.Infow("shutting down", "connections", len(s.conns), "rooms", s.roomManager.Len())
	s.broadcaster.BroadcastToAll(network.Message{
		Action:  network.ActionServerShutdown,
		Message: "Server is shutting down. Goodbye!",
	})
	for _, c := range s.conns {
		s.teardown(c, errShuttingDown)
	}
	s.listener.Close()
}
