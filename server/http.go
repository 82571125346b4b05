package server

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
	"github.com/wfunc/trivia/logger"
	"github.com/wfunc/trivia/network"
)

const qrSize = 320

func (s *GameServer) routes() http.Handler {
	mux := httprouter.New()
	mux.GET("/ws", s.handleWebSocket)
	mux.GET("/healthz", s.handleHealth)
	mux.GET("/rooms/:id/qr", s.handleRoomQR)
	mux.Handler(http.MethodGet, "/metrics", s.monitor.Handler())
	return mux
}

// handleWebSocket upgrades the request and hands the connection to the loop.
// The handler returns right away; the loop owns the connection from here.
func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	if limit := s.cfg.Server.MaxFrameSize; limit > 0 {
		conn.SetReadLimit(int64(limit) + network.HeaderSize)
	}
	s.handoff(network.NewWSTransport(conn, 64, s.cfg.Server.Tick))
}

func (s *GameServer) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	stats, err := s.Stats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"players": stats.Players,
		"rooms":   stats.Rooms,
	})
}

// handleRoomQR renders a PNG QR code carrying the join address of a private
// room.
func (s *GameServer) handleRoomQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var private, found bool
	err := s.Do(r.Context(), func() {
		if room, ok := s.roomManager.GetRoom(id); ok {
			found = true
			private = room.Visibility == network.RoomTypePrivate
		}
	})
	switch {
	case err != nil:
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	case !found || !private:
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	png, err := qrcode.Encode(s.joinURI(r, id), qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// joinURI is what a client needs to join room id: the game address and the
// room id.
func (s *GameServer) joinURI(r *http.Request, id string) string {
	host := s.cfg.Server.IP
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host, _, _ = net.SplitHostPort(r.Host)
		if host == "" {
			host = r.Host
		}
	}
	port := s.cfg.Server.Port
	if s.listener != nil {
		if addr, ok := s.listener.Addr().(*net.TCPAddr); ok {
			port = addr.Port
		}
	}
	u := url.URL{
		Scheme:   "trivia",
		Host:     net.JoinHostPort(host, strconv.Itoa(port)),
		RawQuery: url.Values{"room_id": {id}}.Encode(),
	}
	return u.String()
}
