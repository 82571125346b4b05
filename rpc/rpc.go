package rpc

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/wfunc/trivia/logger"
	"github.com/wfunc/trivia/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "trivia.admin.v1.Admin"

const (
	defaultRecentGames = 10
	maxRecentGames     = 100
)

// Admin is what the admin service reads from. The game server implements it.
type Admin interface {
	Rooms(ctx context.Context) ([]models.RoomState, error)
	Stats(ctx context.Context) (models.ServerStats, error)
	RecentGames(ctx context.Context, limit int) ([]models.GameRecord, error)
}

type ListRoomsRequest struct{}

type ListRoomsResponse struct {
	Rooms []models.RoomState `json:"rooms"`
}

type StatsRequest struct{}

type StatsResponse struct {
	Stats models.ServerStats `json:"stats"`
}

type RecentGamesRequest struct {
	Limit int `json:"limit"`
}

type RecentGamesResponse struct {
	Games []models.GameRecord `json:"games"`
}

// AdminServer is the server API of the admin service.
type AdminServer interface {
	ListRooms(context.Context, *ListRoomsRequest) (*ListRoomsResponse, error)
	Stats(context.Context, *StatsRequest) (*StatsResponse, error)
	RecentGames(context.Context, *RecentGamesRequest) (*RecentGamesResponse, error)
}

type adminService struct {
	admin Admin
}

func (s *adminService) ListRooms(ctx context.Context, _ *ListRoomsRequest) (*ListRoomsResponse, error) {
	rooms, err := s.admin.Rooms(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListRoomsResponse{Rooms: rooms}, nil
}

func (s *adminService) Stats(ctx context.Context, _ *StatsRequest) (*StatsResponse, error) {
	stats, err := s.admin.Stats(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &StatsResponse{Stats: stats}, nil
}

func (s *adminService) RecentGames(ctx context.Context, req *RecentGamesRequest) (*RecentGamesResponse, error) {
	limit := req.Limit
	switch {
	case limit < 0:
		return nil, status.Errorf(codes.InvalidArgument, "limit must not be negative, got %d", limit)
	case limit == 0:
		limit = defaultRecentGames
	case limit > maxRecentGames:
		limit = maxRecentGames
	}
	games, err := s.admin.RecentGames(ctx, limit)
	if err != nil {
		return nil, toStatus(err)
	}
	return &RecentGamesResponse{Games: games}, nil
}

func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

func unaryHandler[Req any](call func(AdminServer, context.Context, *Req) (any, error), method string) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AdminServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AdminServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var adminServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ListRooms",
			Handler: unaryHandler(func(s AdminServer, ctx context.Context, in *ListRoomsRequest) (any, error) {
				return s.ListRooms(ctx, in)
			}, "ListRooms"),
		},
		{
			MethodName: "Stats",
			Handler: unaryHandler(func(s AdminServer, ctx context.Context, in *StatsRequest) (any, error) {
				return s.Stats(ctx, in)
			}, "Stats"),
		},
		{
			MethodName: "RecentGames",
			Handler: unaryHandler(func(s AdminServer, ctx context.Context, in *RecentGamesRequest) (any, error) {
				return s.RecentGames(ctx, in)
			}, "RecentGames"),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "trivia/admin",
}

func logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		logger.Log.Warnw("admin rpc failed", "method", info.FullMethod, "duration", time.Since(start), "error", err)
	} else {
		logger.Log.Debugw("admin rpc", "method", info.FullMethod, "duration", time.Since(start))
	}
	return resp, err
}

// Server manages the RPC listener.
type Server struct {
	grpc     *grpc.Server
	listener net.Listener
}

// NewServer creates a new RPC server on addr.
func NewServer(addr string, admin Admin) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewServerWithListener(listener, admin), nil
}

// NewServerWithListener serves admin on an existing listener.
func NewServerWithListener(listener net.Listener, admin Admin) *Server {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(logUnary))
	s.RegisterService(&adminServiceDesc, &adminService{admin: admin})
	return &Server{grpc: s, listener: listener}
}

// Addr is the address the server listens on.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Start serves RPC requests until Stop is called.
func (s *Server) Start() error {
	logger.Log.Infof("RPC server listening on %s", s.listener.Addr())
	err := s.grpc.Serve(s.listener)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

// Stop waits for running calls and closes the listener.
func (s *Server) Stop() {
	logger.Log.Info("Stopping RPC server.")
	s.grpc.GracefulStop()
}

// Client calls the admin service.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to an admin service at target. Extra options are appended
// to the defaults (plaintext transport, JSON codec).
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	defaults := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	}
	conn, err := grpc.NewClient(target, append(defaults, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

func (c *Client) ListRooms(ctx context.Context) ([]models.RoomState, error) {
	out := new(ListRoomsResponse)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/ListRooms", &ListRoomsRequest{}, out); err != nil {
		return nil, err
	}
	return out.Rooms, nil
}

func (c *Client) Stats(ctx context.Context) (models.ServerStats, error) {
	out := new(StatsResponse)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/Stats", &StatsRequest{}, out); err != nil {
		return models.ServerStats{}, err
	}
	return out.Stats, nil
}

func (c *Client) RecentGames(ctx context.Context, limit int) ([]models.GameRecord, error) {
	out := new(RecentGamesResponse)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/RecentGames", &RecentGamesRequest{Limit: limit}, out); err != nil {
		return nil, err
	}
	return out.Games, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
