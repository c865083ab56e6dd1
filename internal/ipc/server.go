package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"log/slog"

	"coldrig/internal/daemon"
	"coldrig/internal/logging"
)

// Server exposes daemon queries via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Coldrig", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually before the next start"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.RigStatus = status.RigStatus
	resp.TemperatureC = status.TemperatureC
	resp.HumidityPct = status.HumidityPct
	resp.SetPointC = status.SetPointC
	resp.Slots = append(resp.Slots, status.Slots...)
	resp.StoreDBPath = status.StoreDBPath
	resp.LockPath = status.LockFilePath
	resp.LogPath = status.LogFilePath
	resp.StatusProblem = status.StatusProblem
	resp.PID = os.Getpid()
	return nil
}

func (s *service) Events(req EventsRequest, resp *EventsResponse) error {
	events, err := s.daemon.RecentEvents(s.ctx, req.Limit)
	if err != nil {
		return err
	}
	resp.Events = make([]Event, 0, len(events))
	for _, event := range events {
		resp.Events = append(resp.Events, Event{
			ID:      event.ID,
			At:      event.At,
			Type:    event.Type,
			Slot:    event.Slot,
			Message: event.Message,
		})
	}
	return nil
}

func (s *service) Sweeps(req SweepsRequest, resp *SweepsResponse) error {
	runs, err := s.daemon.RecentSweeps(s.ctx, req.Slot, req.Limit)
	if err != nil {
		return err
	}
	resp.Runs = make([]SweepRun, 0, len(runs))
	for _, run := range runs {
		resp.Runs = append(resp.Runs, SweepRun{
			ID:         run.ID,
			Slot:       run.Slot,
			StartedAt:  run.StartedAt,
			FinishedAt: run.FinishedAt,
			Points:     run.Points,
			Outcome:    run.Outcome,
			Error:      run.Error,
			Path:       run.Path,
		})
	}
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
