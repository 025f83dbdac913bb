package host

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"linechat/internal/logger"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// LinkPath 是 WebSocket 链路的路径。
const LinkPath = "/link"

// Server 在 WebSocket 上为唯一的对端提供 Bridge。
type Server struct {
	bridge *Bridge
	logger *logger.LogEntry
	busy   atomic.Bool

	listener net.Listener
	http     *http.Server
}

func NewServer(bridge *Bridge, entry *logger.LogEntry) *Server {
	if entry == nil {
		entry = logger.Named("host")
	}
	srv := &Server{bridge: bridge, logger: entry}
	mux := http.NewServeMux()
	mux.HandleFunc(LinkPath, srv.handleLink)
	srv.http = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	return srv
}

// Listen 绑定地址；addr 端口为 0 时由系统分配。
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = ln
	return nil
}

// Addr 返回实际监听地址。
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// URL 返回客户端可用的链路地址。
func (s *Server) URL() string {
	addr, ok := s.Addr().(*net.TCPAddr)
	if !ok {
		return ""
	}
	host := addr.IP.String()
	if addr.IP.IsUnspecified() {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("ws://%s%s", net.JoinHostPort(host, strconv.Itoa(addr.Port)), LinkPath)
}

// Serve 处理连接直到 ctx 结束。
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("host: Listen must be called before Serve")
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(s.listener)
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.http.Shutdown(shutdownCtx)
		return nil
	}
}

func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	if !s.busy.CompareAndSwap(false, true) {
		http.Error(w, "peer already connected", http.StatusConflict)
		return
	}
	defer s.busy.Store(false)

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.WithError(err).Warn("websocket accept failed")
		return
	}
	defer ws.CloseNow()

	id := uuid.NewString()
	entry := s.logger.WithField("conn_id", id).WithField("remote", r.RemoteAddr)
	entry.Info("peer connected")

	ctx := r.Context()
	conn := websocket.NetConn(ctx, ws, websocket.MessageBinary)
	err = s.bridge.Serve(ctx, conn)
	if err != nil && !errors.Is(err, context.Canceled) {
		entry.WithError(err).Info("peer disconnected")
		return
	}
	ws.Close(websocket.StatusNormalClosure, "bye")
	entry.Info("peer disconnected")
}
