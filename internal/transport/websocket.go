package transport

import (
	"context"
	"fmt"
	"io"

	"github.com/coder/websocket"
)

// WebSocketDialer 通过 WebSocket 二进制消息承载字节流。
type WebSocketDialer struct {
	URL string
}

// Dial 实现 Dialer。
func (d WebSocketDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	conn, _, err := websocket.Dial(ctx, d.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", d.URL, err)
	}
	// NetConn 的 ctx 决定连接寿命，由 Link 负责关闭。
	return websocket.NetConn(context.Background(), conn, websocket.MessageBinary), nil
}
