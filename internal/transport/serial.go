package transport

import (
	"context"
	"fmt"
	"io"
	"os"

	xterm "github.com/charmbracelet/x/term"
)

// SerialDialer 打开串口设备（如 /dev/ttyACM0）并切换为原始模式。
type SerialDialer struct {
	Device string
}

// Dial 实现 Dialer。
func (d SerialDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(d.Device, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Device, err)
	}
	return makeRaw(f)
}

// rawTTY 在关闭时恢复终端属性。
type rawTTY struct {
	*os.File
	state *xterm.State
}

func makeRaw(f *os.File) (io.ReadWriteCloser, error) {
	if !xterm.IsTerminal(f.Fd()) {
		return f, nil
	}
	state, err := xterm.MakeRaw(f.Fd())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("raw mode %s: %w", f.Name(), err)
	}
	return &rawTTY{File: f, state: state}, nil
}

func (r *rawTTY) Close() error {
	_ = xterm.Restore(r.File.Fd(), r.state)
	return r.File.Close()
}
