package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	xterm "github.com/charmbracelet/x/term"
	"github.com/creack/pty"
)

// PTYDialer 在伪终端中启动宿主命令（默认 `linechat host --stdio`），
// 用它的标准输入输出作为链路。
type PTYDialer struct {
	Command string
	Env     []string
}

// Dial 实现 Dialer。
func (d PTYDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	command := strings.TrimSpace(d.Command)
	if command == "" {
		return nil, errors.New("pty: empty command")
	}
	shell := strings.TrimSpace(os.Getenv("SHELL"))
	if shell == "" {
		shell = "/bin/sh"
	}
	cmd := exec.Command(shell, "-c", command)
	cmd.Env = append(os.Environ(), d.Env...)
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("pty start %q: %w", command, err)
	}
	// 关闭回显与行规程，否则写入的帧会被原样读回。
	if _, err := xterm.MakeRaw(ptmx.Fd()); err != nil {
		_ = ptmx.Close()
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, fmt.Errorf("pty raw mode: %w", err)
	}
	return &ptyConn{File: ptmx, cmd: cmd}, nil
}

type ptyConn struct {
	*os.File
	cmd  *exec.Cmd
	once sync.Once
}

func (p *ptyConn) Close() error {
	var err error
	p.once.Do(func() {
		err = p.File.Close()
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
		_ = p.cmd.Wait()
	})
	return err
}
