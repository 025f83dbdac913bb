package host

import (
	"context"
	"io"
)

type stdio struct {
	io.Reader
	io.Writer
}

// ServeStdio 在一对读写流上应答，供 pty 链路启动的 `linechat host --stdio` 使用。
func (b *Bridge) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	return b.Serve(ctx, stdio{Reader: in, Writer: out})
}
