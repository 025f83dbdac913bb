package session

// composeBuffer 是定长输入缓冲，最多保存 capacity-1 个字符。
type composeBuffer struct {
	buf      []byte
	capacity int
}

func newComposeBuffer(capacity int) composeBuffer {
	if capacity < 2 {
		capacity = 2
	}
	return composeBuffer{buf: make([]byte, 0, capacity), capacity: capacity}
}

func (c *composeBuffer) insert(b byte) bool {
	if b == 0 || b == '\n' || b == '\r' {
		return false
	}
	if len(c.buf) >= c.capacity-1 {
		return false
	}
	c.buf = append(c.buf, b)
	return true
}

func (c *composeBuffer) backspace() bool {
	if len(c.buf) == 0 {
		return false
	}
	c.buf = c.buf[:len(c.buf)-1]
	return true
}

func (c *composeBuffer) reset() {
	c.buf = c.buf[:0]
}

func (c *composeBuffer) String() string {
	return string(c.buf)
}

func (c *composeBuffer) cursor() int {
	return len(c.buf)
}
