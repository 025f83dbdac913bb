// Package framer 实现换行分帧协议：接收端累积字节并抽取完整行，发送端编码出站帧。
package framer

import "bytes"

// DefaultCapacity 与设备端接收缓冲大小保持一致。
const DefaultCapacity = 1024

// LineFramer 将传输层的原始分块累积到定长缓冲，并按 '\n' 抽取帧。
//
// 缓冲最多保存 Cap()-1 个字节，超出部分静默丢弃（不复位缓冲）；0 字节从不入缓冲。
// 每次 Feed 至多抽取一行，剩余字节保留到下一次 Feed。
type LineFramer struct {
	buf     []byte
	n       int
	dropped uint64
}

// New 创建容量为 capacity 的分帧器，容量小于 2 时按 2 处理。
func New(capacity int) *LineFramer {
	if capacity < 2 {
		capacity = 2
	}
	return &LineFramer{buf: make([]byte, capacity)}
}

// Feed 追加 chunk 并尝试抽取一行（不含换行符）。
func (f *LineFramer) Feed(chunk []byte) (string, bool) {
	limit := len(f.buf) - 1
	for _, b := range chunk {
		if b == 0 {
			continue
		}
		if f.n >= limit {
			f.dropped++
			continue
		}
		f.buf[f.n] = b
		f.n++
	}

	k := bytes.IndexByte(f.buf[:f.n], '\n')
	if k < 0 {
		return "", false
	}
	line := string(f.buf[:k])
	rest := copy(f.buf, f.buf[k+1:f.n])
	f.n = rest
	return line, true
}

// Len 返回当前缓冲的字节数。
func (f *LineFramer) Len() int {
	return f.n
}

// Cap 返回缓冲容量。
func (f *LineFramer) Cap() int {
	return len(f.buf)
}

// Buffered 返回尚未成帧字节的副本。
func (f *LineFramer) Buffered() []byte {
	return append([]byte(nil), f.buf[:f.n]...)
}

// Dropped 返回因缓冲已满而被丢弃的累计字节数。
func (f *LineFramer) Dropped() uint64 {
	return f.dropped
}

// Reset 清空缓冲，丢弃计数保持不变。
func (f *LineFramer) Reset() {
	f.n = 0
}
