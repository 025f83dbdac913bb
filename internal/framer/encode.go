package framer

// Encode 把一条消息编码为出站帧：去掉 0 字节与内嵌换行，末尾追加一个 '\n'。
func Encode(text string) []byte {
	out := make([]byte, 0, len(text)+1)
	for i := 0; i < len(text); i++ {
		switch c := text[i]; c {
		case 0, '\n':
			continue
		default:
			out = append(out, c)
		}
	}
	return append(out, '\n')
}
