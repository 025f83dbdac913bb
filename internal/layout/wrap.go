// Package layout 负责把消息文本排版为定宽显示行，并计算气泡高度。
package layout

// Wrap 按列宽切分文本，优先在窗口内最后一个空格处断行，找不到空格时硬切。
//
// 断行处的空格被跳过不输出；达到 maxLines 后多余文本被截断。maxLines <= 0 表示不限行数，
// maxWidth <= 0 时整段文本作为一行返回。列宽按字节计算（单字节字符集）。
func Wrap(text string, maxWidth, maxLines int) []string {
	if text == "" {
		return nil
	}
	if maxWidth <= 0 {
		return []string{text}
	}
	lines := []string{}
	pos := 0
	for pos < len(text) && (maxLines <= 0 || len(lines) < maxLines) {
		lineLen := 0
		lastSpace := -1
		for pos+lineLen < len(text) && lineLen < maxWidth {
			if text[pos+lineLen] == ' ' {
				lastSpace = lineLen
			}
			lineLen++
		}
		if pos+lineLen < len(text) && lastSpace > 0 {
			lineLen = lastSpace
		}
		lines = append(lines, text[pos:pos+lineLen])
		pos += lineLen
		if pos < len(text) && text[pos] == ' ' {
			pos++
		}
	}
	return lines
}
