package scroll

// Slot 表示一条与视口相交的消息。Top 为其相对视口顶部的坐标，可能为负（部分可见）。
type Slot struct {
	Index  int
	Top    int
	Height int
}

// Visible 返回 heights 所描述的消息流中与 [Offset, Offset+Viewport) 相交的消息。
func (w Window) Visible(heights []int) []Slot {
	var out []Slot
	y := -w.Offset
	for i, h := range heights {
		if y+h > 0 && y < w.Viewport {
			out = append(out, Slot{Index: i, Top: y, Height: h})
		}
		if y >= w.Viewport {
			break
		}
		y += h
	}
	return out
}

// TopOf 返回第 index 条消息在内容坐标系中的顶部位置。
func TopOf(heights []int, index int) int {
	y := 0
	for i := 0; i < index && i < len(heights); i++ {
		y += heights[i]
	}
	return y
}
