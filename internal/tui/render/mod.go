package render

// Rect 是渲染区域，单位为终端单元格。
type Rect struct {
	Width, Height int
}

// Empty 表示区域放不下任何内容。
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}
