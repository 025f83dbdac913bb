package layout

// Metrics 描述气泡排版参数，单位由渲染后端决定（像素或终端行）。
type Metrics struct {
	WrapWidth  int
	MaxLines   int
	LineHeight int
	Padding    int
	Gap        int
}

// DefaultMetrics 对应 320x240 像素屏、4x8 字形的原始布局。
func DefaultMetrics() Metrics {
	return Metrics{
		WrapWidth:  35,
		MaxLines:   20,
		LineHeight: 8,
		Padding:    4,
		Gap:        5,
	}
}

// Lines 按当前参数排版文本。
func (m Metrics) Lines(text string) []string {
	return Wrap(text, m.WrapWidth, m.MaxLines)
}

// Height 返回文本排版后的气泡高度（含上下内边距与气泡间距）。
func (m Metrics) Height(text string) int {
	return m.HeightOf(len(m.Lines(text)))
}

// HeightOf 根据行数计算气泡高度。
func (m Metrics) HeightOf(lines int) int {
	return lines*m.LineHeight + 2*m.Padding + m.Gap
}

// WithWidth 返回替换列宽后的副本。
func (m Metrics) WithWidth(width int) Metrics {
	m.WrapWidth = width
	return m
}
