// Package scroll 计算消息流的可见窗口与滚动偏移。
package scroll

const (
	// DefaultStep 是行高为 ReferenceLineHeight 时每次手动滚动的像素步长。
	DefaultStep = 20
	// ReferenceLineHeight 是 DefaultStep 对应的行高（8 像素字形）。
	ReferenceLineHeight = 8
)

// StepFor 按行高等比换算默认步长，保证至少滚动一个单位。
func StepFor(lineHeight int) int {
	if lineHeight <= 0 {
		return DefaultStep
	}
	step := DefaultStep * lineHeight / ReferenceLineHeight
	if step < 1 {
		return 1
	}
	return step
}

// MaxOffset 返回允许的最大偏移 max(0, total-viewport)。
func MaxOffset(total, viewport int) int {
	if total-viewport > 0 {
		return total - viewport
	}
	return 0
}

// ClampedOffset 将 requested 限制到 [0, MaxOffset(total, viewport)]。
func ClampedOffset(requested, total, viewport int) int {
	upper := MaxOffset(total, viewport)
	switch {
	case requested < 0:
		return 0
	case requested > upper:
		return upper
	default:
		return requested
	}
}

// Window 保存滚动状态。Offset 始终满足 0 <= Offset <= MaxOffset(total, Viewport)，
// 前提是调用方在内容高度变化后调用 Clamp 或 ToBottom。
type Window struct {
	Offset   int
	Viewport int
	Step     int
}

// New 创建视口高度为 viewport 的窗口。
func New(viewport, step int) Window {
	if step <= 0 {
		step = DefaultStep
	}
	if viewport < 0 {
		viewport = 0
	}
	return Window{Viewport: viewport, Step: step}
}

// Clamp 按新的内容高度重新约束偏移。
func (w *Window) Clamp(total int) {
	w.Offset = ClampedOffset(w.Offset, total, w.Viewport)
}

// Up 向上滚动一步。
func (w *Window) Up(total int) {
	w.Offset = ClampedOffset(w.Offset-w.step(), total, w.Viewport)
}

// Down 向下滚动一步。
func (w *Window) Down(total int) {
	w.Offset = ClampedOffset(w.Offset+w.step(), total, w.Viewport)
}

// ToBottom 跳到最新内容。
func (w *Window) ToBottom(total int) {
	w.Offset = MaxOffset(total, w.Viewport)
}

// JumpTo 让内容坐标 y 出现在视口顶部（受限于可滚动范围）。
func (w *Window) JumpTo(y, total int) {
	w.Offset = ClampedOffset(y, total, w.Viewport)
}

// SetViewport 更新视口高度并重新约束偏移。
func (w *Window) SetViewport(viewport, total int) {
	if viewport < 0 {
		viewport = 0
	}
	w.Viewport = viewport
	w.Clamp(total)
}

// AtBottom 判断是否已显示最新内容。
func (w Window) AtBottom(total int) bool {
	return w.Offset >= MaxOffset(total, w.Viewport)
}

func (w Window) step() int {
	if w.Step <= 0 {
		return DefaultStep
	}
	return w.Step
}
