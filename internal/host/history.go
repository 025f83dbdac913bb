package host

import "sync"

// defaultHistoryTurns 是保留的历史问答轮数。
const defaultHistoryTurns = 10

type turn struct {
	prompt string
	reply  string
}

// history 保存最近 limit 轮问答，供回复源拼接上下文。
type history struct {
	mu    sync.Mutex
	limit int
	turns []turn
}

func newHistory(limit int) *history {
	if limit <= 0 {
		limit = defaultHistoryTurns
	}
	return &history{limit: limit}
}

func (h *history) snapshot() []turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]turn(nil), h.turns...)
}

func (h *history) record(prompt, reply string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, turn{prompt: prompt, reply: reply})
	if extra := len(h.turns) - h.limit; extra > 0 {
		h.turns = append([]turn(nil), h.turns[extra:]...)
	}
}

func (h *history) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
}
