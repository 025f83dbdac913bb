package logger

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ExchangeLogger 记录宿主与回复源之间的一问一答。
type ExchangeLogger interface {
	Prompt(responder string, text string, history int)
	Reply(responder string, text string, elapsed time.Duration)
	Error(responder string, err error)
}

// StdExchangeLogger 使用 logrus 输出日志。
type StdExchangeLogger struct {
	logger *logrus.Entry
}

// NewExchangeLogger 构造默认记录器；entry 为空时使用全局 logger。
func NewExchangeLogger(entry *LogEntry) *StdExchangeLogger {
	if entry == nil {
		entry = Named("")
	}
	return &StdExchangeLogger{logger: entry.WithField("component", "exchange")}
}

// Prompt 记录一条收到的提问。
func (l *StdExchangeLogger) Prompt(responder string, text string, history int) {
	l.printf(logrus.InfoLevel, "-> prompt responder=%s history=%d text=%s", responder, history, sanitize(text))
}

// Reply 记录一条发出的回复。
func (l *StdExchangeLogger) Reply(responder string, text string, elapsed time.Duration) {
	l.printf(logrus.InfoLevel, "<- reply responder=%s elapsed=%s text=%s", responder, elapsed.Round(time.Millisecond), sanitize(text))
}

// Error 记录回复失败。
func (l *StdExchangeLogger) Error(responder string, err error) {
	l.printf(logrus.ErrorLevel, "!! error responder=%s err=%v", responder, err)
}

// NoopExchangeLogger 忽略所有日志输出。
type NoopExchangeLogger struct{}

func (NoopExchangeLogger) Prompt(responder string, text string, history int)          {}
func (NoopExchangeLogger) Reply(responder string, text string, elapsed time.Duration) {}
func (NoopExchangeLogger) Error(responder string, err error)                          {}

func (l *StdExchangeLogger) printf(level logrus.Level, format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	if !l.logger.Logger.IsLevelEnabled(level) {
		return
	}

	msg := fmt.Sprintf(format, args...)
	entry := l.logger
	if caller := findCaller(); caller != "" {
		entry = entry.WithField("caller", caller)
	}
	entry.Log(level, msg)
}

func sanitize(text string) string {
	text = strings.ReplaceAll(text, "\n", `\n`)
	text = strings.ReplaceAll(text, "\r", `\r`)
	return text
}

func findCaller() string {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.File != "" && !strings.Contains(frame.File, "exchange.go") {
			return fmt.Sprintf("%s:%d", shortenFilePath(frame.File), frame.Line)
		}
		if !more {
			break
		}
	}
	return ""
}
