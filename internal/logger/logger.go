package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger/LogEntry/Fields 暴露底层类型，避免调用方直接依赖 logrus 包。
type Logger = logrus.Logger
type LogEntry = logrus.Entry
type Fields = logrus.Fields

const (
	// DefaultLogPath 默认日志文件路径；TUI 运行时终端被占用，日志只能写文件。
	DefaultLogPath = "logs/linechat.log"
	// StderrPath 让日志写到标准错误，供 --stdio 以外的无界面模式使用。
	StderrPath = "-"
)

var rootLogger = logrus.StandardLogger()

// Options 描述全局日志去向与级别，零值写 DefaultLogPath 并保持当前级别。
type Options struct {
	Path  string
	Level string
}

// Configure 设置全局日志格式与 caller 输出。
func Configure() {
	root().SetReportCaller(true)
	root().SetFormatter(PlainFormatter{})
}

// Setup 按 opts 重定向全局日志并设置级别。
// 返回的 closer 总是非 nil；path 为实际写入位置。级别非法时输出已切换，只返回错误。
func Setup(opts Options) (io.Closer, string, error) {
	w, path, err := openSink(opts.Path)
	if err != nil {
		return nopCloser{}, "", err
	}
	root().SetOutput(w)
	if err := SetLevel(opts.Level); err != nil {
		return w, path, err
	}
	return w, path, nil
}

// SetupComponentFile 创建独立的 logger，输出到 logPath 并附加 component 字段。
// 返回 entry、closer 及实际路径。
func SetupComponentFile(component, logPath string) (*LogEntry, io.Closer, string, error) {
	w, path, err := openSink(logPath)
	if err != nil {
		return nil, nil, "", err
	}
	l := logrus.New()
	l.SetReportCaller(true)
	l.SetFormatter(PlainFormatter{})
	l.SetOutput(w)
	l.SetLevel(root().GetLevel())

	entry := logrus.NewEntry(l)
	if component != "" {
		entry = entry.WithField("component", component)
	}
	return entry, w, path, nil
}

// SetLevel 解析并设置全局日志级别（trace/debug/info/warn/error），空字符串保持不变。
func SetLevel(level string) error {
	level = strings.TrimSpace(level)
	if level == "" {
		return nil
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	root().SetLevel(parsed)
	return nil
}

// SetRoot 覆盖全局 logger，传入 nil 时重置为标准 logger。
func SetRoot(l *Logger) {
	if l == nil {
		l = logrus.StandardLogger()
	}
	rootLogger = l
}

// Named 为指定组件创建入口，统一 component 字段。
func Named(component string) *LogEntry {
	entry := logrus.NewEntry(root())
	if component != "" {
		entry = entry.WithField("component", component)
	}
	return entry
}

func root() *logrus.Logger {
	if rootLogger == nil {
		rootLogger = logrus.StandardLogger()
	}
	return rootLogger
}

// PlainFormatter 输出 caller [timestamp] [LEVEL] [component] [s:会话 g:代次] message fields。
// session_id 只保留前 8 位，gen 为链路连接代次，二者都从普通字段中移出。
type PlainFormatter struct{}

const sessionTagLen = 8

// tagKeys 不作为 key=value 输出。
var tagKeys = map[string]bool{"component": true, "caller": true, "session_id": true, "gen": true}

// Format 实现 logrus Formatter。
func (PlainFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	if entry == nil {
		return []byte{}, nil
	}
	var sb strings.Builder
	if caller := formatCaller(entry); caller != "" {
		sb.WriteString(caller)
		sb.WriteByte(' ')
	}
	fmt.Fprintf(&sb, "[%s] [%s]", entry.Time.UTC().Format(time.RFC3339Nano), strings.ToUpper(entry.Level.String()))
	if component, ok := entry.Data["component"].(string); ok && component != "" {
		fmt.Fprintf(&sb, " [%s]", component)
	}
	if tag := connTag(entry.Data); tag != "" {
		fmt.Fprintf(&sb, " [%s]", tag)
	}
	sb.WriteByte(' ')
	sb.WriteString(entry.Message)
	if fields := formatFields(entry.Data); fields != "" {
		sb.WriteByte(' ')
		sb.WriteString(fields)
	}
	sb.WriteByte('\n')
	return []byte(sb.String()), nil
}

func formatCaller(entry *logrus.Entry) string {
	if entry.HasCaller() && entry.Caller != nil {
		return fmt.Sprintf("%s:%d", shortenFilePath(entry.Caller.File), entry.Caller.Line)
	}
	if caller, ok := entry.Data["caller"].(string); ok {
		return caller
	}
	return ""
}

func formatFields(fields logrus.Fields) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if !tagKeys[k] {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return strings.Join(parts, " ")
}

// connTag 合并会话标识与连接代次，如 "s:0f8fad5b g:3"。
func connTag(fields logrus.Fields) string {
	var parts []string
	if id, ok := fields["session_id"].(string); ok && id != "" {
		if len(id) > sessionTagLen {
			id = id[:sessionTagLen]
		}
		parts = append(parts, "s:"+id)
	}
	if gen, ok := fields["gen"]; ok {
		parts = append(parts, fmt.Sprintf("g:%v", gen))
	}
	return strings.Join(parts, " ")
}

var pathMarkers = []string{"/internal/", "/cmd/"}

func shortenFilePath(file string) string {
	file = filepath.ToSlash(file)
	for _, marker := range pathMarkers {
		if idx := strings.Index(file, marker); idx != -1 {
			return file[idx+1:]
		}
	}
	if idx := strings.Index(file, "/linechat/"); idx != -1 {
		return file[idx+len("/linechat/"):]
	}
	return filepath.Base(file)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// openSink 打开日志去向：StderrPath 为标准错误，其余按文件追加写入。
func openSink(logPath string) (io.WriteCloser, string, error) {
	switch logPath {
	case StderrPath:
		return nopCloser{os.Stderr}, StderrPath, nil
	case "":
		logPath = DefaultLogPath
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, "", err
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, "", err
	}
	return f, logPath, nil
}
