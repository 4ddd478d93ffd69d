package logs

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// 定义日志级别常量（数值越大，级别越高）
const (
	LevelTrace   = iota // 0（最低，最详细）
	LevelDebug          // 1
	LevelVerbose        // 2
	LevelInfo           // 3
	LevelWarning        // 4
	LevelError          // 5（最高，最严重）
)

var (
	mu       sync.RWMutex
	logLevel = LevelInfo // 全局日志级别
	prefix   = ""        // 节点/进程标识，拼在每条日志前面
	logger   *Logger
)

// Logger 结构体
type Logger struct {
	traceLogger   *log.Logger
	debugLogger   *log.Logger
	verboseLogger *log.Logger
	infoLogger    *log.Logger
	warnLogger    *log.Logger
	errorLogger   *log.Logger
}

const logFlags = log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile

func newLogger(out, errOut io.Writer) *Logger {
	return &Logger{
		traceLogger:   log.New(out, "[TRACE]   ", logFlags),
		debugLogger:   log.New(out, "[DEBUG]   ", logFlags),
		verboseLogger: log.New(out, "[VERBOSE] ", logFlags),
		infoLogger:    log.New(out, "[INFO]    ", logFlags),
		warnLogger:    log.New(out, "[WARN]    ", logFlags),
		errorLogger:   log.New(errOut, "[ERROR]   ", logFlags),
	}
}

// 初始化全局 Logger 实例
func init() {
	logger = newLogger(os.Stdout, os.Stderr)
}

// SetLevel 设置全局日志级别
func SetLevel(level int) {
	mu.Lock()
	defer mu.Unlock()
	logLevel = level
}

// Level 当前日志级别
func Level() int {
	mu.RLock()
	defer mu.RUnlock()
	return logLevel
}

// ParseLevel 把配置里的字符串转换为级别
func ParseLevel(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "verbose":
		return LevelVerbose, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level: %q", s)
}

// SetPrefix 设置日志前缀（例如节点名）
func SetPrefix(p string) {
	mu.Lock()
	defer mu.Unlock()
	prefix = p
}

// SetOutput 重定向所有级别的输出（测试用）
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(w, w)
}

func emit(level int, l func(*Logger) *log.Logger, format string, v ...interface{}) {
	mu.RLock()
	if logLevel > level {
		mu.RUnlock()
		return
	}
	target := l(logger)
	p := prefix
	mu.RUnlock()

	if p != "" {
		format = p + " " + format
	}
	// calldepth 3：emit -> Info 等 -> 调用方
	_ = target.Output(3, fmt.Sprintf(format, v...))
}

// 包级别的日志方法
func Trace(format string, v ...interface{}) {
	emit(LevelTrace, func(lg *Logger) *log.Logger { return lg.traceLogger }, format, v...)
}

func Debug(format string, v ...interface{}) {
	emit(LevelDebug, func(lg *Logger) *log.Logger { return lg.debugLogger }, format, v...)
}

func Verbose(format string, v ...interface{}) {
	emit(LevelVerbose, func(lg *Logger) *log.Logger { return lg.verboseLogger }, format, v...)
}

func Info(format string, v ...interface{}) {
	emit(LevelInfo, func(lg *Logger) *log.Logger { return lg.infoLogger }, format, v...)
}

func Warn(format string, v ...interface{}) {
	emit(LevelWarning, func(lg *Logger) *log.Logger { return lg.warnLogger }, format, v...)
}

func Error(format string, v ...interface{}) {
	emit(LevelError, func(lg *Logger) *log.Logger { return lg.errorLogger }, format, v...)
}
