package utils

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

var (
	Print *log.Logger
	mu    sync.Mutex
)

// Init 按级别构建全局 logger，level 无法解析时退回 info
func Init(level string) {
	mu.Lock()
	defer mu.Unlock()
	Print = newLogger(level)
}

// Logger 返回全局 logger，未 Init 时使用默认配置
func Logger() *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	if Print == nil {
		Print = newLogger("info")
	}
	return Print
}

func newLogger(level string) *log.Logger {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
	if lv, err := log.ParseLevel(level); err == nil {
		l.SetLevel(lv)
	}

	styles := log.DefaultStyles()
	styles.Levels[log.InfoLevel] = lipgloss.NewStyle().
		SetString("INFO").
		Padding(0, 1, 0, 1).
		Background(lipgloss.Color("#90EE9080")).
		Foreground(lipgloss.Color("#006400FF")).Bold(true)

	styles.Levels[log.WarnLevel] = lipgloss.NewStyle().
		SetString("WARN").
		Padding(0, 1, 0, 1).
		Background(lipgloss.Color("#FFD700FF")).
		Foreground(lipgloss.Color("#000000FF")).Bold(true)

	styles.Levels[log.ErrorLevel] = lipgloss.NewStyle().
		SetString("ERROR").
		Padding(0, 1, 0, 1).
		Background(lipgloss.Color("#FF0000FF")).
		Foreground(lipgloss.Color("#00FFFF00")).Bold(true)

	styles.Levels[log.FatalLevel] = lipgloss.NewStyle().
		SetString("FATAL").
		Padding(0, 1, 0, 1).
		Background(lipgloss.Color("#000000FF")).
		Foreground(lipgloss.Color("#00FFFF00")).Bold(true)
	l.SetStyles(styles)
	return l
}

// Discard 测试用，丢弃全部输出
func Discard() *log.Logger {
	return log.New(io.Discard)
}
