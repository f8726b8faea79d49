package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogLevel определяет уровни логирования
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel разбирает уровень из конфигурации. Неизвестное значение даёт INFO.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return TRACE
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// Options задаёт параметры системы логирования
type Options struct {
	Dir          string   // Каталог для файлов логов, пусто - без файлов
	ConsoleLevel LogLevel // Минимальный уровень для консоли
	FileLevel    LogLevel // Минимальный уровень для файла
}

// Logger представляет логгер одного компонента
type Logger struct {
	component       string
	consoleLogger   *log.Logger
	fileLogger      *log.Logger
	file            *os.File
	minConsoleLevel LogLevel
	minFileLevel    LogLevel
}

var (
	settingsMu  sync.RWMutex
	settings    Options
	initialized bool

	// defaultLogger обслуживает пакетные функции LogInfo и т.д.
	defaultLogger *Logger
)

// InitLogger инициализирует систему логирования.
// До вызова все логгеры молчат.
func InitLogger(opts Options) error {
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return fmt.Errorf("ошибка создания директории логов: %w", err)
		}
	}

	settingsMu.Lock()
	settings = opts
	initialized = true
	settingsMu.Unlock()

	logger, err := NewLogger("server")
	if err != nil {
		return err
	}

	settingsMu.Lock()
	defaultLogger = logger
	settingsMu.Unlock()
	return nil
}

// NewLogger создаёт логгер компонента согласно текущим настройкам
func NewLogger(component string) (*Logger, error) {
	settingsMu.RLock()
	opts := settings
	ready := initialized
	settingsMu.RUnlock()

	if !ready {
		return NewWriterLogger(component, io.Discard, ERROR+1), nil
	}

	logger := NewWriterLogger(component, os.Stdout, opts.ConsoleLevel)
	if opts.Dir == "" {
		return logger, nil
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := filepath.Join(opts.Dir, fmt.Sprintf("%s_%s.log", component, timestamp))
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания файла логов: %w", err)
	}

	logger.file = file
	logger.fileLogger = log.New(file, "", log.LstdFlags)
	logger.minFileLevel = opts.FileLevel
	return logger, nil
}

// NewWriterLogger создаёт логгер, пишущий в произвольный поток
func NewWriterLogger(component string, w io.Writer, level LogLevel) *Logger {
	return &Logger{
		component:       component,
		consoleLogger:   log.New(w, "", log.LstdFlags),
		minConsoleLevel: level,
		minFileLevel:    ERROR + 1,
	}
}

// Close закрывает файл логгера
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.fileLogger = nil
	return err
}

// Component возвращает имя компонента
func (l *Logger) Component() string {
	return l.component
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if l == nil {
		return
	}
	if level < l.minConsoleLevel && (l.fileLogger == nil || level < l.minFileLevel) {
		return
	}

	message := fmt.Sprintf("[%s] [%s] %s", level.String(), l.component, fmt.Sprintf(format, args...))

	if l.fileLogger != nil && level >= l.minFileLevel {
		l.fileLogger.Println(message)
	}
	if level >= l.minConsoleLevel {
		l.consoleLogger.Println(message)
	}
}

// Trace логирует сообщение уровня TRACE
func (l *Logger) Trace(format string, args ...interface{}) { l.log(TRACE, format, args...) }

// Debug логирует сообщение уровня DEBUG
func (l *Logger) Debug(format string, args ...interface{}) { l.log(DEBUG, format, args...) }

// Info логирует сообщение уровня INFO
func (l *Logger) Info(format string, args ...interface{}) { l.log(INFO, format, args...) }

// Warn логирует сообщение уровня WARN
func (l *Logger) Warn(format string, args ...interface{}) { l.log(WARN, format, args...) }

// Error логирует сообщение уровня ERROR
func (l *Logger) Error(format string, args ...interface{}) { l.log(ERROR, format, args...) }

// CloseLogger закрывает систему логирования
func CloseLogger() {
	settingsMu.Lock()
	logger := defaultLogger
	defaultLogger = nil
	initialized = false
	settingsMu.Unlock()

	if logger != nil {
		logger.Close()
	}
	GetLoggerManager().CloseAll()
}

func current() *Logger {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return defaultLogger
}

// LogTrace логирует сообщение уровня TRACE
func LogTrace(format string, args ...interface{}) { current().log(TRACE, format, args...) }

// LogDebug логирует сообщение уровня DEBUG
func LogDebug(format string, args ...interface{}) { current().log(DEBUG, format, args...) }

// LogInfo логирует сообщение уровня INFO
func LogInfo(format string, args ...interface{}) { current().log(INFO, format, args...) }

// LogWarn логирует сообщение уровня WARN
func LogWarn(format string, args ...interface{}) { current().log(WARN, format, args...) }

// LogError логирует сообщение уровня ERROR
func LogError(format string, args ...interface{}) { current().log(ERROR, format, args...) }
