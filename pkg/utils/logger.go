package utils

// logger.go - структурированное логирование на базе zap
//
// Функции:
// - InitLogger: создать logger по конфигурации (json/text, уровень, файл)
// - глобальный logger: InitGlobalLogger, SetGlobalLogger, L()
// - хелперы With* и конструкторы доменных полей

import (
	"os"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig - настройки логирования
type LogConfig struct {
	Level       string // debug, info, warn, error, fatal
	Format      string // json или text
	Output      string // путь к файлу, пусто = stderr
	Development bool   // stacktrace на warn и человекочитаемое время
}

// Logger - обёртка над zap.Logger с доступом к sugared API
type Logger struct {
	*zap.Logger
	sugar *zap.SugaredLogger
}

var (
	globalLogger *Logger
	globalMu     sync.RWMutex
)

// InitLogger создаёт logger по конфигурации
//
// Никогда не возвращает nil: при ошибке открытия файла пишет в stderr.
func InitLogger(cfg LogConfig) *Logger {
	level := parseLevel(cfg.Level)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Development {
		encCfg = zap.NewDevelopmentEncoderConfig()
	}

	var encoder zapcore.Encoder
	if strings.EqualFold(cfg.Format, "text") || strings.EqualFold(cfg.Format, "console") {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	sink := zapcore.AddSync(os.Stderr)
	if cfg.Output != "" {
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err == nil {
			sink = zapcore.AddSync(f)
		}
	}

	core := zapcore.NewCore(encoder, sink, level)

	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Development {
		opts = append(opts, zap.Development(), zap.AddStacktrace(zapcore.WarnLevel))
	}

	z := zap.New(core, opts...)
	return &Logger{Logger: z, sugar: z.Sugar()}
}

// parseLevel преобразует строку в уровень zap (по умолчанию info)
func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// ============================================================
// Глобальный logger
// ============================================================

// InitGlobalLogger создаёт logger и делает его глобальным
func InitGlobalLogger(cfg LogConfig) *Logger {
	logger := InitLogger(cfg)
	SetGlobalLogger(logger)
	return logger
}

// SetGlobalLogger устанавливает глобальный logger
func SetGlobalLogger(logger *Logger) {
	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()
}

// GetGlobalLogger возвращает глобальный logger, создавая logger по умолчанию при первом вызове
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = InitLogger(LogConfig{})
	}
	return globalLogger
}

// NewNopLogger возвращает logger, который ничего не пишет (тесты)
func NewNopLogger() *Logger {
	z := zap.NewNop()
	return &Logger{Logger: z, sugar: z.Sugar()}
}

// L - короткий алиас GetGlobalLogger
func L() *Logger {
	return GetGlobalLogger()
}

// ============================================================
// Методы Logger
// ============================================================

// With возвращает дочерний logger с дополнительными полями
func (l *Logger) With(fields ...zap.Field) *Logger {
	z := l.Logger.With(fields...)
	return &Logger{Logger: z, sugar: z.Sugar()}
}

// WithComponent - дочерний logger для компонента (scanner, executor, api)
func (l *Logger) WithComponent(name string) *Logger {
	return l.With(Component(name))
}

// WithAccount - дочерний logger для маржинального счёта
func (l *Logger) WithAccount(address string) *Logger {
	return l.With(Account(address))
}

// WithMarket - дочерний logger для рынка
func (l *Logger) WithMarket(market string) *Logger {
	return l.With(Market(market))
}

// WithCycle - дочерний logger для цикла сканирования
func (l *Logger) WithCycle(cycle int64) *Logger {
	return l.With(Cycle(cycle))
}

// Sugar возвращает sugared logger для printf-стиля
func (l *Logger) Sugar() *zap.SugaredLogger {
	return l.sugar
}

// ============================================================
// Глобальные функции логирования
// ============================================================

func Debug(msg string, fields ...zap.Field) { L().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { L().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { L().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { L().Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { L().Fatal(msg, fields...) }

func Debugf(format string, args ...interface{}) { L().sugar.Debugf(format, args...) }
func Infof(format string, args ...interface{})  { L().sugar.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { L().sugar.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { L().sugar.Errorf(format, args...) }

// ============================================================
// Конструкторы доменных полей
// ============================================================

func Account(address string) zap.Field { return zap.String("account", address) }
func Owner(owner string) zap.Field     { return zap.String("owner", owner) }
func Market(name string) zap.Field     { return zap.String("market", name) }
func Token(symbol string) zap.Field    { return zap.String("token", symbol) }
func Phase(phase string) zap.Field     { return zap.String("phase", phase) }
func Side(side string) zap.Field       { return zap.String("side", side) }
func OrderID(id string) zap.Field      { return zap.String("order_id", id) }
func Cycle(n int64) zap.Field          { return zap.Int64("cycle", n) }
func Component(name string) zap.Field  { return zap.String("component", name) }
func RequestID(id string) zap.Field    { return zap.String("request_id", id) }

// Latency - длительность в миллисекундах
func Latency(ms float64) zap.Field { return zap.Float64("latency_ms", ms) }

// Decimal-поля пишутся строкой, чтобы не терять точность
func Ratio(v decimal.Decimal) zap.Field  { return zap.Stringer("ratio", v) }
func Amount(v decimal.Decimal) zap.Field { return zap.Stringer("amount", v) }
func Price(v decimal.Decimal) zap.Field  { return zap.Stringer("price", v) }
func Size(v decimal.Decimal) zap.Field   { return zap.Stringer("size", v) }
func Dec(key string, v decimal.Decimal) zap.Field {
	return zap.Stringer(key, v)
}

// Переэкспорт стандартных конструкторов zap
var (
	String   = zap.String
	Int      = zap.Int
	Int64    = zap.Int64
	Float64  = zap.Float64
	Bool     = zap.Bool
	Duration = zap.Duration
	Err      = zap.Error
	Any      = zap.Any
)
