package utils

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newBufferLogger создаёт logger, пишущий JSON в буфер
func newBufferLogger(buf *bytes.Buffer, level zapcore.Level) *Logger {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			MessageKey: "message",
			LevelKey:   "level",
		}),
		zapcore.AddSync(buf),
		level,
	)
	z := zap.New(core)
	return &Logger{Logger: z, sugar: z.Sugar()}
}

// ============================================================
// Тесты InitLogger
// ============================================================

func TestInitLogger_Defaults(t *testing.T) {
	logger := InitLogger(LogConfig{})

	if logger == nil {
		t.Fatal("InitLogger returned nil")
	}
	if logger.Logger == nil {
		t.Fatal("Logger.Logger is nil")
	}
	if logger.sugar == nil {
		t.Fatal("Logger.sugar is nil")
	}
}

func TestInitLogger_Formats(t *testing.T) {
	for _, cfg := range []LogConfig{
		{Level: "info", Format: "json"},
		{Level: "debug", Format: "text"},
		{Level: "debug", Format: "console", Development: true},
	} {
		if InitLogger(cfg) == nil {
			t.Fatalf("InitLogger returned nil for %+v", cfg)
		}
	}
}

func TestInitLogger_FileOutput(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "logger_test_*.log")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())
	tmpFile.Close()

	logger := InitLogger(LogConfig{
		Level:  "info",
		Format: "json",
		Output: tmpFile.Name(),
	})

	logger.Info("Test message", Account("acc-1"))
	logger.Sync()

	content, err := os.ReadFile(tmpFile.Name())
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if len(content) == 0 {
		t.Fatal("Log file is empty")
	}

	var logEntry map[string]interface{}
	if err := json.Unmarshal(content, &logEntry); err != nil {
		t.Errorf("Log entry is not valid JSON: %v", err)
	}
	if logEntry["account"] != "acc-1" {
		t.Errorf("account field missing: %v", logEntry)
	}
}

func TestInitLogger_InvalidFileOutput(t *testing.T) {
	// Должен fallback на stderr, не паниковать
	logger := InitLogger(LogConfig{
		Level:  "info",
		Output: "/nonexistent/directory/log.txt",
	})

	if logger == nil {
		t.Fatal("InitLogger returned nil for invalid output")
	}
}

// ============================================================
// Тесты глобального логгера
// ============================================================

func TestGlobalLogger(t *testing.T) {
	globalMu.Lock()
	globalLogger = nil
	globalMu.Unlock()

	logger := GetGlobalLogger()
	if logger == nil {
		t.Fatal("GetGlobalLogger returned nil")
	}
	if logger != GetGlobalLogger() {
		t.Error("GetGlobalLogger returned different loggers")
	}
	if logger != L() {
		t.Error("L() returned different logger")
	}
}

func TestInitAndSetGlobalLogger(t *testing.T) {
	logger := InitGlobalLogger(LogConfig{Level: "debug", Format: "text"})
	if GetGlobalLogger() != logger {
		t.Error("Global logger was not set")
	}

	other := InitLogger(LogConfig{Level: "warn"})
	SetGlobalLogger(other)
	if GetGlobalLogger() != other {
		t.Error("SetGlobalLogger did not set the logger")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"invalid", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

// ============================================================
// Тесты методов Logger
// ============================================================

func TestLogger_WithHelpers(t *testing.T) {
	logger := InitLogger(LogConfig{Level: "info"})

	tests := []struct {
		name   string
		helper func() *Logger
	}{
		{"With", func() *Logger { return logger.With(zap.String("key", "value")) }},
		{"WithComponent", func() *Logger { return logger.WithComponent("scanner") }},
		{"WithAccount", func() *Logger { return logger.WithAccount("acc-1") }},
		{"WithMarket", func() *Logger { return logger.WithMarket("BTC/USDC") }},
		{"WithCycle", func() *Logger { return logger.WithCycle(42) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			newLogger := tt.helper()
			if newLogger == nil {
				t.Fatalf("%s returned nil", tt.name)
			}
			if newLogger == logger {
				t.Errorf("%s should return a new logger", tt.name)
			}
			if newLogger.Sugar() == nil {
				t.Errorf("%s: sugar is nil", tt.name)
			}
		})
	}
}

func TestGlobalLoggingFunctions(t *testing.T) {
	var buf bytes.Buffer
	testLogger := newBufferLogger(&buf, zapcore.DebugLevel)
	SetGlobalLogger(testLogger)

	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")
	Debugf("debug %s %d", "test", 1)
	Infof("info %s %d", "test", 2)
	Warnf("warn %s %d", "test", 3)
	Errorf("error %s %d", "test", 4)
	testLogger.Sync()

	output := buf.String()
	for _, want := range []string{
		"debug message", "info message", "warn message", "error message",
		"debug test 1", "info test 2", "warn test 3", "error test 4",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("%q not found in output", want)
		}
	}
}

func TestFieldConstructors(t *testing.T) {
	var buf bytes.Buffer
	testLogger := newBufferLogger(&buf, zapcore.InfoLevel)

	testLogger.Info("test",
		Account("acc-1"),
		Owner("owner-1"),
		Market("BTC/USDC"),
		Token("ETH"),
		Phase("SEIZING"),
		Side("sell"),
		OrderID("order-456"),
		Cycle(7),
		Component("scanner"),
		RequestID("req-789"),
		Latency(15.5),
		Ratio(decimal.RequireFromString("0.2667")),
		Amount(decimal.RequireFromString("14140")),
		Price(decimal.RequireFromString("1900")),
		Size(decimal.RequireFromString("2")),
		Dec("deficit", decimal.RequireFromString("14000")),
	)
	testLogger.Sync()
	output := buf.String()

	expected := []string{
		`"account":"acc-1"`,
		`"owner":"owner-1"`,
		`"market":"BTC/USDC"`,
		`"token":"ETH"`,
		`"phase":"SEIZING"`,
		`"side":"sell"`,
		`"order_id":"order-456"`,
		`"cycle":7`,
		`"component":"scanner"`,
		`"request_id":"req-789"`,
		`"latency_ms":15.5`,
		`"ratio":"0.2667"`,
		`"amount":"14140"`,
		`"price":"1900"`,
		`"size":"2"`,
		`"deficit":"14000"`,
	}
	for _, field := range expected {
		if !strings.Contains(output, field) {
			t.Errorf("Field %s not found in output: %s", field, output)
		}
	}
}

func TestReexportedFieldConstructors(t *testing.T) {
	_ = String("key", "value")
	_ = Int("key", 42)
	_ = Int64("key", 42)
	_ = Float64("key", 3.14)
	_ = Bool("key", true)
	_ = Duration("key", 0)
	_ = Err(nil)
	_ = Any("key", struct{}{})
}

// ============================================================
// Бенчмарки
// ============================================================

func BenchmarkLogger_Info(b *testing.B) {
	logger := InitLogger(LogConfig{
		Level:  "info",
		Format: "json",
		Output: "/dev/null",
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("Benchmark message",
			Account("acc-1"),
			zap.Int("count", i),
		)
	}
}
