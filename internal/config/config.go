package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"liquidator/pkg/crypto"
	"liquidator/pkg/utils"
)

// Config содержит всю конфигурацию приложения
//
// Загружается один раз при старте и передаётся в конструкторы явно.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Security   SecurityConfig
	Cluster    ClusterConfig
	Liquidator LiquidatorConfig
	RPC        RPCConfig
	Logging    LoggingConfig
}

// ServerConfig - HTTP сервер статуса (API, /metrics, /ws/stream)
type ServerConfig struct {
	Enabled         bool
	Port            int
	Host            string
	UseHTTPS        bool
	CertFile        string
	KeyFile         string
	ShutdownTimeout time.Duration
	AllowedOrigins  []string // CORS и WebSocket; пусто = все источники
}

// DatabaseConfig - журнал ликвидаций в PostgreSQL
type DatabaseConfig struct {
	Enabled      bool
	Driver       string
	Host         string
	Port         int
	Name         string
	User         string
	Password     string
	SSLMode      string
	MaxOpenConns int

	KeepNotifications int           // сколько последних уведомлений хранить
	Retention         time.Duration // срок хранения журнала; 0 = бессрочно
}

// SecurityConfig - доступ к API и ключ шифрования keypair
type SecurityConfig struct {
	APIUser         string
	APIPasswordHash string // bcrypt; пусто = API без авторизации
	EncryptionKey   string // hex или base64; пусто = keypair хранится открыто
}

// ClusterConfig - кластер и адреса группы после разрешения реестра
type ClusterConfig struct {
	Name         string
	RegistryPath string
	GroupName    string

	RPCURL       string
	GatewayURL   string
	ProgramID    string
	DexProgramID string
	GroupAddress string
}

// LiquidatorConfig - параметры цикла сканирования и ликвидации
type LiquidatorConfig struct {
	PollInterval       time.Duration
	SafetyBufferPct    decimal.Decimal // надбавка к дефициту при изъятии залога
	SellSlippagePct    decimal.Decimal // скидка к оракульной цене при продаже
	BuySlippagePct     decimal.Decimal // надбавка к оракульной цене при покупке
	CallTimeout        time.Duration   // дедлайн одной фазы
	RemediationTimeout time.Duration   // дедлайн всей обработки счёта
	ScanConcurrency    int
	SettleBorrows      bool
	KeypairPath        string
	DryRun             bool
}

// RPCConfig - клиент JSON-RPC шлюза
type RPCConfig struct {
	RequestTimeout time.Duration
	MaxRetries     int
	ReadRateLimit  float64 // запросов/сек
	WriteRateLimit float64
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level       string
	Format      string
	Output      string
	Development bool
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Enabled:         getEnvAsBool("SERVER_ENABLED", true),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			UseHTTPS:        getEnvAsBool("USE_HTTPS", false),
			CertFile:        getEnv("CERT_FILE", ""),
			KeyFile:         getEnv("KEY_FILE", ""),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
			AllowedOrigins:  getEnvAsSlice("ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Enabled:      getEnvAsBool("JOURNAL_ENABLED", true),
			Driver:       getEnv("DB_DRIVER", "postgres"),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			Name:         getEnv("DB_NAME", "liquidator"),
			User:         getEnv("DB_USER", "liquidator"),
			Password:     getEnv("DB_PASSWORD", ""),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 10),

			KeepNotifications: getEnvAsInt("NOTIFICATIONS_KEEP", 1000),
			Retention:         getEnvAsDuration("JOURNAL_RETENTION", 0),
		},
		Security: SecurityConfig{
			APIUser:         getEnv("API_USER", "operator"),
			APIPasswordHash: getEnv("API_PASSWORD_HASH", ""),
			EncryptionKey:   getEnv("ENCRYPTION_KEY", ""),
		},
		Cluster: ClusterConfig{
			Name:         getEnv("CLUSTER", "devnet"),
			RegistryPath: getEnv("CLUSTER_REGISTRY", ""),
			GroupName:    getEnv("GROUP_NAME", "BTC_ETH_USDC"),
		},
		Liquidator: LiquidatorConfig{
			PollInterval:       getEnvAsDuration("POLL_INTERVAL", 10*time.Second),
			SafetyBufferPct:    getEnvAsDecimal("SAFETY_BUFFER_PCT", decimal.NewFromInt(1)),
			SellSlippagePct:    getEnvAsDecimal("SELL_SLIPPAGE_PCT", decimal.NewFromInt(5)),
			BuySlippagePct:     getEnvAsDecimal("BUY_SLIPPAGE_PCT", decimal.NewFromInt(5)),
			CallTimeout:        getEnvAsDuration("CALL_TIMEOUT", 30*time.Second),
			RemediationTimeout: getEnvAsDuration("REMEDIATION_TIMEOUT", 2*time.Minute),
			ScanConcurrency:    getEnvAsInt("SCAN_CONCURRENCY", 16),
			SettleBorrows:      getEnvAsBool("SETTLE_BORROWS", true),
			KeypairPath:        getEnv("KEYPAIR_PATH", ""),
			DryRun:             getEnvAsBool("DRY_RUN", false),
		},
		RPC: RPCConfig{
			RequestTimeout: getEnvAsDuration("RPC_REQUEST_TIMEOUT", 10*time.Second),
			MaxRetries:     getEnvAsInt("RPC_MAX_RETRIES", 3),
			ReadRateLimit:  getEnvAsFloat("RPC_READ_RATE_LIMIT", 20),
			WriteRateLimit: getEnvAsFloat("RPC_WRITE_RATE_LIMIT", 5),
		},
		Logging: LoggingConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Format:      getEnv("LOG_FORMAT", "json"),
			Output:      getEnv("LOG_OUTPUT", ""),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
	}

	if err := cfg.resolveCluster(); err != nil {
		return nil, err
	}

	if err := cfg.validateSecurity(); err != nil {
		return nil, err
	}

	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// resolveCluster заполняет адреса из реестра, переменные окружения имеют приоритет
func (c *Config) resolveCluster() error {
	registry, err := LoadRegistry(c.Cluster.RegistryPath)
	if err != nil {
		return err
	}
	ids, err := registry.Cluster(c.Cluster.Name)
	if err != nil {
		return err
	}

	c.Cluster.RPCURL = getEnv("RPC_URL", ids.RPCURL)
	c.Cluster.GatewayURL = getEnv("GATEWAY_URL", ids.GatewayURL)
	c.Cluster.ProgramID = getEnv("PROGRAM_ID", ids.ProgramID)
	c.Cluster.DexProgramID = getEnv("DEX_PROGRAM_ID", ids.DexProgramID)
	c.Cluster.GroupAddress = getEnv("GROUP_ADDRESS", ids.Groups[c.Cluster.GroupName])

	if c.Cluster.GatewayURL == "" {
		return fmt.Errorf("GATEWAY_URL is required for cluster %s", c.Cluster.Name)
	}
	if c.Cluster.GroupAddress == "" {
		return fmt.Errorf("GROUP_ADDRESS is required: group %s is not in the %s registry", c.Cluster.GroupName, c.Cluster.Name)
	}
	if err := utils.ValidateAddress(c.Cluster.GroupAddress); err != nil {
		return fmt.Errorf("GROUP_ADDRESS: %w", err)
	}
	return nil
}

// validateSecurity проверяет ключи и доступ
func (c *Config) validateSecurity() error {
	// Без keypair ликвидатор не может подписывать изъятие залога
	if c.Liquidator.KeypairPath == "" {
		return fmt.Errorf("KEYPAIR_PATH is required")
	}

	if c.Security.EncryptionKey != "" {
		if _, err := crypto.ParseKey(c.Security.EncryptionKey); err != nil {
			return fmt.Errorf("ENCRYPTION_KEY must be 32 bytes encoded as hex or base64")
		}
	}

	if c.Security.APIPasswordHash != "" && c.Security.APIUser == "" {
		return fmt.Errorf("API_USER is required when API_PASSWORD_HASH is set")
	}

	return nil
}

// validateRanges проверяет числовые диапазоны параметров
func (c *Config) validateRanges() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	l := c.Liquidator
	if l.PollInterval < time.Second {
		return fmt.Errorf("POLL_INTERVAL must be at least 1s, got %v", l.PollInterval)
	}

	for name, v := range map[string]decimal.Decimal{
		"SAFETY_BUFFER_PCT": l.SafetyBufferPct,
		"SELL_SLIPPAGE_PCT": l.SellSlippagePct,
		"BUY_SLIPPAGE_PCT":  l.BuySlippagePct,
	} {
		if err := utils.ValidatePercent(name, utils.ToFloat(v), 50); err != nil {
			return err
		}
	}

	if l.CallTimeout <= 0 {
		return fmt.Errorf("CALL_TIMEOUT must be positive, got %v", l.CallTimeout)
	}

	if l.RemediationTimeout < l.CallTimeout {
		return fmt.Errorf("REMEDIATION_TIMEOUT (%v) must not be shorter than CALL_TIMEOUT (%v)", l.RemediationTimeout, l.CallTimeout)
	}

	if l.ScanConcurrency < 1 || l.ScanConcurrency > 256 {
		return fmt.Errorf("SCAN_CONCURRENCY must be between 1 and 256, got %d", l.ScanConcurrency)
	}

	if c.RPC.MaxRetries < 1 || c.RPC.MaxRetries > 10 {
		return fmt.Errorf("RPC_MAX_RETRIES must be between 1 and 10, got %d", c.RPC.MaxRetries)
	}

	if c.RPC.RequestTimeout <= 0 {
		return fmt.Errorf("RPC_REQUEST_TIMEOUT must be positive, got %v", c.RPC.RequestTimeout)
	}

	if c.RPC.ReadRateLimit <= 0 || c.RPC.WriteRateLimit <= 0 {
		return fmt.Errorf("RPC rate limits must be positive")
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
