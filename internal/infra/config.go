package infra

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config — корневая структура конфигурации всех процессов MindTussle.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Relay    RelayConfig    `mapstructure:"relay"`
	Guardian GuardianConfig `mapstructure:"guardian"`
	Database DatabaseConfig `mapstructure:"database"`
	Shield   ShieldConfig   `mapstructure:"shield"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig описывает настройки HTTP-сервера Relay.
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins string        `mapstructure:"allowed_origins"` // CORS, через запятую; "*" — все
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`  // Скриншоты в base64 бывают тяжелыми
}

// Addr возвращает адрес для http.Server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedisConfig описывает подключение к Redis (ячейки состояния и Pub/Sub).
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RelayConfig — хранилище ячеек и окна "протухания".
type RelayConfig struct {
	Store      string        `mapstructure:"store"` // memory | redis
	MissionTTL time.Duration `mapstructure:"mission_ttl"`
	DriftTTL   time.Duration `mapstructure:"drift_ttl"`
}

// GuardianConfig — настройки прокси к LLM-классификатору.
type GuardianConfig struct {
	Backend    string        `mapstructure:"backend"` // gemini | ollama
	APIKey     string        `mapstructure:"api_key"`
	Models     []string      `mapstructure:"models"`
	OllamaHost string        `mapstructure:"ollama_host"`
	Timeout    time.Duration `mapstructure:"timeout"`

	// Circuit Breaker и лимитер перед внешним API
	CBMaxRequests int           `mapstructure:"cb_max_requests"`
	CBInterval    time.Duration `mapstructure:"cb_interval"`
	CBTimeout     time.Duration `mapstructure:"cb_timeout"`
	CBFailures    int           `mapstructure:"cb_failures"`
	RateLimit     float64       `mapstructure:"rate_limit"` // запросов в секунду
	RateBurst     int           `mapstructure:"rate_burst"`
}

// DatabaseConfig описывает подключение к PostgreSQL для журнала вердиктов.
// Пустой URL выключает журнал в БД.
type DatabaseConfig struct {
	URL           string        `mapstructure:"url"`
	MaxConns      int32         `mapstructure:"max_conns"`
	MinConns      int32         `mapstructure:"min_conns"`
	BufferSize    int           `mapstructure:"buffer_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// ShieldConfig — фоновый поллер ("расширение").
type ShieldConfig struct {
	RelayURL     string        `mapstructure:"relay_url"`
	Listen       string        `mapstructure:"listen"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	PollTimeout  time.Duration `mapstructure:"poll_timeout"`
}

// MonitorConfig — цикл захвата экрана и классификации.
type MonitorConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	ErrorInterval time.Duration `mapstructure:"error_interval"`
	Heartbeat     time.Duration `mapstructure:"heartbeat"`
	Jitter        float64       `mapstructure:"jitter"`
	DataDir       string        `mapstructure:"data_dir"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// LoadConfig инициализирует конфигурацию, объединяя .env, файл и ENV.
func LoadConfig() (*Config, error) {
	// .env.local как в web-приложении; отсутствие файлов — не ошибка.
	// godotenv.Load не перезаписывает уже выставленные переменные.
	for _, f := range []string{".env.local", ".env"} {
		_ = godotenv.Load(f)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// SERVER_PORT=9000 перекроет server.port
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	// Ключ Gemini исторически живет в GEMINI_API_KEY
	_ = v.BindEnv("guardian.api_key", "GUARDIAN_API_KEY", "GEMINI_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет — работаем на ENV и дефолтах
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.allowed_origins", "*")
	v.SetDefault("server.max_body_bytes", 16<<20)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("relay.store", "memory")
	v.SetDefault("relay.mission_ttl", 30*time.Second)
	v.SetDefault("relay.drift_ttl", 15*time.Second)

	v.SetDefault("guardian.backend", "gemini")
	v.SetDefault("guardian.models", []string{"gemini-1.5-flash", "gemini-1.5-pro"})
	v.SetDefault("guardian.ollama_host", "http://localhost:11434")
	v.SetDefault("guardian.timeout", 30*time.Second)
	v.SetDefault("guardian.cb_max_requests", 3)
	v.SetDefault("guardian.cb_interval", 5*time.Second)
	v.SetDefault("guardian.cb_timeout", 30*time.Second)
	v.SetDefault("guardian.cb_failures", 5)
	v.SetDefault("guardian.rate_limit", 2.0)
	v.SetDefault("guardian.rate_burst", 4)

	v.SetDefault("database.max_conns", 5)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.buffer_size", 1000)
	v.SetDefault("database.flush_interval", 1*time.Second)

	v.SetDefault("shield.relay_url", "http://localhost:3000")
	v.SetDefault("shield.listen", "127.0.0.1:3131")
	v.SetDefault("shield.poll_interval", 1*time.Second)
	v.SetDefault("shield.poll_timeout", 800*time.Millisecond)

	v.SetDefault("monitor.interval", 5*time.Second)
	v.SetDefault("monitor.error_interval", 8*time.Second)
	v.SetDefault("monitor.heartbeat", 5*time.Second)
	v.SetDefault("monitor.jitter", 0.0)
	v.SetDefault("monitor.data_dir", ".mindtussle")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
}

// Validate отсекает заведомо неработоспособные значения.
func (c *Config) Validate() error {
	switch c.Relay.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("relay.store: unsupported value %q", c.Relay.Store)
	}
	switch c.Guardian.Backend {
	case "gemini", "ollama":
	default:
		return fmt.Errorf("guardian.backend: unsupported value %q", c.Guardian.Backend)
	}
	if c.Relay.MissionTTL <= 0 || c.Relay.DriftTTL <= 0 {
		return errors.New("relay: staleness windows must be positive")
	}
	if c.Shield.PollInterval <= 0 {
		return errors.New("shield.poll_interval must be positive")
	}
	return nil
}
