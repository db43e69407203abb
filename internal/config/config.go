package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации клиента.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Session SessionConfig `yaml:"session"`
	Replica ReplicaConfig `yaml:"replica"`
	Storage StorageConfig `yaml:"storage"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig описывает точку подключения и идентичность клиента.
type ServerConfig struct {
	URL     string `yaml:"url"`     // ws:// или wss:// адрес сервера присутствия
	Channel string `yaml:"channel"` // Канал (комната)
	Level   string `yaml:"level"`   // Уровень внутри канала
}

// SessionConfig — параметры жизненного цикла соединения.
type SessionConfig struct {
	RetryBaseMs   int `yaml:"retry_base_ms"`   // Базовый интервал переподключения
	RetryCapMs    int `yaml:"retry_cap_ms"`    // Потолок экспоненциального роста
	RetryJitterMs int `yaml:"retry_jitter_ms"` // Случайный разброс ±jitter
	KeepaliveSec  int `yaml:"keepalive_sec"`   // Период ping
	WatchdogMs    int `yaml:"watchdog_ms"`     // Порог сторожевого таймера отправки
}

// ReplicaConfig — параметры интерполяции удалённых сущностей.
type ReplicaConfig struct {
	InterpDelayMs    int `yaml:"interp_delay_ms"`    // Задержка рендера относительно серверного времени
	ExtrapolateCapMs int `yaml:"extrapolate_cap_ms"` // Потолок экстраполяции вперёд
	RetentionMs      int `yaml:"retention_ms"`       // Окно хранения семплов
	DespawnTTLMs     int `yaml:"despawn_ttl_ms"`     // TTL сущности без новых семплов
}

// StorageConfig — локальное хранилище для офлайн-продолжения.
type StorageConfig struct {
	DataPath string `yaml:"data_path"`
}

// MetricsConfig — Prometheus-эндпоинт.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// GetURL возвращает адрес сервера с приоритетом: config -> env -> default
func (s *ServerConfig) GetURL() string {
	return getStrWithEnvFallback(s.URL, "GAME_SERVER_URL", "ws://localhost:42666")
}

// GetChannel возвращает канал с поддержкой fallback значений
func (s *ServerConfig) GetChannel() string {
	return getStrWithEnvFallback(s.Channel, "GAME_CHANNEL", "DEFAULT")
}

// GetLevel возвращает уровень с поддержкой fallback значений
func (s *ServerConfig) GetLevel() string {
	return getStrWithEnvFallback(s.Level, "GAME_LEVEL", "ROOT")
}

// GetRetryBaseMs возвращает базовый интервал переподключения
func (s *SessionConfig) GetRetryBaseMs() int {
	return getIntWithEnvFallback(s.RetryBaseMs, "GAME_RETRY_BASE_MS", 2000)
}

// GetRetryCapMs возвращает потолок интервала переподключения
func (s *SessionConfig) GetRetryCapMs() int {
	return getIntWithEnvFallback(s.RetryCapMs, "GAME_RETRY_CAP_MS", 10000)
}

// GetRetryJitterMs возвращает разброс интервала переподключения
func (s *SessionConfig) GetRetryJitterMs() int {
	return getIntWithEnvFallback(s.RetryJitterMs, "GAME_RETRY_JITTER_MS", 400)
}

// GetKeepaliveSec возвращает период keepalive ping
func (s *SessionConfig) GetKeepaliveSec() int {
	return getIntWithEnvFallback(s.KeepaliveSec, "GAME_KEEPALIVE_SEC", 10)
}

// GetWatchdogMs возвращает порог сторожевого таймера отправки
func (s *SessionConfig) GetWatchdogMs() int {
	return getIntWithEnvFallback(s.WatchdogMs, "GAME_WATCHDOG_MS", 1200)
}

// GetInterpDelayMs возвращает задержку интерполяции
func (r *ReplicaConfig) GetInterpDelayMs() int {
	return getIntWithEnvFallback(r.InterpDelayMs, "GAME_INTERP_DELAY_MS", 150)
}

// GetExtrapolateCapMs возвращает потолок экстраполяции
func (r *ReplicaConfig) GetExtrapolateCapMs() int {
	return getIntWithEnvFallback(r.ExtrapolateCapMs, "GAME_EXTRAPOLATE_CAP_MS", 250)
}

// GetRetentionMs возвращает окно хранения семплов
func (r *ReplicaConfig) GetRetentionMs() int {
	return getIntWithEnvFallback(r.RetentionMs, "GAME_RETENTION_MS", 2000)
}

// GetDespawnTTLMs возвращает TTL сущности без семплов
func (r *ReplicaConfig) GetDespawnTTLMs() int {
	return getIntWithEnvFallback(r.DespawnTTLMs, "GAME_DESPAWN_TTL_MS", 3000)
}

// GetDataPath возвращает путь локального хранилища
func (s *StorageConfig) GetDataPath() string {
	return getStrWithEnvFallback(s.DataPath, "GAME_DATA_PATH", "data")
}

func getStrWithEnvFallback(configVal, envVar, defaultVal string) string {
	if configVal != "" {
		return configVal
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		return envVal
	}
	return defaultVal
}

func getIntWithEnvFallback(configVal int, envVar string, defaultVal int) int {
	if configVal > 0 {
		return configVal
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		if n, err := strconv.Atoi(envVal); err == nil && n > 0 {
			return n
		}
	}
	return defaultVal
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV GAME_CLIENT_CONFIG или возвращает пустой Config.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("GAME_CLIENT_CONFIG")
	}
	if path == "" {
		return &Config{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
