package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	analysisservice "codebattle/internal/analysis/service"
	"codebattle/internal/common/cache"
	"codebattle/internal/common/db"
	"codebattle/internal/common/docdb"
	commonmw "codebattle/internal/common/http/middleware"
	"codebattle/internal/common/mq"
	"codebattle/internal/common/storage"
	gameservice "codebattle/internal/game/service"
	"codebattle/internal/judge/executor"
	"codebattle/internal/problem/source"
	"codebattle/pkg/utils/logger"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:5000"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 90 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 15 * time.Second

	storeMySQL = "mysql"
	storeMongo = "mongo"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string              `yaml:"addr"`
	ReadTimeout     time.Duration       `yaml:"readTimeout"`
	WriteTimeout    time.Duration       `yaml:"writeTimeout"`
	IdleTimeout     time.Duration       `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration       `yaml:"shutdownTimeout"`
	CORS            commonmw.CORSConfig `yaml:"cors"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `yaml:"driver"`
}

// GameConfig holds room and submission settings.
type GameConfig struct {
	SessionCacheSize int                         `yaml:"sessionCacheSize"`
	SessionTTL       time.Duration               `yaml:"sessionTTL"`
	MaxCodeBytes     int                         `yaml:"maxCodeBytes"`
	EventTopic       string                      `yaml:"eventTopic"`
	ArchiveBucket    string                      `yaml:"archiveBucket"`
	ArchivePrefix    string                      `yaml:"archivePrefix"`
	Workers          int                         `yaml:"workers"`
	TaskTimeout      time.Duration               `yaml:"taskTimeout"`
	RateLimit        gameservice.RateLimitConfig `yaml:"rateLimit"`
	Timeouts         gameservice.TimeoutConfig   `yaml:"timeouts"`
}

// ProblemConfig holds problem pool settings.
type ProblemConfig struct {
	PoolFirst       bool          `yaml:"poolFirst"`
	PickTimeout     time.Duration `yaml:"pickTimeout"`
	RefreshInterval time.Duration `yaml:"refreshInterval"`
	RefreshBatch    int           `yaml:"refreshBatch"`
}

// AnalysisConfig holds AI analysis settings.
type AnalysisConfig struct {
	Gemini    analysisservice.GeminiConfig `yaml:"gemini"`
	Timeout   time.Duration                `yaml:"timeout"`
	ReportTTL time.Duration                `yaml:"reportTTL"`
}

// AppConfig holds battle-service configuration.
type AppConfig struct {
	Server      ServerConfig           `yaml:"server"`
	Logger      logger.Config          `yaml:"logger"`
	Store       StoreConfig            `yaml:"store"`
	MySQL       db.MySQLConfig         `yaml:"mysql"`
	Mongo       docdb.MongoConfig      `yaml:"mongo"`
	Redis       cache.RedisConfig      `yaml:"redis"`
	Kafka       mq.KafkaConfig         `yaml:"kafka"`
	MinIO       storage.MinIOConfig    `yaml:"minio"`
	JDoodle     executor.JDoodleConfig `yaml:"jdoodle"`
	Aizu        source.AizuConfig      `yaml:"aizu"`
	Problems    ProblemConfig          `yaml:"problems"`
	Game        GameConfig             `yaml:"game"`
	Analysis    AnalysisConfig         `yaml:"analysis"`
	Leaderboard string                 `yaml:"leaderboardKey"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

// loadAppConfig reads the YAML file, overlays secrets from the environment
// (and a .env file when present) and fills defaults.
func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	_ = godotenv.Load()
	applyEnv(&cfg)

	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *AppConfig) {
	overlay := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	overlay(&cfg.JDoodle.ClientID, "JDOODLE_CLIENT_ID")
	overlay(&cfg.JDoodle.ClientSecret, "JDOODLE_CLIENT_SECRET")
	overlay(&cfg.Analysis.Gemini.APIKey, "GEMINI_API_KEY")
	overlay(&cfg.Mongo.URI, "MONGO_URI")
	overlay(&cfg.MySQL.DSN, "MYSQL_DSN")
	overlay(&cfg.Redis.Addr, "REDIS_ADDR")
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Server.Addr = "0.0.0.0:" + port
	}
}

func applyDefaults(cfg *AppConfig) error {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = defaultShutdownTimeout
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	if driver == "" {
		driver = storeMySQL
		if cfg.MySQL.DSN == "" && cfg.Mongo.URI != "" {
			driver = storeMongo
		}
	}
	switch driver {
	case storeMySQL:
		if cfg.MySQL.DSN == "" {
			return fmt.Errorf("mysql dsn is required")
		}
	case storeMongo:
		if cfg.Mongo.URI == "" {
			return fmt.Errorf("mongo uri is required")
		}
		if cfg.Mongo.Database == "" {
			cfg.Mongo.Database = "codebattle"
		}
	default:
		return fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	cfg.Store.Driver = driver

	if cfg.Game.SessionCacheSize == 0 {
		cfg.Game.SessionCacheSize = 4096
	}
	if cfg.Game.SessionTTL == 0 {
		cfg.Game.SessionTTL = 2 * time.Hour
	}
	if cfg.Game.MaxCodeBytes == 0 {
		cfg.Game.MaxCodeBytes = 64 * 1024
	}
	if cfg.Game.ArchiveBucket == "" {
		cfg.Game.ArchiveBucket = cfg.MinIO.Bucket
	}
	if cfg.Game.Workers == 0 {
		cfg.Game.Workers = 8
	}
	if cfg.Game.TaskTimeout == 0 {
		cfg.Game.TaskTimeout = 10 * time.Second
	}
	if cfg.Game.RateLimit.Window == 0 {
		cfg.Game.RateLimit.Window = time.Minute
	}
	if cfg.Game.RateLimit.Max == 0 {
		cfg.Game.RateLimit.Max = 30
	}
	if cfg.Game.Timeouts.DB == 0 {
		cfg.Game.Timeouts.DB = 3 * time.Second
	}
	if cfg.Game.Timeouts.Cache == 0 {
		cfg.Game.Timeouts.Cache = time.Second
	}
	if cfg.Game.Timeouts.MQ == 0 {
		cfg.Game.Timeouts.MQ = 3 * time.Second
	}
	if cfg.Game.Timeouts.Storage == 0 {
		cfg.Game.Timeouts.Storage = 5 * time.Second
	}

	if cfg.Problems.PickTimeout == 0 {
		cfg.Problems.PickTimeout = 8 * time.Second
	}
	if cfg.Problems.RefreshBatch == 0 {
		cfg.Problems.RefreshBatch = 3
	}

	if cfg.Analysis.Timeout == 0 {
		cfg.Analysis.Timeout = 30 * time.Second
	}
	if cfg.Analysis.ReportTTL == 0 {
		cfg.Analysis.ReportTTL = 24 * time.Hour
	}
	return nil
}
