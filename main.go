package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v2"

	"mlserve/db"
	mhttp "mlserve/http"
	"mlserve/ml"
	"mlserve/monitoring"
)

type Config struct {
	Http struct {
		Port           int      `yaml:"port"`
		TimeoutSeconds int      `yaml:"timeout_seconds"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"http"`
	Model struct {
		Path string `yaml:"path"`
	} `yaml:"model"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
	} `yaml:"log"`
}

func main() {
	// 1. Load config
	config, err := loadConfig("config.yaml")
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	applyEnvOverrides(config)

	logger := newLogger(config)
	defer logger.Sync()

	// 2. Initialize the attribution store. The service keeps running without
	// it; only prediction history is lost.
	if config.Database.Path == "" {
		logger.Info("no database configured, prediction history disabled")
	} else if err := db.InitDB(config.Database.Path); err != nil {
		logger.Warn("failed to initialize prediction store, continuing without it",
			zap.String("path", config.Database.Path), zap.Error(err))
	} else {
		logger.Info("prediction store initialized", zap.String("path", config.Database.Path))
	}

	// 3. Load the model artifact. A failed load leaves the service degraded:
	// health and model info still answer, predict returns 503 until a
	// restart with a good artifact.
	artifact, err := ml.Load(config.Model.Path)
	if err != nil {
		logger.Warn("model load failed, starting degraded",
			zap.String("path", config.Model.Path), zap.Error(err))
	} else {
		logger.Info("model loaded",
			zap.String("version", artifact.Version),
			zap.String("model_type", artifact.ModelType),
			zap.Time("trained_at", artifact.TrainedAt))
	}
	state := ml.NewState(artifact)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ml.WatchArtifact(ctx, config.Model.Path, logger); err != nil {
		logger.Warn("artifact watcher unavailable", zap.Error(err))
	}

	// 4. Start the live status hub
	hub := monitoring.NewStatusHub(logger)
	go hub.Run(ctx)
	monitor := monitoring.NewStatusMonitor(state, hub, logger)
	go monitor.Run(ctx)

	// 5. Start HTTP server
	mhttp.SetLogger(logger)
	mhttp.SetModelState(state)
	mhttp.SetStatusHub(hub)

	serverConfig := mhttp.DefaultServerConfig()
	serverConfig.Port = config.Http.Port
	if config.Http.TimeoutSeconds > 0 {
		serverConfig.Timeout = time.Duration(config.Http.TimeoutSeconds) * time.Second
	}
	if len(config.Http.AllowedOrigins) > 0 {
		serverConfig.AllowedOrigins = config.Http.AllowedOrigins
	}

	server := mhttp.NewServer(serverConfig, logger)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 6. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")
	cancel()

	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("exiting")
}

func loadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyEnvOverrides lets deployment environments point at a different
// artifact or port without editing config.yaml.
func applyEnvOverrides(config *Config) {
	if path := os.Getenv("MODEL_PATH"); path != "" {
		config.Model.Path = path
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Http.Port = p
		}
	}
}

func newLogger(config *Config) *zap.Logger {
	level, err := zapcore.ParseLevel(config.Log.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	sinks := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}
	if config.Log.File != "" {
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   config.Log.File,
			MaxSize:    config.Log.MaxSizeMB,
			MaxBackups: config.Log.MaxBackups,
		}))
	}

	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), level)
	return zap.New(core)
}
