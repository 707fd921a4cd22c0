package app

import (
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yizeng/gab/gin/gorm/gifting-raffle/internal/api"
	"github.com/yizeng/gab/gin/gorm/gifting-raffle/internal/config"
	"github.com/yizeng/gab/gin/gorm/gifting-raffle/internal/db"
	"github.com/yizeng/gab/gin/gorm/gifting-raffle/internal/logger"
)

const configPath = "./cmd/app/config.yml"

func Start() error {
	conf, err := config.Watch(configPath, onConfigChange, func(err error) {
		zap.L().Error("failed to reload config", zap.Error(err))
	})
	if err != nil {
		return fmt.Errorf("failed to initialize config -> %w", err)
	}

	if err = logger.Init(conf.API.Environment); err != nil {
		return fmt.Errorf("failed to initialize logger -> %w", err)
	}

	dbURL := os.Getenv("DATABASE_URL")
	var postgresDB *gorm.DB
	if dbURL != "" {
		postgresDB, err = db.OpenPostgresWithURL(dbURL)
	} else {
		postgresDB, err = db.OpenPostgres(conf.Postgres)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database -> %w", err)
	}

	s := api.NewServer(conf, postgresDB)

	addr := ":" + s.Config.API.Port
	zap.L().Info(fmt.Sprintf("starting server at %v", addr))
	if err = s.Router.Run(addr); err != nil {
		return fmt.Errorf("failed to start the server -> %w", err)
	}

	return nil
}

// onConfigChange only applies the logging level. Ports, keys and the
// database need a restart.
func onConfigChange(e fsnotify.Event, conf *config.AppConfig) {
	zap.L().Info("config file changed", zap.String("file", e.Name), zap.String("op", e.Op.String()))

	if err := logger.Init(conf.API.Environment); err != nil {
		zap.L().Error("failed to reinitialize logger", zap.Error(err))
	}
}
