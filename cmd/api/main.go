package main

import (
	"context"
	"flag"
	"log"
	"os"
	"taskStream/internal/app"
	"taskStream/internal/config"
	"taskStream/internal/logger"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "путь к config.yml (по умолчанию ./config.yml, если есть)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("загрузка конфигурации: %v", err)
	}

	ctx := context.Background()
	application, err := app.New(cfg).Init(ctx)
	if err != nil {
		log.Fatalf("инициализация приложения: %v", err)
	}

	if err := application.Start(); err != nil {
		logger.Error("Ошибка запуска приложения", err)
		os.Exit(1)
	}

	go func() {
		// сервер или фоновая задача упали раньше сигнала
		if err := application.Wait(); err != nil {
			logger.Error("Приложение остановлено с ошибкой", err)
			_ = application.Stop(context.Background())
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		ctx,
		cfg.Server.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"task-stream": func(ctx context.Context) error {
				logger.Info("Получен сигнал остановки")
				return application.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	logger.Info("Приложение завершено", zap.Int("exit_code", exitCode))
	os.Exit(exitCode)
}
