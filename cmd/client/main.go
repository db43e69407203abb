package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/mmo-client/internal/app"
	"github.com/annel0/mmo-client/internal/config"
	"github.com/annel0/mmo-client/internal/eventbus"
	"github.com/annel0/mmo-client/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации")
	flag.Parse()

	// Инициализируем систему логирования
	if err := logging.Init("client"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.Close()

	logging.Info("🎮 Запуск клиента синхронизации мира…")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Error("Ошибка загрузки конфигурации: %v", err)
		os.Exit(1)
	}

	logging.Info("📡 Сервер: %s, канал=%s, уровень=%s",
		cfg.Server.GetURL(), cfg.Server.GetChannel(), cfg.Server.GetLevel())

	client, err := app.NewClient(cfg)
	if err != nil {
		logging.Error("Ошибка инициализации клиента: %v", err)
		os.Exit(1)
	}

	// Prometheus-метрики (опционально)
	if cfg.Metrics.Enabled {
		addr := cfg.Metrics.Addr
		if addr == "" {
			addr = ":2112"
		}
		exporter := eventbus.NewMetricsExporter(client.Bus())
		exporter.Start(5 * time.Second)
		exporter.StartHTTP(addr)
	}

	logging.Info("✅ Клиент инициализирован: id=%s", client.ID())

	go client.Run(50 * time.Millisecond)

	// Ожидаем сигнал завершения
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logging.Info("🛑 Получен сигнал завершения, останавливаемся…")
	client.Shutdown()
}
