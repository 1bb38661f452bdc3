// Command infersrv is the multi-stream video inference server's
// entrypoint.
//
// Grounded on orion-prototipe/cmd/oriond/main.go: a flag-parsed config
// path, a JSON slog handler toggled by --debug, a run function that
// blocks until SIGINT/SIGTERM arrives, and a bounded graceful shutdown.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/care/orion/internal/accelmock"
	"github.com/care/orion/internal/cache"
	"github.com/care/orion/internal/config"
	"github.com/care/orion/internal/engine"
	"github.com/care/orion/internal/httpapi"
	"github.com/care/orion/internal/manager"
	"github.com/care/orion/internal/persistence"
	"github.com/care/orion/internal/publish"
	"github.com/care/orion/internal/registry"
	"github.com/care/orion/internal/stream"
	"github.com/care/orion/internal/types"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "/etc/orion/config.yaml", "path to boot configuration")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if err := run(*configPath); err != nil {
		slog.Error("infersrv: fatal", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := registry.New(accelmock.Runtime{})
	pub, err := publish.NewMQTTPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.TopicPrefix, cfg.MQTT.QoS)
	if err != nil {
		return fmt.Errorf("connect mqtt: %w", err)
	}

	eng := engine.New(engine.Config{
		QueueCapacity: cfg.Engine.QueueCapacity,
		Registry:      reg,
		Accelerator:   accelmock.Accelerator{},
		Publisher:     pub,
	})
	eng.Init(ctx, cfg.Engine.WorkerCount, cfg.Engine.PhysicalCores)

	imgCache := cache.New(cfg.Cache.WindowSeconds, cfg.Cache.MemoryBudgetBytes)
	store := persistence.NewFileStore(cfg.SnapshotPath)

	mgr := manager.New(manager.Config{
		Ctx:        ctx,
		Engine:     eng,
		ImageCache: imgCache,
		Persister:  store,
		DecoderFactory: func(sc types.StreamConfig) stream.Decoder {
			return stream.NewGstDecoder(sc.StreamID, sc.Models[0].InputWidth, sc.Models[0].InputHeight)
		},
		Resizer:      stream.SoftwareResizer{},
		LabelLoader:  loadLabels,
		CacheWidth:   cfg.Cache.PreviewWidth,
		CacheQuality: cfg.Cache.JPEGQuality,
	})
	eng.SetOnComplete(mgr.OnInferResult)

	if err := mgr.LoadAndStart(); err != nil {
		slog.Error("infersrv: load_and_start failed", "error", err)
	}
	for _, sc := range cfg.InitialStreams {
		if err := mgr.Add(sc); err != nil {
			slog.Error("infersrv: add initial stream failed", "stream_id", sc.StreamID, "error", err)
		}
	}

	httpSrv := httpapi.New(cfg.HTTPAddr, mgr, eng, imgCache, version)
	httpSrv.Start()
	slog.Info("infersrv: started", "instance_id", cfg.InstanceID, "http_addr", cfg.HTTPAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("infersrv: shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	mgr.StopAll()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("infersrv: http shutdown failed", "error", err)
	}
	if err := eng.Shutdown(10 * time.Second); err != nil {
		slog.Error("infersrv: engine shutdown failed", "error", err)
	}
	pub.Disconnect()

	return nil
}

// loadLabels reads a class-labels file, one label per line, trimmed
// (spec.md §4.9 "preloads labels files (line-per-label, trimmed)").
func loadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			labels = append(labels, line)
		}
	}
	return labels, scanner.Err()
}
