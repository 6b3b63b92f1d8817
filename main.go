package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robertof/go-hibouair-exporter/bleuio"
	"github.com/robertof/go-hibouair-exporter/collector"
	"github.com/robertof/go-hibouair-exporter/device"
	"github.com/robertof/go-hibouair-exporter/metrics"
	"github.com/robertof/go-hibouair-exporter/publish"
	"github.com/robertof/go-hibouair-exporter/utils"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
  zerolog.DurationFieldUnit = time.Second
  zerolog.TimeFieldFormat = time.RFC3339Nano

  log.Logger = log.Output(zerolog.ConsoleWriter{
    Out: os.Stderr,
    TimeFormat: "15:04:05.000",
  })

  cfg := ParseArgs()

  if cfg.Trace || os.Getenv("TRACE") != "" {
      zerolog.SetGlobalLevel(zerolog.TraceLevel)
  } else if cfg.Debug || os.Getenv("DEBUG") != "" {
      zerolog.SetGlobalLevel(zerolog.DebugLevel)
  } else {
      zerolog.SetGlobalLevel(zerolog.InfoLevel)
  }

  if cfg.DiscoverDevices {
    doDeviceDiscovery(cfg)
    return
  }

  log.Info().
    Str("Port", cfg.Port).
    Str("ScanFilter", cfg.ScanFilter).
    Str("BindAddr", cfg.BindAddress).
    Str("MQTTBroker", cfg.MQTTBroker).
    Array("Devices", utils.ToZeroLogArray(cfg.Devices)).
    Msg("Starting with the specified configuration")

  port := openPort(cfg)
  defer port.Close()

  names := device.NamesOf(cfg.Devices)
  registry := collector.NewRegistry()
  queue := collector.NewCommandQueue()

  sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
  defer stop()

  baseCtx, cancel := context.WithCancel(sigCtx)
  defer cancel()

  g, ctx := errgroup.WithContext(baseCtx)

  var sinks []collector.Sink

  if cfg.MQTTBroker != "" {
    pub := publish.NewPublisher(publish.Options{
      Broker: cfg.MQTTBroker,
      ClientID: cfg.MQTTClientID,
      TopicPrefix: cfg.MQTTTopicPrefix,
      Names: names,
    })
    defer pub.Stop()

    // the session does not wait for the broker, readings are dropped until connected.
    g.Go(func() error {
      if err := pub.Connect(ctx); err != nil && !errors.Is(err, context.Canceled) {
        log.Error().Err(err).Msg("Unable to connect to MQTT broker")
      }

      return nil
    })

    sinks = append(sinks, pub)
  }

  machine := collector.NewMachine(port, registry, collector.MachineOptions{
    ScanFilterName: cfg.ScanFilter,
    FindScanDataFilter: cfg.FindFilter,
    Sinks: sinks,
  })

  session := collector.NewSession(port, queue, machine)
  session.ReadTimeout = cfg.ReadTimeout

  for _, r := range cfg.Send {
    if err := queue.Submit(r); err != nil {
      log.Error().Err(err).Stringer("Request", r).Msg("Unable to queue request")
    }
  }

  if cfg.StdinCommands {
    go readRequests(os.Stdin, queue)
  }

  g.Go(func() error {
    // a closed session stops everything else.
    defer cancel()

    err := session.Run(ctx)

    if bleuio.IsDisconnect(err) {
      log.Error().Err(err).Msg("Dongle disconnected")
    }

    return err
  })

  if cfg.BindAddress != "" {
    startMetricsServer(ctx, g, cfg.BindAddress, registry, names)
  }

  if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
    log.Fatal().Err(err).Msg("Session terminated")
  }

  log.Info().Int("Sensors", registry.Len()).Msg("Shutting down")
}

func openPort(cfg config) *bleuio.Port {
  path := cfg.Port

  if path == "" {
    var err error

    path, err = FindDongle()
    if err != nil {
      log.Fatal().Err(err).Msg("No serial port given and auto-detection failed")
    }

    log.Info().Str("Port", path).Msg("Detected BleuIO dongle")
  }

  port, err := bleuio.Open(path)
  if err != nil {
    log.Fatal().Err(err).Msg("Failed to open dongle")
  }

  return port
}

func startMetricsServer(
  ctx context.Context,
  g *errgroup.Group,
  addr string,
  registry *collector.Registry,
  names device.Names,
) {
  promRegistry := prometheus.NewRegistry()

  bleuio.RegisterMetrics(promRegistry)
  metrics.RegisterCollector(registry.Observations, names, promRegistry)

  mux := http.NewServeMux()
  mux.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))

  srv := &http.Server{Addr: addr, Handler: mux}

  log.Info().
      Str("ListenAddress", addr).
      Msg("Starting Prometheus server")

  g.Go(func() error {
    if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
      return err
    }

    return nil
  })

  g.Go(func() error {
    <-ctx.Done()

    shutdownCtx, cancel := context.WithTimeout(context.Background(), 5 * time.Second)
    defer cancel()

    return srv.Shutdown(shutdownCtx)
  })
}

// readRequests submits one request per input line. EOF closes the queue, which ends the
// session.
func readRequests(r io.Reader, queue *collector.CommandQueue) {
  defer queue.Close()

  scanner := bufio.NewScanner(r)

  for scanner.Scan() {
    line := strings.TrimSpace(scanner.Text())
    if line == "" {
      continue
    }

    req, err := bleuio.ParseRequest(line)
    if err != nil {
      log.Warn().Err(err).Msg("Ignoring invalid request")
      continue
    }

    if err := queue.Submit(req); err != nil {
      log.Error().Err(err).Stringer("Request", req).Msg("Unable to queue request")
      return
    }
  }

  if err := scanner.Err(); err != nil {
    log.Error().Err(err).Msg("Failed to read requests")
  }
}
