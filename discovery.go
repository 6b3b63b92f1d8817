package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"runtime"
	"slices"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial/enumerator"
	"golang.org/x/exp/maps"

	"github.com/robertof/go-hibouair-exporter/bleuio"
	"github.com/robertof/go-hibouair-exporter/collector"
	"github.com/robertof/go-hibouair-exporter/device"
	"github.com/robertof/go-hibouair-exporter/device/hibouair"
	"github.com/robertof/go-hibouair-exporter/utils"
)

// USB identity of the BleuIO dongle.
const (
  dongleVID = "2DCF"
  donglePID = "6002"
)

var errNoDongle = errors.New("no BleuIO dongle found")

type dongle struct {
  Path string
  SerialNumber string
}

func (d dongle) String() string {
  return d.Path
}

// matchDongles picks the BleuIO ports out of an enumerator listing. On macOS the
// callout device (/dev/cu.*) is used instead of the dial-in one (/dev/tty.*).
func matchDongles(ports []*enumerator.PortDetails, goos string) []dongle {
  var out []dongle

  for _, p := range ports {
    if !p.IsUSB || !strings.EqualFold(p.VID, dongleVID) || !strings.EqualFold(p.PID, donglePID) {
      continue
    }

    path := p.Name
    if goos == "darwin" && strings.HasPrefix(path, "/dev/tty.") {
      path = "/dev/cu." + strings.TrimPrefix(path, "/dev/tty.")
    }

    out = append(out, dongle{Path: path, SerialNumber: p.SerialNumber})
  }

  return out
}

func findDongles() ([]dongle, error) {
  ports, err := enumerator.GetDetailedPortsList()
  if err != nil {
    return nil, err
  }

  return matchDongles(ports, runtime.GOOS), nil
}

// FindDongle returns the device path of the first attached dongle.
func FindDongle() (string, error) {
  dongles, err := findDongles()
  if err != nil {
    return "", err
  }

  if len(dongles) == 0 {
    return "", errNoDongle
  }

  if len(dongles) > 1 {
    log.Warn().
      Array("Dongles", utils.ToZeroLogArray(dongles)).
      Msg("Multiple dongles found, using the first one")
  }

  return dongles[0].Path, nil
}

type discoveredDevice struct {
  name string
  rssi int
  reading *device.Reading
}

// discoveryRecorder collects distinct advertisers seen during a discovery scan.
type discoveryRecorder struct {
  mu sync.Mutex
  devices map[string]discoveredDevice
}

func newDiscoveryRecorder() *discoveryRecorder {
  return &discoveryRecorder{devices: make(map[string]discoveredDevice)}
}

func (r *discoveryRecorder) OnAdvertisement(a bleuio.Advertisement) {
  r.mu.Lock()
  defer r.mu.Unlock()

  addr := strings.ToUpper(a.Addr().String())
  info := r.devices[addr]

  // merge
  if name := a.LocalName(); name != "" {
    info.name = name
  }
  info.rssi = a.RSSI()

  if reading, err := (hibouair.Backend{}).ParseAdvertisement(a); err == nil {
    info.reading = &reading
  }

  r.devices[addr] = info

  log.Debug().
    Str("Addr", addr).
    Str("Name", a.LocalName()).
    Int("RSSI", a.RSSI()).
    Hex("ManufacturerData", a.ManufacturerData()).
    Msg("Received device advertisement")
}

func (r *discoveryRecorder) Addrs() []string {
  r.mu.Lock()
  defer r.mu.Unlock()

  addrs := maps.Keys(r.devices)
  slices.Sort(addrs)

  return addrs
}

func doDeviceDiscovery(cfg config) {
  dongles, err := findDongles()
  if err != nil {
    log.Fatal().Err(err).Msg("Failed to enumerate serial ports")
  }

  log.Info().
    Array("Dongles", utils.ToZeroLogArray(dongles)).
    Msg("Found BleuIO dongles")

  path := cfg.Port
  if path == "" {
    if len(dongles) == 0 {
      log.Fatal().Msg("No dongle to scan with")
    }

    path = dongles[0].Path
  }

  log.Info().
    Str("Port", path).
    Dur("DurationSec", cfg.DiscoveryDuration).
    Msg("Starting in device discovery mode")

  port, err := bleuio.Open(path)
  if err != nil {
    log.Fatal().Err(err).Msg("Failed to open dongle")
  }
  defer port.Close()

  sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
  defer stop()

  ctx, cancel := context.WithTimeout(sigCtx, cfg.DiscoveryDuration)
  defer cancel()

  recorder := newDiscoveryRecorder()

  machine := collector.NewMachine(port, collector.NewRegistry(), collector.MachineOptions{
    ScanFilterName:     cfg.ScanFilter,
    FindScanDataFilter: cfg.FindFilter,
    OnAdvertisement:    recorder.OnAdvertisement,
  })

  session := collector.NewSession(port, nil, machine)
  session.ReadTimeout = cfg.ReadTimeout

  err = session.Run(ctx)

  if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
    log.Fatal().Err(err).Msg("Scan failed")
  }

  log.Info().Int("Found", len(recorder.devices)).Msg("Finished device discovery")

  for _, addr := range recorder.Addrs() {
    data := recorder.devices[addr]

    evt := log.Info().
      Str("Addr", addr).
      Str("Name", data.name).
      Int("RSSI", data.rssi)

    if data.reading != nil {
      evt = evt.
        Str("ID", data.reading.IDString()).
        Stringer("Reading", data.reading)
    }

    evt.Msg("Found device")
  }
}
