package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/robertof/go-hibouair-exporter/bleuio"
	"github.com/robertof/go-hibouair-exporter/device"
	"github.com/robertof/go-hibouair-exporter/device/hibouair"
	"github.com/robertof/go-hibouair-exporter/publish"
)

type config struct {
  Debug, Trace bool
  Port string
  ScanFilter string
  FindFilter string
  ReadTimeout time.Duration
  BindAddress string
  MQTTBroker, MQTTClientID, MQTTTopicPrefix string
  StdinCommands bool
  Send bleuio.RequestList
  DiscoverDevices bool
  DiscoveryDuration time.Duration
  Devices []device.Device
}

type boundDeviceList struct {
  device.Factory
  name string
  list *[]device.Device
}

var deviceFactories = map[string]device.Factory {
  "hibouair": &hibouair.Factory{},
}

func (d *boundDeviceList) String() string {
  return ""
}

func (d *boundDeviceList) Set(v string) error {
  ds := device.NewDeviceSpec(v)

  device, err := d.FromSpec(ds)
  if err != nil {
    return fmt.Errorf("failed to create device: %w", err)
  }

  *d.list = append(*d.list, device)

  return nil
}

func ParseArgs() config {
  cfg, err := parseArgs(flag.CommandLine, os.Args[1:])

  if err != nil {
    fmt.Fprintln(os.Stderr, "Error:", err)
    flag.Usage()
    os.Exit(1)
  }

  return cfg
}

func parseArgs(fs *flag.FlagSet, args []string) (config, error) {
  var cfg config

  fs.StringVar(&cfg.Port, "port", "", "Serial device of the BleuIO dongle. Auto-detected by USB ID when empty")
  fs.StringVar(&cfg.ScanFilter, "scan-filter", "HibouAIR",
    "Only report advertisers with this name. Empty disables the filter")
  fs.StringVar(&cfg.FindFilter, "find-filter", "", "Hex string advertising payloads must contain")
  fs.DurationVar(&cfg.ReadTimeout, "read-timeout", bleuio.DefaultReadTimeout,
    "Silence after which a liveness notice is logged")
  fs.StringVar(&cfg.BindAddress, "bind", "", "Where the Prometheus exporter will bind to (e.g. localhost:9102). Empty disables it")
  fs.StringVar(&cfg.MQTTBroker, "mqtt-broker", "", "MQTT broker URL (e.g. tcp://localhost:1883). Empty disables publishing")
  fs.StringVar(&cfg.MQTTClientID, "mqtt-client-id", publish.DefaultClientID, "MQTT client ID")
  fs.StringVar(&cfg.MQTTTopicPrefix, "mqtt-topic-prefix", publish.DefaultTopicPrefix, "MQTT topic prefix")
  fs.BoolVar(&cfg.StdinCommands, "stdin-commands", false,
    "Read requests (at, ati, central, find[=hex]) from stdin, one per line. EOF ends the session")
  fs.Var(&cfg.Send, "send", "Request sent to the dongle after start (at, ati, central, find[=hex]). Repeatable")
  fs.BoolVar(&cfg.DiscoverDevices, "discover", false, "List dongles and nearby HibouAir sensors and quit")
  fs.DurationVar(&cfg.DiscoveryDuration, "discover-duration", 10 * time.Second, "How long discovery scans for")
  fs.BoolVar(&cfg.Debug, "debug", false, "Enable debug logs")
  fs.BoolVar(&cfg.Trace, "trace", false, "Enable trace logs")

  for deviceName, deviceFactory := range deviceFactories {
    boundList := boundDeviceList{
      name:    deviceName,
      Factory: deviceFactory,
      list:    &cfg.Devices,
    }

    help := "Device spec for this device in the form of `key=value,key=value`."

    if docs, ok := deviceFactory.(device.FactoryDocs); ok {
      help += "\n" + docs.Help()
    }

    fs.Var(&boundList, deviceName, help)
  }

  if err := fs.Parse(args); err != nil {
    return cfg, err
  }

  if cfg.ReadTimeout <= 0 {
    return cfg, fmt.Errorf("-read-timeout must be positive, got %v", cfg.ReadTimeout)
  }

  return cfg, nil
}
