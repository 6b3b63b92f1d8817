package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/robertof/go-hibouair-exporter/device"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTopicPrefix = "hibouair"
	DefaultClientID    = "hibouair-exporter"

	publishTimeout = 5 * time.Second
)

var ErrStopped = errors.New("publish: client stopped")

type Options struct {
	// Broker is a paho broker URL, e.g. tcp://localhost:1883.
	Broker      string
	ClientID    string
	TopicPrefix string
	Names       device.Names
}

// Telemetry is the JSON document published for every decoded reading.
type Telemetry struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Board       string    `json:"board"`
	Beacon      uint8     `json:"beacon"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature_c"`
	Humidity    float64   `json:"humidity_pct"`
	Pressure    float64   `json:"pressure_hpa"`
	Light       uint16    `json:"light"`
	VOC         float64   `json:"voc"`
	VOCType     string    `json:"voc_type"`
	CO2         *uint16   `json:"co2_ppm,omitempty"`
	PM1_0       *float64  `json:"pm1_0,omitempty"`
	PM2_5       *float64  `json:"pm2_5,omitempty"`
	PM10        *float64  `json:"pm10,omitempty"`
}

func NewTelemetry(name string, r device.Reading, ts time.Time) Telemetry {
	t := Telemetry{
		ID:          r.IDString(),
		Name:        name,
		Board:       r.BoardType.String(),
		Beacon:      r.BeaconNumber,
		Timestamp:   ts,
		Temperature: r.TemperatureCelsius(),
		Humidity:    r.RelativeHumidity(),
		Pressure:    r.PressureHPa(),
		Light:       r.AmbientLight(),
		VOC:         r.VOC(),
		VOCType:     r.VOCType.String(),
	}

	switch r.BoardType {
	case device.BoardTypeCO2:
		co2 := r.CO2PPM()
		t.CO2 = &co2
	case device.BoardTypeParticulateMatter:
		pm1, pm25, pm10 := r.PM1_0(), r.PM2_5(), r.PM10()
		t.PM1_0, t.PM2_5, t.PM10 = &pm1, &pm25, &pm10
	}

	return t
}

// Publisher sends readings to an MQTT broker. Upsert never blocks the caller: delivery is
// confirmed in the background and failures are only logged.
type Publisher struct {
	client mqtt.Client
	opts   Options
	log    zerolog.Logger

	mu        sync.RWMutex
	connected bool

	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewPublisher(opts Options) *Publisher {
	if opts.ClientID == "" {
		opts.ClientID = DefaultClientID
	}

	if opts.TopicPrefix == "" {
		opts.TopicPrefix = DefaultTopicPrefix
	}

	p := &Publisher{
		opts:   opts,
		log:    log.With().Str("Broker", opts.Broker).Logger(),
		stopCh: make(chan struct{}),
	}

	co := mqtt.NewClientOptions()
	co.AddBroker(opts.Broker)
	co.SetClientID(opts.ClientID)
	co.SetCleanSession(true)

	co.SetAutoReconnect(true)
	co.SetConnectRetry(true)
	co.SetConnectRetryInterval(5 * time.Second)
	co.SetMaxReconnectInterval(60 * time.Second)

	co.SetKeepAlive(30 * time.Second)
	co.SetPingTimeout(10 * time.Second)

	co.SetOnConnectHandler(func(_ mqtt.Client) {
		p.setConnected(true)
		p.log.Info().Msg("publish: connected to broker")
	})

	co.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.setConnected(false)
		p.log.Warn().Err(err).Msg("publish: connection to broker lost")
	})

	p.client = mqtt.NewClient(co)

	return p
}

// newPublisherWithClient is used by tests to inject a fake client.
func newPublisherWithClient(client mqtt.Client, opts Options) *Publisher {
	p := NewPublisher(opts)
	p.client = client

	return p
}

// Connect waits for the first connection, honoring ctx and Stop.
func (p *Publisher) Connect(ctx context.Context) error {
	select {
	case <-p.stopCh:
		return ErrStopped
	default:
	}

	if p.IsConnected() {
		return nil
	}

	token := p.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return errors.Wrap(err, "publish: connect")
			}

			p.setConnected(true)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stopCh:
			return ErrStopped
		default:
		}
	}
}

func (p *Publisher) setConnected(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.connected = v
}

func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.connected
}

// Topic is <prefix>/<name>/telemetry.
func (p *Publisher) Topic(name string) string {
	return fmt.Sprintf("%s/%s/telemetry", strings.TrimSuffix(p.opts.TopicPrefix, "/"), name)
}

// Upsert publishes the reading. Readings arriving while disconnected are dropped.
func (p *Publisher) Upsert(r device.Reading) {
	if !p.IsConnected() {
		p.log.Debug().Str("ID", r.IDString()).Msg("publish: not connected, dropping reading")
		return
	}

	select {
	case <-p.stopCh:
		return
	default:
	}

	name := p.opts.Names.Lookup(r.ID())
	topic := p.Topic(name)

	data, err := json.Marshal(NewTelemetry(name, r, time.Now()))
	if err != nil {
		p.log.Error().Err(err).Str("Topic", topic).Msg("publish: failed to encode reading")
		return
	}

	token := p.client.Publish(topic, 1, false, data)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		if !token.WaitTimeout(publishTimeout) {
			p.log.Warn().Str("Topic", topic).Msg("publish: timed out waiting for broker")
			return
		}

		if err := token.Error(); err != nil {
			p.log.Error().Err(err).Str("Topic", topic).Msg("publish: failed to publish reading")
			return
		}

		p.log.Trace().Str("Topic", topic).Msg("publish: reading published")
	}()
}

// Stop waits for in-flight publishes and disconnects. Safe to call more than once.
func (p *Publisher) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		p.wg.Wait()

		p.client.Disconnect(250)
		p.setConnected(false)
	})
}
