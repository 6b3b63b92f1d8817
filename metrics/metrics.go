package metrics

import (
  "github.com/prometheus/client_golang/prometheus"
  "github.com/robertof/go-hibouair-exporter/device"
)

var (
  labels = []string{"name", "id", "board"}

  descTemperature = prometheus.NewDesc(
    "sensor_temperature_celsius",
    "Temperature reported by the sensor in Celsius.",
    labels,
    nil,
  )

  descHumidity = prometheus.NewDesc(
    "sensor_humidity_ratio",
    "Relative humidity reported by the sensor.",
    labels,
    nil,
  )

  descPressure = prometheus.NewDesc(
    "sensor_pressure_hpa",
    "Barometric pressure reported by the sensor in hectopascal.",
    labels,
    nil,
  )

  descLight = prometheus.NewDesc(
    "sensor_ambient_light_lux",
    "Ambient light reported by the sensor.",
    labels,
    nil,
  )

  descVOC = prometheus.NewDesc(
    "sensor_voc",
    "Volatile organic compounds. The unit depends on the voc_type label (ppm, IAQ or unitless).",
    append(append([]string{}, labels...), "voc_type"),
    nil,
  )

  descCO2 = prometheus.NewDesc(
    "sensor_co2_ppm",
    "CO2 concentration reported by CO2 boards.",
    labels,
    nil,
  )

  descPM = prometheus.NewDesc(
    "sensor_particulate_matter_ugm3",
    "Particulate matter concentration reported by PM boards.",
    append(append([]string{}, labels...), "size"),
    nil,
  )

  descBeacon = prometheus.NewDesc(
    "sensor_beacon_number",
    "Beacon number of the last received advertisement.",
    labels,
    nil,
  )
)

type CollectFunc func() map[uint32]device.Observation

type collector struct {
  CollectFunc
  names device.Names
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
  prometheus.DescribeByCollect(c, ch)
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
  for id, obs := range c.CollectFunc() {
    reading := obs.Reading
    lv := []string{c.names.Lookup(id), device.FormatID(id), reading.BoardType.String()}

    gauge := func(desc *prometheus.Desc, v float64, extra ...string) {
      m := prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, v, append(lv, extra...)...)
      ch <- prometheus.NewMetricWithTimestamp(obs.ReceivedAt, m)
    }

    gauge(descTemperature, reading.TemperatureCelsius())
    gauge(descHumidity, reading.RelativeHumidity() / 100)
    gauge(descPressure, reading.PressureHPa())
    gauge(descLight, float64(reading.AmbientLight()))
    gauge(descVOC, reading.VOC(), reading.VOCType.String())
    gauge(descBeacon, float64(reading.BeaconNumber))

    switch reading.BoardType {
    case device.BoardTypeCO2:
      gauge(descCO2, float64(reading.CO2PPM()))
    case device.BoardTypeParticulateMatter:
      gauge(descPM, reading.PM1_0(), "1.0")
      gauge(descPM, reading.PM2_5(), "2.5")
      gauge(descPM, reading.PM10(), "10")
    }
  }
}

// RegisterCollector exports the observations returned by f, each stamped with its own
// receive time. names resolves board IDs to the "name" label.
func RegisterCollector(f CollectFunc, names device.Names, reg prometheus.Registerer) {
  c := &collector{f, names}

  reg.MustRegister(c)
}
