package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Probe.Port)
	assert.Equal(t, 9600, cfg.Probe.Baud)
	assert.Equal(t, 115200, cfg.Host.Baud)
	assert.Equal(t, 0.5, cfg.Conversion.TDSFactor)
	assert.Equal(t, 0.0005, cfg.Conversion.SALFactor)
	assert.Equal(t, time.Second, cfg.Sampling.DefaultPeriod)
	assert.Equal(t, 900*time.Millisecond, cfg.Sampling.ReadTimeout)
	assert.Equal(t, 300*time.Millisecond, cfg.Console.IdleGap)
	assert.Equal(t, 1000*time.Millisecond, cfg.Timeouts.Read)
	assert.Equal(t, 4000*time.Millisecond, cfg.Timeouts.CalPoint)
	assert.Equal(t, 2000*time.Millisecond, cfg.Timeouts.CalDry)
	assert.Equal(t, 1200*time.Millisecond, cfg.Timeouts.Configure)
	assert.False(t, cfg.MQTT.Enabled)
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Probe.Port)
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
probe:
  port: "/dev/ttyACM1"
  baud: 9600

conversion:
  tds_factor: 0.7
  sal_factor: 0.0005

mqtt:
  enabled: true
  broker: "broker.local"
  probe_id: "tank-3"
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, "/dev/ttyACM1", cfg.Probe.Port)
	assert.Equal(t, 0.7, cfg.Conversion.TDSFactor)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "broker.local", cfg.MQTT.Broker)
	assert.Equal(t, "tank-3", cfg.MQTT.ProbeID)
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.WriteString("invalid: yaml: content: [")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_PartialYAML_BackfillsDefaults(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
probe:
  port: "/dev/ttyACM1"
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM1", cfg.Probe.Port)
	// Everything unset falls back to defaults.
	assert.Equal(t, 9600, cfg.Probe.Baud)
	assert.Equal(t, 0.5, cfg.Conversion.TDSFactor)
	assert.Equal(t, 300*time.Millisecond, cfg.Console.IdleGap)
	assert.Equal(t, 1500*time.Millisecond, cfg.Timeouts.Output)
	assert.Equal(t, "localhost", cfg.MQTT.Broker)
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())
	defer os.Remove(tmpfile.Name())

	cfg := Default()
	cfg.Probe.Port = "COM7"
	cfg.Conversion.TDSFactor = 0.7
	cfg.MQTT.ProbeID = "lab-1"

	require.NoError(t, cfg.Save(tmpfile.Name()))

	loaded, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.Equal(t, "COM7", loaded.Probe.Port)
	assert.Equal(t, 0.7, loaded.Conversion.TDSFactor)
	assert.Equal(t, "lab-1", loaded.MQTT.ProbeID)
	assert.Equal(t, cfg.Timeouts, loaded.Timeouts)
}
