package ndt

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_Valid(t *testing.T) {
	path := writeConfig(t, `
mqtt:
  broker: tcp://localhost:1883
  pose_topic: robot/pose
launcher:
  command: "roslaunch ndt_localizer ndt_localizer.launch"
  workdir: /opt/ndt
  stop_timeout_seconds: 10
map:
  path: /maps/campus.pcd
http:
  port: 9090
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "tcp://localhost:1883", config.MQTT.Broker)
	assert.Equal(t, "robot/pose", config.MQTT.PoseTopic)
	assert.Equal(t, "/opt/ndt", config.Launcher.WorkDir)
	assert.Equal(t, 10*time.Second, config.Launcher.StopTimeout())
	assert.Equal(t, 9090, config.HTTP.Port)
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
mqtt:
  broker: tcp://localhost:1883
launcher:
  command: "echo hi"
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "ndtview", config.MQTT.ClientID)
	assert.Equal(t, "ndt/kalman_filtered_pose", config.MQTT.PoseTopic)
	assert.Equal(t, "ndtview", config.MQTT.PublishPrefix)
	assert.Equal(t, DefaultStopTimeout, config.Launcher.StopTimeout())
	assert.Equal(t, DefaultMaxDisplayPoints, config.Map.MaxDisplayPoints)
	assert.Equal(t, 8080, config.HTTP.Port)
	assert.Equal(t, "gps_coordinates.txt", config.GPS.LogPath)
}

func TestLoadConfig_MissingBroker(t *testing.T) {
	path := writeConfig(t, `
launcher:
  command: "echo hi"
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mqtt.broker")
}

func TestLoadConfig_MissingCommand(t *testing.T) {
	path := writeConfig(t, `
mqtt:
  broker: tcp://localhost:1883
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "launcher.command")
}

func TestLoadConfig_EnvOverridesWin(t *testing.T) {
	t.Setenv("NDT_BROKER", "tcp://env-broker:1883")
	t.Setenv("NDT_POSE_TOPIC", "env/pose")

	path := writeConfig(t, `
mqtt:
  broker: tcp://file-broker:1883
  pose_topic: file/pose
launcher:
  command: "echo hi"
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "tcp://env-broker:1883", config.MQTT.Broker)
	assert.Equal(t, "env/pose", config.MQTT.PoseTopic)
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/no/such/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "mqtt: [not a mapping")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("NDT_BROKER", "tcp://localhost:1883")
	config := DefaultConfig()
	assert.Equal(t, "tcp://localhost:1883", config.MQTT.Broker)
	assert.Equal(t, "ndt/kalman_filtered_pose", config.MQTT.PoseTopic)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	original := DefaultConfig()
	original.MQTT.Broker = "tcp://saved:1883"
	original.Launcher.Command = "echo hi"

	require.NoError(t, SaveConfig(path, original))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, original.MQTT.Broker, loaded.MQTT.Broker)
}
