// Package config provides configuration helpers for the host-side commands.
// Every value has a built-in default, overridable by environment variable and
// then by command-line flag.
package config

import (
	"os"
	"strconv"
	"time"
)

// Defaults for cmd/camrecv.
const (
	DefaultBaud        = 921600
	DefaultOutDir      = "captures"
	DefaultMQTTTopic   = "arducam/capture"
	DefaultMQTTClient  = "camrecv"
	DefaultMaxFrame    = 8 << 20
	DefaultPublishWait = 5 * time.Second
)

// String returns the env var key, or def if unset or empty.
func String(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Int returns the env var key parsed as an int, or def if unset or invalid.
func Int(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Duration returns the env var key parsed by time.ParseDuration, or def.
func Duration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// SerialPort returns the receiver's serial port from CAMRECV_PORT. Empty means
// autodetect.
func SerialPort() string { return String("CAMRECV_PORT", "") }

// MQTTBroker returns the broker URL from MQTT_BROKER, e.g. "tcp://host:1883".
// Empty disables publishing.
func MQTTBroker() string { return String("MQTT_BROKER", "") }
