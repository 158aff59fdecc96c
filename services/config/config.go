package config

import (
	"context"
	"errors"

	"arducam-go/bus"
)

// -----------------------------------------------------------------------------
// String constants (live in flash, not RAM)
// -----------------------------------------------------------------------------

const (
	serviceName  = "config"
	configPrefix = "config"
)

type ctxKey struct{}

// WithDevice returns a context carrying the device ID whose embedded
// configuration the service publishes.
func WithDevice(ctx context.Context, device string) context.Context {
	return context.WithValue(ctx, ctxKey{}, device)
}

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) (DeviceConfig, bool) {
	c, ok := embeddedConfigs[device]
	return c, ok
}

// DeviceConfig maps a service name to its typed configuration payload. Each
// entry is published retained on "config/<service>".
type DeviceConfig map[string]any

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type ConfigService struct {
	Name string
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

// publishConfig resolves the device config and publishes it as retained messages.
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	device, _ := ctx.Value(ctxKey{}).(string)
	if device == "" {
		return errors.New("config: missing device ID in context")
	}

	m, ok := EmbeddedConfigLookup(device)
	if !ok || len(m) == 0 {
		return errors.New("config: no embedded config for device: " + device)
	}

	for k, v := range m {
		conn.Publish(conn.NewMessage(bus.T(configPrefix, k), v, true))
	}
	return nil
}

// Start launches the config publisher in a goroutine.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(ctx, conn); err != nil {
			println("[config]", err.Error())
		}
	}()
}
