package config

import (
	"context"
	"testing"
	"time"

	"arducam-go/bus"
	"arducam-go/types"
)

func TestConfig_PublishEmbedded_RetainedPerKey(t *testing.T) {
	// Override lookup for this test.
	oldLookup := EmbeddedConfigLookup
	EmbeddedConfigLookup = func(device string) (DeviceConfig, bool) {
		if device != "pico" {
			return nil, false
		}
		return DeviceConfig{
			"camera": types.CameraConfig{Resolution: "320x240", IntervalMs: ptr(uint32(5000))},
			"debug":  true,
		}, true
	}
	t.Cleanup(func() { EmbeddedConfigLookup = oldLookup })

	b := bus.NewBus(16)
	conn := b.NewConnection("test-config")
	svc := NewConfigService()
	svc.Start(WithDevice(context.Background(), "pico"), conn)

	// Subscribe after the publisher ran; retained messages must still arrive.
	time.Sleep(20 * time.Millisecond)
	sub := conn.Subscribe(bus.T(configPrefix, "#"))

	got := map[string]any{}
	deadline := time.Now().Add(600 * time.Millisecond)
	for len(got) < 2 && time.Now().Before(deadline) {
		select {
		case m := <-sub.Channel():
			if !m.Retained {
				t.Fatalf("config message on %v not retained", m.Topic)
			}
			key, ok := m.Topic[1].(string)
			if !ok {
				t.Fatalf("topic[1] type %T, want string", m.Topic[1])
			}
			got[key] = m.Payload
		case <-time.After(10 * time.Millisecond):
		}
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 retained messages, got %d (%v)", len(got), got)
	}
	cam, ok := got["camera"].(types.CameraConfig)
	if !ok {
		t.Fatalf("camera payload type = %T", got["camera"])
	}
	if cam.Resolution != "320x240" || cam.IntervalMs == nil || *cam.IntervalMs != 5000 {
		t.Fatalf("camera payload = %+v", cam)
	}
	if v, ok := got["debug"].(bool); !ok || !v {
		t.Fatalf("debug payload = %#v", got["debug"])
	}
}

func TestConfig_PublishConfig_MissingDevice(t *testing.T) {
	b := bus.NewBus(4)
	conn := b.NewConnection("test-missing-device")
	svc := NewConfigService()

	if err := svc.publishConfig(context.Background(), conn); err == nil {
		t.Fatal("expected error for missing device ID, got nil")
	}
}

func TestConfig_PublishConfig_NoConfigFound(t *testing.T) {
	b := bus.NewBus(4)
	conn := b.NewConnection("test-no-config")
	svc := NewConfigService()

	ctx := WithDevice(context.Background(), "unknown-device")
	if err := svc.publishConfig(ctx, conn); err == nil {
		t.Fatal("expected error for missing embedded config, got nil")
	}
}

func TestEmbeddedConfigsAreCameraConfigs(t *testing.T) {
	for dev, cfg := range embeddedConfigs {
		if _, ok := cfg["camera"].(types.CameraConfig); !ok {
			t.Fatalf("%s: camera entry has type %T", dev, cfg["camera"])
		}
	}
}
