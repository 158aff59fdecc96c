package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.bug.st/serial/enumerator"

	"arducam-go/x/camframe"
)

var endOfImage = []byte{0xFF, 0xD9}

// Store persists a received capture and returns where it went.
type Store interface {
	Save(id uuid.UUID, data []byte) (string, error)
}

// Publisher forwards a received capture.
type Publisher interface {
	Publish(id uuid.UUID, data []byte) error
}

// ---------------- Receiver ----------------

type stats struct {
	Frames     int
	Incomplete int // frames not ending on the end-of-image marker
	Dropped    int // oversized or failed to store
}

type receiver struct {
	frames *camframe.Reader
	store  Store
	pub    Publisher // nil disables publishing
	log    *slog.Logger
	stats  stats
}

// run decodes frames until the stream ends or ctx is cancelled.
func (r *receiver) run(ctx context.Context) error {
	for {
		f, err := r.frames.Next()
		switch {
		case err == nil:
			r.handle(f)
		case errors.Is(err, camframe.ErrFrameTooLarge):
			r.stats.Dropped++
			r.log.Warn("frame exceeds size limit, resyncing")
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, io.ErrUnexpectedEOF):
			r.log.Warn("stream ended inside a frame")
			return nil
		default:
			return fmt.Errorf("read frame: %w", err)
		}
	}
}

func (r *receiver) handle(f camframe.Frame) {
	id := uuid.UUID(f.ID)
	l := r.log.With("id", id.String(), "bytes", len(f.Data))
	r.stats.Frames++

	if !bytes.HasSuffix(f.Data, endOfImage) {
		r.stats.Incomplete++
		l.Warn("capture has no end-of-image marker")
	}
	if r.frames.Skipped > 0 {
		l.Debug("skipped bytes before frame", "skipped", r.frames.Skipped)
		r.frames.Skipped = 0
	}

	path, err := r.store.Save(id, f.Data)
	if err != nil {
		r.stats.Dropped++
		l.Error("store capture", "error", err)
		return
	}
	l.Info("capture received", "path", path)

	if r.pub != nil {
		if err := r.pub.Publish(id, f.Data); err != nil {
			l.Error("publish capture", "error", err)
		}
	}
}

// ---------------- Store ----------------

type dirStore struct {
	dir string
	ext string
}

func newDirStore(dir, ext string) (*dirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &dirStore{dir: dir, ext: ext}, nil
}

// Save writes data to <dir>/<id><ext> through a temporary file.
func (s *dirStore) Save(id uuid.UUID, data []byte) (string, error) {
	path := filepath.Join(s.dir, id.String()+s.ext)
	tmp, err := os.CreateTemp(s.dir, ".capture-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("rename %s: %w", path, err)
	}
	return path, nil
}

// ---------------- MQTT ----------------

type mqttPublisher struct {
	client mqtt.Client
	topic  string
	wait   time.Duration
}

func connectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetAutoReconnect(true)

	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	return c, nil
}

// Publish sends data as a binary QoS 1 message on <topic>/<id>.
func (p *mqttPublisher) Publish(id uuid.UUID, data []byte) error {
	token := p.client.Publish(p.topic+"/"+id.String(), 1, false, data)
	if !token.WaitTimeout(p.wait) {
		return fmt.Errorf("publish %s: timed out after %s", id, p.wait)
	}
	return token.Error()
}

// ---------------- Port discovery ----------------

// pickPort returns the first USB serial port, restricted to vid when set.
func pickPort(ports []*enumerator.PortDetails, vid string) (string, error) {
	for _, p := range ports {
		if !p.IsUSB {
			continue
		}
		if vid != "" && !strings.EqualFold(p.VID, vid) {
			continue
		}
		return p.Name, nil
	}
	if vid != "" {
		return "", fmt.Errorf("no USB serial port with VID %s", vid)
	}
	return "", errors.New("no USB serial port found")
}

func detectPort(vid string) (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", fmt.Errorf("list serial ports: %w", err)
	}
	return pickPort(ports, vid)
}
