package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.bug.st/serial/enumerator"

	"arducam-go/x/camframe"
)

type memStore struct {
	saved map[uuid.UUID][]byte
	err   error
}

func (m *memStore) Save(id uuid.UUID, data []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.saved == nil {
		m.saved = map[uuid.UUID][]byte{}
	}
	m.saved[id] = append([]byte(nil), data...)
	return "mem:" + id.String(), nil
}

type recordingPublisher struct {
	ids []uuid.UUID
}

func (p *recordingPublisher) Publish(id uuid.UUID, _ []byte) error {
	p.ids = append(p.ids, id)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func frame(t *testing.T, id uuid.UUID, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := camframe.NewWriter(&buf)
	if err := w.Begin(id); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.End(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func jpeg(n int) []byte {
	b := bytes.Repeat([]byte{0x42}, n)
	b[0], b[1] = 0xFF, 0xD8
	b[n-2], b[n-1] = 0xFF, 0xD9
	return b
}

func TestReceiverStoresAndPublishes(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	var stream []byte
	stream = append(stream, 0x13, 0x37) // line noise
	stream = append(stream, frame(t, a, jpeg(700))...)
	stream = append(stream, frame(t, b, []byte{1, 2, 3})...)

	store := &memStore{}
	pub := &recordingPublisher{}
	r := &receiver{
		frames: camframe.NewReader(bytes.NewReader(stream), 0),
		store:  store,
		pub:    pub,
		log:    quietLogger(),
	}
	if err := r.run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(store.saved[a], jpeg(700)) || !bytes.Equal(store.saved[b], []byte{1, 2, 3}) {
		t.Fatalf("stored = %d captures", len(store.saved))
	}
	if len(pub.ids) != 2 || pub.ids[0] != a || pub.ids[1] != b {
		t.Fatalf("published = %v", pub.ids)
	}
	if r.stats != (stats{Frames: 2, Incomplete: 1}) {
		t.Fatalf("stats = %+v", r.stats)
	}
}

func TestReceiverDropsOversizedFrames(t *testing.T) {
	big, small := uuid.New(), uuid.New()
	stream := append(frame(t, big, jpeg(600)), frame(t, small, jpeg(100))...)

	store := &memStore{}
	r := &receiver{
		frames: camframe.NewReader(bytes.NewReader(stream), 512),
		store:  store,
		log:    quietLogger(),
	}
	if err := r.run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.saved[big]; ok {
		t.Fatal("oversized capture was stored")
	}
	if !bytes.Equal(store.saved[small], jpeg(100)) {
		t.Fatal("capture after oversized frame was lost")
	}
	if r.stats.Dropped != 1 || r.stats.Frames != 1 {
		t.Fatalf("stats = %+v", r.stats)
	}
}

func TestReceiverStoreFailureIsNotFatal(t *testing.T) {
	pub := &recordingPublisher{}
	r := &receiver{
		frames: camframe.NewReader(bytes.NewReader(frame(t, uuid.New(), jpeg(10))), 0),
		store:  &memStore{err: errors.New("disk full")},
		pub:    pub,
		log:    quietLogger(),
	}
	if err := r.run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if r.stats.Dropped != 1 || len(pub.ids) != 0 {
		t.Fatalf("stats = %+v, published = %d", r.stats, len(pub.ids))
	}
}

func TestReceiverTruncatedStream(t *testing.T) {
	raw := frame(t, uuid.New(), jpeg(300))
	r := &receiver{
		frames: camframe.NewReader(bytes.NewReader(raw[:100]), 0),
		store:  &memStore{},
		log:    quietLogger(),
	}
	if err := r.run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if r.stats.Frames != 0 {
		t.Fatalf("stats = %+v", r.stats)
	}
}

type failingReader struct{ err error }

func (f failingReader) Read([]byte) (int, error) { return 0, f.err }

func TestReceiverReadError(t *testing.T) {
	boom := errors.New("port gone")
	r := &receiver{
		frames: camframe.NewReader(failingReader{boom}, 0),
		store:  &memStore{},
		log:    quietLogger(),
	}
	if err := r.run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.frames = camframe.NewReader(failingReader{boom}, 0)
	if err := r.run(ctx); err != nil {
		t.Fatalf("read error after cancel = %v, want nil", err)
	}
}

func TestDirStoreSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s, err := newDirStore(dir, ".jpg")
	if err != nil {
		t.Fatal(err)
	}
	id := uuid.New()
	path, err := s.Save(id, jpeg(64))
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, id.String()+".jpg") {
		t.Fatalf("path = %s", path)
	}
	got, err := os.ReadFile(path)
	if err != nil || !bytes.Equal(got, jpeg(64)) {
		t.Fatalf("read back %d bytes, %v", len(got), err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("dir has %d entries, temp file left behind", len(entries))
	}
}

// ---------------- MQTT ----------------

type fakeToken struct {
	mqtt.Token
	done bool
	err  error
}

func (t *fakeToken) WaitTimeout(time.Duration) bool { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type fakeClient struct {
	mqtt.Client
	topic    string
	qos      byte
	retained bool
	payload  []byte
	token    *fakeToken
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.topic, c.qos, c.retained = topic, qos, retained
	c.payload, _ = payload.([]byte)
	return c.token
}

func TestMQTTPublisher(t *testing.T) {
	id := uuid.New()
	c := &fakeClient{token: &fakeToken{done: true}}
	p := &mqttPublisher{client: c, topic: "site/cam", wait: time.Second}
	if err := p.Publish(id, jpeg(8)); err != nil {
		t.Fatal(err)
	}
	if c.topic != "site/cam/"+id.String() || c.qos != 1 || c.retained || !bytes.Equal(c.payload, jpeg(8)) {
		t.Fatalf("published %q qos=%d retained=%v", c.topic, c.qos, c.retained)
	}

	c.token = &fakeToken{done: false}
	if err := p.Publish(id, nil); err == nil {
		t.Fatal("expected timeout error")
	}
	boom := errors.New("not connected")
	c.token = &fakeToken{done: true, err: boom}
	if err := p.Publish(id, nil); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

// ---------------- Port discovery ----------------

func TestPickPort(t *testing.T) {
	ports := []*enumerator.PortDetails{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0403", PID: "6001"},
		{Name: "/dev/ttyACM0", IsUSB: true, VID: "2e8a", PID: "000a"},
	}
	if got, err := pickPort(ports, ""); err != nil || got != "/dev/ttyUSB0" {
		t.Fatalf("pickPort any = %q, %v", got, err)
	}
	if got, err := pickPort(ports, "2E8A"); err != nil || got != "/dev/ttyACM0" {
		t.Fatalf("pickPort vid = %q, %v", got, err)
	}
	if _, err := pickPort(ports, "1234"); err == nil {
		t.Fatal("expected error for unmatched VID")
	}
	if _, err := pickPort(ports[:1], ""); err == nil {
		t.Fatal("expected error with no USB ports")
	}
}
