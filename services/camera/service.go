// Package camera is the single owner of an arducam.Device. It applies the
// retained camera configuration, runs captures on request or on an interval,
// streams each payload into a FrameSink and publishes state and progress on
// the bus.
package camera

import (
	"context"
	"time"

	"arducam-go/bus"
	"arducam-go/drivers/arducam"
	"arducam-go/errcode"
	"arducam-go/types"
)

// FrameSink receives one capture per Begin/End pair. camframe.Writer is the
// usual implementation.
type FrameSink interface {
	Begin(id [16]byte) error
	Write(p []byte) (int, error)
	End() error
}

var (
	TopicConfig        = bus.Topic{"config", "camera"}
	TopicCtrlCapture   = bus.Topic{"camera", "control", "capture"}
	TopicCtrlSet       = bus.Topic{"camera", "control", "set"}
	TopicCtrlReset     = bus.Topic{"camera", "control", "reset"}
	TopicState         = bus.Topic{"camera", "state"}
	TopicEventProgress = bus.Topic{"camera", "event", "progress"}
	TopicEventAnomaly  = bus.Topic{"camera", "event", "anomaly"}
)

type Service struct {
	conn *bus.Connection
	dev  *arducam.Device
	sink FrameSink

	cfg      types.CameraConfig // merge of every accepted config, re-applied after a reset
	haveCfg  bool
	lastErr  error
	captures uint32

	interval time.Duration
	timer    *time.Timer
}

func New(conn *bus.Connection, dev *arducam.Device, sink FrameSink) *Service {
	return &Service{conn: conn, dev: dev, sink: sink}
}

// Run initialises the camera and serves requests until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	cfgSub := s.conn.Subscribe(TopicConfig)
	capSub := s.conn.Subscribe(TopicCtrlCapture)
	setSub := s.conn.Subscribe(TopicCtrlSet)
	resetSub := s.conn.Subscribe(TopicCtrlReset)
	defer s.conn.Unsubscribe(cfgSub)
	defer s.conn.Unsubscribe(capSub)
	defer s.conn.Unsubscribe(setSub)
	defer s.conn.Unsubscribe(resetSub)

	s.timer = time.NewTimer(time.Hour)
	stopTimer(s.timer)
	defer s.timer.Stop()

	s.publishState(types.LevelInit, nil)
	s.initialize(ctx)

	// Retained config queued at subscribe time goes before any request.
	select {
	case msg := <-cfgSub.Channel():
		s.handleConfig(msg)
	default:
	}

	for {
		select {
		case <-ctx.Done():
			s.publishState(types.LevelStopped, nil)
			return

		case msg := <-cfgSub.Channel():
			s.handleConfig(msg)

		case msg := <-setSub.Channel():
			cfg, ok := msg.Payload.(types.CameraConfig)
			if !ok {
				s.replyErr(msg, errcode.InvalidParams)
				continue
			}
			if err := s.configure(cfg); err != nil {
				s.replyFromError(msg, err)
				continue
			}
			s.replyOK(msg)

		case msg := <-capSub.Channel():
			req, _ := msg.Payload.(types.CaptureRequest)
			res, err := s.capture(ctx, req.Tag)
			if err != nil {
				s.replyFromError(msg, err)
				continue
			}
			if msg.CanReply() {
				s.conn.Reply(msg, res, false)
			}

		case msg := <-resetSub.Channel():
			if err := s.initialize(ctx); err != nil {
				s.replyFromError(msg, err)
				continue
			}
			s.replyOK(msg)

		case <-s.timer.C:
			if _, err := s.capture(ctx, "interval"); err != nil {
				println("[camera] interval capture failed:", err.Error())
			}
			if s.interval > 0 {
				s.timer.Reset(s.interval)
			}
		}
	}
}

// initialize resets and probes the module, then re-applies the last
// configuration (Initialize clears the driver's settings).
func (s *Service) initialize(ctx context.Context) error {
	if err := s.dev.Initialize(ctx); err != nil {
		println("[camera] initialise failed:", err.Error())
		s.fail(err)
		return err
	}
	println("[camera] sensor", s.sensor())
	if s.haveCfg {
		if err := applyConfig(s.dev, s.cfg); err != nil {
			s.fail(err)
			return err
		}
	}
	s.lastErr = nil
	s.publishState(types.LevelReady, nil)
	return nil
}

func (s *Service) handleConfig(msg *bus.Message) {
	cfg, ok := msg.Payload.(types.CameraConfig)
	if !ok {
		s.fail(errcode.InvalidParams)
		return
	}
	if err := s.configure(cfg); err != nil {
		println("[camera] config rejected:", err.Error())
		s.fail(err)
	}
}

// configure applies cfg and merges it into the remembered configuration.
// Fields cfg leaves unset keep their previous values.
func (s *Service) configure(cfg types.CameraConfig) error {
	if err := applyConfig(s.dev, cfg); err != nil {
		return err
	}
	mergeConfig(&s.cfg, cfg)
	s.haveCfg = true
	if cfg.IntervalMs != nil {
		s.setInterval(time.Duration(*cfg.IntervalMs) * time.Millisecond)
	}
	if s.lastErr == nil {
		s.publishState(types.LevelReady, nil)
	}
	return nil
}

func (s *Service) setInterval(d time.Duration) {
	s.interval = d
	stopTimer(s.timer)
	if d > 0 {
		s.timer.Reset(d)
	}
}

// stopTimer stops t and discards a tick that already fired.
func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func (s *Service) sensor() string {
	if v := s.dev.Variant(); v != nil {
		return v.Name()
	}
	return ""
}

// ---------------- State + replies ----------------

func (s *Service) fail(err error) {
	s.lastErr = err
	s.publishState(types.LevelError, err)
}

func (s *Service) publishState(level types.CameraLevel, err error) {
	st := types.CameraState{
		Level:    level,
		Sensor:   s.sensor(),
		Captures: s.captures,
		TS:       time.Now().UnixNano(),
	}
	if err != nil {
		st.Error = string(errcode.Of(err))
	}
	s.conn.Publish(s.conn.NewMessage(TopicState, st, true))
}

func (s *Service) replyOK(m *bus.Message) {
	if m.CanReply() {
		s.conn.Reply(m, types.OKReply{OK: true}, false)
	}
}

func (s *Service) replyErr(m *bus.Message, code errcode.Code) {
	if !m.CanReply() {
		return
	}
	s.conn.Reply(m, types.ErrorReply{OK: false, Error: string(code)}, false)
}

func (s *Service) replyFromError(m *bus.Message, err error) {
	if !m.CanReply() {
		return
	}
	s.conn.Reply(m, types.ErrorReply{OK: false, Error: string(errcode.Of(err)), Detail: err.Error()}, false)
}
