package camera

import (
	"context"
	"time"

	"github.com/google/uuid"

	"arducam-go/drivers/arducam"
	"arducam-go/errcode"
	"arducam-go/types"
	"arducam-go/x/mathx"
)

// capture runs one full capture: trigger, length readout, then the payload
// drained into the sink as one frame.
func (s *Service) capture(ctx context.Context, tag string) (types.CaptureResult, error) {
	id := uuid.New()
	idStr := id.String()

	s.publishState(types.LevelCapturing, nil)
	sess, err := s.dev.Capture(ctx)
	if err != nil {
		s.fail(err)
		return types.CaptureResult{}, err
	}
	if sess.Anomaly {
		s.conn.Publish(s.conn.NewMessage(TopicEventAnomaly,
			types.FifoAnomaly{ID: idStr, Length: sess.Total, Error: string(errcode.Of(arducam.ErrFifoLength))}, false))
	}

	if err := s.sink.Begin([16]byte(id)); err != nil {
		s.fail(err)
		return types.CaptureResult{}, err
	}
	pw := &progressWriter{s: s, id: idStr, total: sess.Total}
	n, err := s.dev.Drain(ctx, sess, pw)
	if endErr := s.sink.End(); err == nil {
		err = endErr
	}
	if err != nil {
		s.fail(err)
		return types.CaptureResult{}, err
	}
	s.publishProgress(idStr, sess.Total, sess.Total)

	s.captures++
	s.lastErr = nil
	s.publishState(types.LevelReady, nil)
	return types.CaptureResult{
		OK:        true,
		ID:        idStr,
		Tag:       tag,
		Sensor:    s.sensor(),
		Total:     sess.Total,
		Bytes:     n,
		Chunks:    mathx.CeilDiv(uint32(sess.Total), arducam.ChunkSize),
		EndMarker: sess.EndMarker,
		Anomaly:   sess.Anomaly,
		TS:        time.Now().UnixNano(),
	}, nil
}

func (s *Service) publishProgress(id string, done, total int) {
	s.conn.Publish(s.conn.NewMessage(TopicEventProgress,
		types.CaptureProgress{ID: id, Done: done, Total: total}, false))
}

// progressWriter forwards drained chunks to the sink and reports progress
// once per chunk.
type progressWriter struct {
	s     *Service
	id    string
	done  int
	total int
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.s.sink.Write(b)
	p.done += n
	p.s.publishProgress(p.id, mathx.Min(p.done, p.total), p.total)
	return n, err
}
