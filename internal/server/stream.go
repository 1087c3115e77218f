package server

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/sync/errgroup"

	"github.com/scrivano/scrivano/internal/session"
	"github.com/scrivano/scrivano/pkg/audio"
)

// maxFrameBytes bounds one inbound WebSocket message: 4 MiB covers well over
// ten seconds of 48 kHz float32 audio in a single frame.
const maxFrameBytes = 4 << 20

// frameHeaderBytes is the length of the binary frame prefix: a little-endian
// uint32 sample rate, where zero means "use the stream's current rate".
const frameHeaderBytes = 4

// initFrame is the optional JSON text message a client may send to declare
// its sample rate up front instead of stamping every binary frame.
type initFrame struct {
	SampleRate int `json:"sample_rate"`
}

// handleStream upgrades the request to a WebSocket and pumps it through one
// transcription session: inbound binary frames become audio chunks, session
// results go back as JSON text messages. The handler returns when the client
// closes the stream (after the session's final flush) or the context dies.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{})
	if err != nil {
		s.log.Warn("websocket accept failed", "error", err, "remote", r.RemoteAddr)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream aborted")
	conn.SetReadLimit(maxFrameBytes)

	s.sessions.Add(1)
	defer s.sessions.Done()

	// The connection dies with either the request or the server lifecycle
	// (drain timeout exceeded).
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(s.lifecycle, cancel)
	defer stop()

	sess := session.New(s.tr,
		session.WithLogger(s.log),
		session.WithMetrics(s.metrics),
		session.WithTranscribeOptions(s.sttOpts),
	)

	in := make(chan session.Chunk, 16)
	out := make(chan session.Result, 16)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(out)
		return sess.Run(ctx, in, out)
	})

	g.Go(func() error {
		return s.readFrames(ctx, conn, in)
	})

	g.Go(func() error {
		for res := range out {
			if err := wsjson.Write(ctx, conn, res); err != nil {
				return err
			}
		}
		return nil
	})

	err = g.Wait()

	if s.archiver != nil {
		if rec := sess.Recording(); len(rec) > 0 {
			if _, saveErr := s.archiver.Save(sess.ID(), rec); saveErr != nil {
				s.log.Warn("recording archive failed", "session", sess.ID(), "error", saveErr)
			}
		}
	}

	if err != nil {
		s.log.Info("stream ended", "session", sess.ID(), "error", err)
		return
	}
	conn.Close(websocket.StatusNormalClosure, "session complete")
}

// readFrames consumes WebSocket messages until the client closes the stream.
// A normal close closes the in channel so the session can run its final
// flush; any other failure aborts the pump.
func (s *Server) readFrames(ctx context.Context, conn *websocket.Conn, in chan<- session.Chunk) error {
	// streamRate is the rate assumed for frames with a zero rate header.
	streamRate := audio.TargetRate

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				close(in)
				return nil
			}
			return err
		}

		switch typ {
		case websocket.MessageText:
			var init initFrame
			if jsonErr := json.Unmarshal(data, &init); jsonErr != nil {
				s.log.Warn("ignoring malformed text frame", "error", jsonErr)
				continue
			}
			if init.SampleRate > 0 {
				streamRate = init.SampleRate
			}

		case websocket.MessageBinary:
			if len(data) < frameHeaderBytes {
				s.log.Warn("dropping short binary frame", "bytes", len(data))
				continue
			}
			rate := int(binary.LittleEndian.Uint32(data[:frameHeaderBytes]))
			if rate == 0 {
				rate = streamRate
			}

			samples, ok := audio.DecodeFloat32LE(data[frameHeaderBytes:])
			if !ok {
				s.log.Warn("dropping corrupt audio frame", "bytes", len(data))
				continue
			}
			if len(samples) == 0 {
				continue
			}

			select {
			case in <- session.Chunk{Samples: samples, SampleRate: rate}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
