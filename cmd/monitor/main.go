// Command monitor serves the reporting-sink summaries of a demo buffer,
// stream and history ring over a WebSocket, one line per tick,
// so a dashboard can watch cursor state change in real time. Grounded on
// the teacher's internal/websocket client (mutex-guarded *websocket.Conn
// plus a context-cancelled lifecycle) and internal/control/monitor's
// ticker loop, both inverted here to the server side.
package main

import (
	"flag"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"xbuf/internal/report"
	"xbuf/pkg/dualbuf"
	"xbuf/pkg/history"
	"xbuf/pkg/stream"
)

var log = logrus.WithField("component", "monitor")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// session is one connected monitor client.
type session struct {
	id   uuid.UUID
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *session) writeLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, []byte(line))
}

// demo is the fixed set of components monitor reports on.
type demo struct {
	buf  *dualbuf.Buffer
	st   *stream.Stream
	hist *history.Ring
}

func newDemo() (*demo, error) {
	buf, err := dualbuf.Open(dualbuf.Options{Size: dualbuf.MinSize, Flags: dualbuf.Packing})
	if err != nil {
		return nil, err
	}
	st, err := stream.New(stream.Options{Size: stream.MinSize})
	if err != nil {
		return nil, err
	}
	hist, err := history.New(history.DefaultCapacity)
	if err != nil {
		return nil, err
	}
	return &demo{buf: buf, st: st, hist: hist}, nil
}

// tick nudges each component so the reported summaries visibly change
// from one line to the next.
func (d *demo) tick(n int) {
	if d.buf.Space() == 0 {
		_, _ = d.buf.GetC()
		d.buf.Space() // reclaim the just-freed byte via Packing's auto-compact
	}
	_, _ = d.buf.PutC(byte('a' + n%26))
	_ = d.st.PutC(byte('a' + n%26))
	if d.st.Free() == 0 {
		_, _ = d.st.GetC()
	}
	_ = d.hist.Add([]byte{byte('a' + n%26)})
}

func (d *demo) report(w interface{ writeLine(string) error }) {
	_ = report.Line(lineWriter(w.writeLine), d.buf.Summary("monitor.buffer"))
	_ = report.Line(lineWriter(w.writeLine), d.st.Summary("monitor.stream"))
	_ = report.Line(lineWriter(w.writeLine), d.hist.Summary("monitor.history"))
}

// lineWriter adapts a string-sending func to io.Writer for report.Line.
type lineWriter func(string) error

func (f lineWriter) Write(p []byte) (int, error) {
	if err := f(string(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

func main() {
	addr := flag.String("addr", ":8089", "listen address")
	interval := flag.Duration("interval", time.Second, "report tick interval")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	d, err := newDemo()
	if err != nil {
		log.WithError(err).Fatal("failed to build demo components")
	}

	var (
		mu       sync.Mutex
		sessions = map[uuid.UUID]*session{}
	)

	http.HandleFunc("/ubuf/monitor", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.WithError(err).Warn("upgrade failed")
			return
		}
		s := &session{id: uuid.New(), conn: conn}

		mu.Lock()
		sessions[s.id] = s
		mu.Unlock()
		log.WithField("session", s.id).Info("monitor client connected")

		go func() {
			defer func() {
				mu.Lock()
				delete(sessions, s.id)
				mu.Unlock()
				conn.Close()
				log.WithField("session", s.id).Info("monitor client disconnected")
			}()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})

	go func() {
		ticker := time.NewTicker(*interval)
		defer ticker.Stop()
		for n := 0; ; n++ {
			<-ticker.C
			d.tick(n)

			mu.Lock()
			targets := make([]*session, 0, len(sessions))
			for _, s := range sessions {
				targets = append(targets, s)
			}
			mu.Unlock()

			for _, s := range targets {
				d.report(s)
			}
		}
	}()

	log.WithField("addr", *addr).Info("monitor listening")
	if err := http.ListenAndServe(*addr, nil); err != nil {
		log.WithError(err).Fatal("server failed")
	}
}
