// Command micfeed captures live microphone input through PortAudio and
// drains it to a WAV file via go-audio/wav.
//
// The PortAudio callback runs on a real-time audio thread that must never
// wait on a slow consumer, so it writes straight into a stream.Stream
// opened with the Truncate overflow policy: a write that would overrun
// the stream evicts the oldest unread bytes instead of blocking, exactly
// the circular-overrun behavior spec.md calls out for a consumer that
// can't keep pace. Grounded on the teacher's internal/audio recorder
// callback shape, feeding xbuf's own bounded circular byte stream instead
// of a second, duplicate ring implementation.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"
	"github.com/sirupsen/logrus"

	"xbuf/internal/report"
	"xbuf/pkg/stream"
)

var log = logrus.WithField("component", "micfeed")

func main() {
	out := flag.String("out", "capture.wav", "output WAV file path")
	duration := flag.Duration("duration", 5*time.Second, "how long to record")
	sampleRate := flag.Int("rate", 16000, "capture sample rate in Hz")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if err := run(*out, *sampleRate, *duration); err != nil {
		log.WithError(err).Fatal("micfeed failed")
	}
}

func run(outPath string, sampleRate int, duration time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	if err := portaudio.Initialize(); err != nil {
		return err
	}
	defer portaudio.Terminate()

	st, err := stream.New(stream.Options{Size: stream.MaxSize, Flags: stream.Truncate | stream.Binary})
	if err != nil {
		return err
	}

	pa, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), 0, func(in []int16) {
		raw := make([]byte, len(in)*2)
		for i, s := range in {
			raw[2*i] = byte(s)
			raw[2*i+1] = byte(s >> 8)
		}
		if _, err := st.Write(raw); err != nil {
			log.WithError(err).Warn("stream write failed")
		}
	})
	if err != nil {
		return err
	}
	defer pa.Close()

	if err := pa.Start(); err != nil {
		return err
	}
	log.WithField("sampleRate", sampleRate).Info("recording started")

	var captured []byte
	chunk := make([]byte, 4096)

	drain := func() {
		for st.Len() > 0 {
			n, err := st.Read(chunk)
			if err != nil {
				return
			}
			captured = append(captured, chunk[:n]...)
		}
	}

	reportTick := time.NewTicker(500 * time.Millisecond)
	defer reportTick.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-reportTick.C:
			drain()
			report.Line(os.Stdout, st.Summary("micfeed.stream"))
		}
	}

	if err := pa.Stop(); err != nil {
		log.WithError(err).Warn("failed to stop stream cleanly")
	}
	drain()
	log.WithField("bytes", len(captured)).Info("recording finished")

	return writeWAV(outPath, captured, sampleRate)
}

func writeWAV(path string, pcmBytes []byte, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	samples := make([]int, len(pcmBytes)/2)
	for i := range samples {
		samples[i] = int(int16(uint16(pcmBytes[2*i]) | uint16(pcmBytes[2*i+1])<<8))
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}
