// Command wavfeed decodes a WAV file through go-audio/wav and feeds its PCM
// payload through a dualbuf.Buffer and a stream.Stream back to back,
// exercising the linear-buffer read/compact surface and the blocking
// circular stream on real audio bytes rather than synthetic test data.
// Grounded on the teacher's internal/audio player, which drove the same
// go-audio/portaudio stack for playback; this command drives go-audio/wav
// decode+encode instead.
package main

import (
	"flag"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/sirupsen/logrus"

	"xbuf/internal/report"
	"xbuf/pkg/dualbuf"
	"xbuf/pkg/stream"
)

var log = logrus.WithField("component", "wavfeed")

func main() {
	in := flag.String("in", "", "input WAV file path")
	out := flag.String("out", "", "output WAV file path (defaults to <in>.feed.wav)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if *in == "" {
		log.Fatal("-in is required")
	}
	if *out == "" {
		*out = *in + ".feed.wav"
	}

	if err := run(*in, *out); err != nil {
		log.WithError(err).Fatal("wavfeed failed")
	}
}

func run(inPath, outPath string) error {
	inFile, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer inFile.Close()

	dec := wav.NewDecoder(inFile)
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return err
	}

	raw := make([]byte, len(pcm.Data)*2)
	for i, sample := range pcm.Data {
		raw[2*i] = byte(sample)
		raw[2*i+1] = byte(sample >> 8)
	}

	// Stage 1: a Packing linear buffer holds the whole clip so we can
	// demonstrate Read/Compact against real decoded bytes.
	buf, err := dualbuf.Open(dualbuf.Options{Size: nextPow2(len(raw), dualbuf.MaxSize), Flags: dualbuf.Packing | dualbuf.Binary})
	if err != nil {
		return err
	}
	defer buf.Close()

	if _, err := buf.Write(raw); err != nil {
		return err
	}
	log.WithField("bytes", buf.Available()).Info("decoded clip staged in linear buffer")

	// Read off the first 1/4 of the clip and compact, demonstrating that
	// trimmed leading bytes are reclaimed.
	quarter := buf.Available() / 4
	drop := make([]byte, quarter)
	if _, err := buf.Read(drop); err != nil {
		return err
	}
	space, err := buf.Compact()
	if err != nil {
		return err
	}
	log.WithField("freedAfterCompact", space).Debug("compacted buffer after trimming lead-in")

	// Stage 2: pump the remaining bytes through a blocking circular Stream
	// a chunk at a time — each chunk no larger than the stream's capacity,
	// so a blocking Write can complete, and read straight back out before
	// the next — reporting progress the way the teacher's
	// control/monitor.go polled on a ticker.
	st, err := stream.New(stream.Options{Size: stream.MinSize * 4, Flags: stream.Binary})
	if err != nil {
		return err
	}

	lastReport := time.Now()

	var produced []byte
	chunk := make([]byte, 64)
	for buf.Available() > 0 {
		n, _ := buf.Read(chunk)
		if _, err := st.Write(chunk[:n]); err != nil {
			return err
		}
		out := make([]byte, st.Len())
		m, err := st.Read(out)
		if err != nil {
			return err
		}
		produced = append(produced, out[:m]...)

		if time.Since(lastReport) >= 200*time.Millisecond {
			report.Line(os.Stdout, st.Summary("wavfeed.stream"))
			lastReport = time.Now()
		}
	}

	outSamples := make([]int, len(produced)/2)
	for i := range outSamples {
		outSamples[i] = int(int16(uint16(produced[2*i]) | uint16(produced[2*i+1])<<8))
	}

	outFile, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer outFile.Close()

	enc := wav.NewEncoder(outFile, pcm.Format.SampleRate, pcm.SourceBitDepth, pcm.Format.NumChannels, 1)
	outBuf := &audio.IntBuffer{
		Format:         pcm.Format,
		Data:           outSamples,
		SourceBitDepth: pcm.SourceBitDepth,
	}
	if err := enc.Write(outBuf); err != nil {
		return err
	}
	return enc.Close()
}

func nextPow2(n, max int) int {
	size := dualbuf.MinSize
	for size < n && size < max {
		size *= 2
	}
	if size > max {
		size = max
	}
	return size
}
