// Package report implements the optional reporting sink spec.md §6
// describes: a single-line summary of a buffer's cursor state, and an
// on-demand hex/ASCII dump of its live bytes, both going through an
// injectable line-writer so tests can capture output and cmd/monitor can
// forward it over a websocket instead of stdout.
package report

import (
	"fmt"
	"io"
	"strings"
)

// Summary is the line-writer input: a flat set of fields common to both
// DualBuffer and Stream, so one formatter serves both.
type Summary struct {
	Name     string
	Begin    int
	End      int
	Read     int
	Write    int
	Size     int
	Used     int
	Circular bool
}

// Line writes one summary line to w, e.g.:
//
//	dualbuf[cmd-log]: beg=0 end=256 read=40 write=96 size=256 used=56 circular=false
//
// Line is best-effort: it never fails the underlying buffer, and its
// return value is the byte count written (0 on a write error, which is
// swallowed rather than propagated).
func Line(w io.Writer, s Summary) int {
	n, err := fmt.Fprintf(w, "%s: beg=%d end=%d read=%d write=%d size=%d used=%d circular=%t\n",
		s.Name, s.Begin, s.End, s.Read, s.Write, s.Size, s.Used, s.Circular)
	if err != nil {
		return 0
	}
	return n
}

// HexDump writes a two-column hex+ASCII dump of data to w, 16 bytes per
// row, mirroring the original ksstech/buffers report's dump mode that
// spec.md's one-line summary left out (see SPEC_FULL.md §6).
func HexDump(w io.Writer, data []byte) int {
	total := 0
	for off := 0; off < len(data); off += 16 {
		end := off + 16
		if end > len(data) {
			end = len(data)
		}
		row := data[off:end]

		hex := make([]string, 16)
		ascii := make([]byte, 16)
		for i := range hex {
			if i < len(row) {
				hex[i] = fmt.Sprintf("%02x", row[i])
				if row[i] >= 0x20 && row[i] < 0x7f {
					ascii[i] = row[i]
				} else {
					ascii[i] = '.'
				}
			} else {
				hex[i] = "  "
				ascii[i] = ' '
			}
		}

		n, err := fmt.Fprintf(w, "%08x  %s  |%s|\n", off, strings.Join(hex, " "), ascii)
		if err != nil {
			return total
		}
		total += n
	}
	return total
}
