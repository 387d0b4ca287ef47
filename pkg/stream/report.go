package stream

import "xbuf/internal/report"

// Summary returns the reporting-sink snapshot for this stream (spec.md
// §6's "report" operation).
func (s *Stream) Summary(name string) report.Summary {
	s.lock()
	defer s.unlock()
	return report.Summary{
		Name:  name,
		Begin: 0,
		End:   s.size,
		Read:  s.read,
		Write: s.write,
		Size:  s.size,
		Used:  s.used,
	}
}
