package dualbuf

import "xbuf/internal/report"

// Summary returns the reporting-sink snapshot for this buffer (spec.md
// §6's "report" operation).
func (b *Buffer) Summary(name string) report.Summary {
	g := b.guard()
	defer g.Release()
	return report.Summary{
		Name:     name,
		Begin:    0,
		End:      b.capacity(),
		Read:     b.read,
		Write:    b.write,
		Size:     b.capacity(),
		Used:     b.used,
		Circular: b.flags.Has(Circular),
	}
}
