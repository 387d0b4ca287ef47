package history

import "xbuf/internal/report"

// Summary returns the reporting-sink snapshot for this ring (spec.md §6's
// "report" operation, extended to the record-oriented ring: read/write
// here are byte offsets into the backing array, not record counts).
func (r *Ring) Summary(name string) report.Summary {
	return report.Summary{
		Name:  name,
		Begin: 0,
		End:   r.size,
		Read:  r.idxRead,
		Write: r.idxWrite,
		Size:  r.size,
		Used:  r.usedLocked(),
	}
}
