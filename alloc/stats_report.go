package alloc

import (
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type statRow struct {
	name  string
	count *StatCount
	bytes bool
}

func (s *Stats) rows() []statRow {
	return []statRow{
		{"segments", &s.Segments, false},
		{"pages", &s.Pages, false},
		{"reserved", &s.Reserved, true},
		{"committed", &s.Committed, true},
		{"segments abandoned", &s.SegmentsAbandoned, false},
		{"pages abandoned", &s.PagesAbandoned, false},
		{"pages extended", &s.PagesExtended, false},
		{"mmap calls", &s.MmapCalls, false},
		{"mmap right align", &s.MmapRightAlign, false},
		{"mmap ensure aligned", &s.MmapEnsureAligned, false},
		{"threads", &s.Threads, false},
		{"huge", &s.Huge, true},
		{"malloc", &s.Malloc, true},
	}
}

// Print writes s as a table. Byte quantities use binary units, counts are
// digit grouped. Per-bin page counts are listed for bins that saw any pages.
func (s *Stats) Print(w io.Writer) error {
	p := message.NewPrinter(language.English)
	var b strings.Builder

	p.Fprintf(&b, "%-20s %12s %12s %12s %12s\n", "", "allocated", "freed", "peak", "current")
	for _, r := range s.rows() {
		writeRow(p, &b, r.name, r.count, r.bytes)
	}
	for bin := range s.Normal {
		c := &s.Normal[bin]
		if c.Allocated == 0 {
			continue
		}
		name := p.Sprintf("normal %d (%s)", bin, humanize.IBytes(uint64(binTable[bin])))
		writeRow(p, &b, name, c, false)
	}
	avg := 0.0
	if s.Searches.Count > 0 {
		avg = float64(s.Searches.Total) / float64(s.Searches.Count)
	}
	p.Fprintf(&b, "%-20s %12d %12s %12.1f avg\n", "searches", s.Searches.Count, "", avg)

	_, err := io.WriteString(w, b.String())
	return err
}

func writeRow(p *message.Printer, b *strings.Builder, name string, c *StatCount, bytes bool) {
	if bytes {
		p.Fprintf(b, "%-20s %12s %12s %12s %12s\n", name,
			formatBytes(c.Allocated), formatBytes(c.Freed), formatBytes(c.Peak), formatBytes(c.Current))
		return
	}
	p.Fprintf(b, "%-20s %12d %12d %12d %12d\n", name, c.Allocated, c.Freed, c.Peak, c.Current)
}

func formatBytes(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}
