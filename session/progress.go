package session

import (
	"time"
)

// uvarintReader is the minimal surface readProgress needs; satisfied by
// both *proto.BufferReader (offline/test decoding) and *stream.Reader
// (live session decoding) without importing either package here.
type uvarintReader interface {
	ReadUvarint() (uint64, error)
}

// Progress accumulates the server's Progress packets across one query or
// insert: most fields
// sum across every packet received, memoryUsage is a gauge (replace, not
// add), totalRowsToRead/totalBytesToRead are the latest estimate (also
// replace), and cpuUsage/percent are derived rather than wire fields.
type Progress struct {
	ReadRows        uint64
	ReadBytes       uint64
	TotalRowsToRead uint64
	TotalBytesToRead uint64
	WrittenRows     uint64
	WrittenBytes    uint64
	MemoryUsage     uint64

	firstPacket time.Time
	lastPacket  time.Time
}

// progressWire is one decoded Progress packet body before accumulation.
type progressWire struct {
	ReadRows        uint64
	ReadBytes       uint64
	TotalRowsToRead uint64
	WrittenRows     uint64
	WrittenBytes    uint64
	MemoryUsage     uint64
	TotalBytesToRead uint64
}

// readProgress decodes one Progress packet body. Every
// field is a plain uvarint; fields added in later revisions of the real
// protocol aren't distinguished here because the server always sends the
// full fixed shape this implementation expects.
func readProgress(r uvarintReader) (*progressWire, error) {
	p := &progressWire{}
	var err error
	if p.ReadRows, err = r.ReadUvarint(); err != nil {
		return nil, err
	}
	if p.ReadBytes, err = r.ReadUvarint(); err != nil {
		return nil, err
	}
	if p.TotalRowsToRead, err = r.ReadUvarint(); err != nil {
		return nil, err
	}
	if p.WrittenRows, err = r.ReadUvarint(); err != nil {
		return nil, err
	}
	if p.WrittenBytes, err = r.ReadUvarint(); err != nil {
		return nil, err
	}
	if p.MemoryUsage, err = r.ReadUvarint(); err != nil {
		return nil, err
	}
	if p.TotalBytesToRead, err = r.ReadUvarint(); err != nil {
		return nil, err
	}
	return p, nil
}

// accumulate folds one decoded Progress packet into p.
func (p *Progress) accumulate(w *progressWire) {
	now := time.Now()
	if p.firstPacket.IsZero() {
		p.firstPacket = now
	}
	p.lastPacket = now

	p.ReadRows += w.ReadRows
	p.ReadBytes += w.ReadBytes
	p.WrittenRows += w.WrittenRows
	p.WrittenBytes += w.WrittenBytes
	p.MemoryUsage = w.MemoryUsage // gauge: replace
	if w.TotalRowsToRead > 0 {
		p.TotalRowsToRead = w.TotalRowsToRead // latest estimate: replace
	}
	if w.TotalBytesToRead > 0 {
		p.TotalBytesToRead = w.TotalBytesToRead
	}
}

// Elapsed is the wall time between the first and most recent Progress
// packet, the denominator of CPUUsage.
func (p *Progress) Elapsed() time.Duration {
	if p.firstPacket.IsZero() {
		return 0
	}
	return p.lastPacket.Sub(p.firstPacket)
}

// CPUUsage is cpuTimeMicroseconds (from ProfileEvents' harvested
// UserTimeMicroseconds + SystemTimeMicroseconds) divided by elapsed wall
// time in microseconds. A value above 1 means more than one thread's
// worth of CPU time was spent per unit of wall time.
func (p *Progress) CPUUsage(cpuTimeMicroseconds uint64) float64 {
	elapsedMicros := float64(p.Elapsed().Microseconds())
	if elapsedMicros <= 0 {
		return 0
	}
	return float64(cpuTimeMicroseconds) / elapsedMicros
}

// Percent is the completion percentage against whichever of readRows or
// totalRowsToRead is larger, so a stale or low server estimate never
// pushes the result above 100.
func (p *Progress) Percent() float64 {
	denom := p.ReadRows
	if p.TotalRowsToRead > denom {
		denom = p.TotalRowsToRead
	}
	if denom == 0 {
		return 0
	}
	return 100 * float64(p.ReadRows) / float64(denom)
}

// ProfileEvents accumulates the server's ProfileEvents counters by name,
// plus the memory/CPU metrics harvested out of specific well-known
// event names. Counters sum across packets unless a packet's type
// marks the event as a gauge, in which case the latest value replaces.
type ProfileEvents struct {
	Counters map[string]int64

	MemoryUsage         uint64 // latest MemoryTrackerUsage
	PeakMemoryUsage     uint64 // max-accumulated MemoryTrackerPeakUsage
	CPUTimeMicroseconds uint64 // summed UserTimeMicroseconds + SystemTimeMicroseconds
}

// NewProfileEvents returns an empty accumulator.
func NewProfileEvents() *ProfileEvents {
	return &ProfileEvents{Counters: make(map[string]int64)}
}

func (pe *ProfileEvents) add(name string, delta int64) {
	pe.Counters[name] += delta
}

// apply folds one decoded event row into pe, harvesting the named
// memory/CPU metrics in addition to the generic counter accumulation.
func (pe *ProfileEvents) apply(name string, value int64, gauge bool) {
	switch name {
	case "MemoryTrackerUsage":
		pe.MemoryUsage = uint64(value)
	case "MemoryTrackerPeakUsage":
		if uint64(value) > pe.PeakMemoryUsage {
			pe.PeakMemoryUsage = uint64(value)
		}
	case "UserTimeMicroseconds", "SystemTimeMicroseconds":
		pe.CPUTimeMicroseconds += uint64(value)
	}
	if gauge {
		pe.Counters[name] = value
	} else {
		pe.Counters[name] += value
	}
}
