// Package profile collects lightweight per-request timing marks and
// aggregates them across log lines into a summary report.
//
// A handler creates a Profile, marks named CPU and wall-clock spans as
// it works, and logs the profile's String at the end. The clprofile
// tool (or Report) then folds many such lines into per-mark statistics.
package profile

import (
	"maps"
	"sort"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/svckit/svckit/number"
)

// Profile accumulates named marks. Safe for use from a single
// goroutine; aggregate across goroutines with Merge.
type Profile struct {
	lastCPU  time.Duration
	lastWall time.Time
	marks    map[string]float64
}

// New returns a Profile with both clocks reset to now.
func New() *Profile {
	p := &Profile{marks: make(map[string]float64)}
	p.Reset()
	return p
}

// Reset restarts both the CPU and wall clocks without touching marks.
func (p *Profile) Reset() {
	p.ResetCPU()
	p.ResetTime()
}

// ResetCPU restarts the CPU clock.
func (p *Profile) ResetCPU() {
	p.lastCPU = processCPU()
}

// ResetTime restarts the wall clock.
func (p *Profile) ResetTime() {
	p.lastWall = time.Now()
}

// Mark adds value to the named mark.
func (p *Profile) Mark(name string, value float64) {
	p.marks[name] += value
}

// MarkCPU records CPU seconds spent since the last CPU reset under
// name:cpu, then resets the CPU clock.
func (p *Profile) MarkCPU(name string) {
	now := processCPU()
	p.Mark(name+":cpu", (now - p.lastCPU).Seconds())
	p.lastCPU = now
}

// MarkTime records wall-clock seconds since the last time reset under
// name:time, then resets the wall clock.
func (p *Profile) MarkTime(name string) {
	now := time.Now()
	p.Mark(name+":time", now.Sub(p.lastWall).Seconds())
	p.lastWall = now
}

// MarkAll records both the CPU and wall-clock spans for name.
func (p *Profile) MarkAll(name string) {
	p.MarkCPU(name)
	p.MarkTime(name)
}

// Merge folds another profile's marks into this one.
func (p *Profile) Merge(other *Profile) {
	for name, value := range other.marks {
		p.marks[name] += value
	}
}

// Marks returns a copy of the current marks.
func (p *Profile) Marks() map[string]float64 {
	return maps.Clone(p.marks)
}

// String renders the marks as sorted name=value pairs on one line,
// ready for logging.
func (p *Profile) String() string {
	names := make([]string, 0, len(p.marks))
	for name := range p.marks {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, len(names))
	for i, name := range names {
		pairs[i] = name + "=" + number.Encode(p.marks[name], number.WithoutSIPrefix())
	}
	return strings.Join(pairs, " ")
}

// processCPU returns user plus system CPU time consumed by the process.
func processCPU() time.Duration {
	var usage unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &usage); err != nil {
		return 0
	}
	return time.Duration(usage.Utime.Nano() + usage.Stime.Nano())
}
