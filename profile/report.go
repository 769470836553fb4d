package profile

import (
	"bufio"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/svckit/svckit/number"
)

// Stats summarizes one mark across many profile lines. Count is the
// number of lines the mark appeared on.
type Stats struct {
	Count int
	Total float64
	Min   float64
	Max   float64
	sumSq float64
}

// Mean is the per-line average.
func (s *Stats) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Total / float64(s.Count)
}

// StdDev is the population standard deviation of the per-line values.
func (s *Stats) StdDev() float64 {
	if s.Count == 0 {
		return 0
	}
	mean := s.Mean()
	variance := s.sumSq/float64(s.Count) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

func (s *Stats) add(value float64) {
	if s.Count == 0 || value < s.Min {
		s.Min = value
	}
	if s.Count == 0 || value > s.Max {
		s.Max = value
	}
	s.Count++
	s.Total += value
	s.sumSq += value * value
}

// Aggregate reads profile lines of name=value pairs and folds them
// into per-mark statistics. Colon-separated mark names roll up into
// every ordered subset of their qualifiers, so db:select:time counts
// toward db:select:time, db:time, select:time, and time. Tokens that
// are not name=value pairs are skipped, so full log lines can be fed
// in as-is.
func Aggregate(r io.Reader) (map[string]*Stats, error) {
	stats := make(map[string]*Stats)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		event := make(map[string]float64)
		for _, field := range strings.Fields(scanner.Text()) {
			name, raw, ok := strings.Cut(field, "=")
			if !ok || name == "" {
				continue
			}
			value, err := number.Decode(raw)
			if err != nil {
				continue
			}
			for _, rollup := range rollups(name) {
				event[rollup] += value
			}
		}
		for name, value := range event {
			s, ok := stats[name]
			if !ok {
				s = &Stats{}
				stats[name] = s
			}
			s.add(value)
		}
	}
	return stats, scanner.Err()
}

// rollups expands db:select:time into every ordered subset of the
// leading qualifiers combined with the trailing type.
func rollups(name string) []string {
	parts := strings.Split(name, ":")
	if len(parts) == 1 {
		return parts
	}
	qualifiers := parts[:len(parts)-1]
	typ := parts[len(parts)-1]
	if len(qualifiers) > 16 {
		return []string{name}
	}
	var out []string
	for mask := 0; mask < 1<<len(qualifiers); mask++ {
		var picked []string
		for i, q := range qualifiers {
			if mask&(1<<i) != 0 {
				picked = append(picked, q)
			}
		}
		out = append(out, strings.Join(append(picked, typ), ":"))
	}
	return out
}

// Report aggregates profile lines from r and renders a summary table
// to w, one row per mark, sorted by name.
func Report(r io.Reader, w io.Writer) error {
	stats, err := Aggregate(r)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	table := tablewriter.NewWriter(w)
	table.Header("Name", "Count", "Mean", "Min", "Max", "StdDev", "Total")
	for _, name := range names {
		s := stats[name]
		if err := table.Append(
			name,
			number.Encode(float64(s.Count)),
			number.Encode(s.Mean()),
			number.Encode(s.Min),
			number.Encode(s.Max),
			number.Encode(s.StdDev()),
			number.Encode(s.Total),
		); err != nil {
			return err
		}
	}
	return table.Render()
}
