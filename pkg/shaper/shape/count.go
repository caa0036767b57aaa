package shape

import "sort"

// SampleCount is the label histogram attached to a pattern.
type SampleCount struct {
	Total   int
	ByLabel map[string]int
}

// NewSampleCount returns an empty count.
func NewSampleCount() SampleCount {
	return SampleCount{ByLabel: make(map[string]int)}
}

// Add records one sample with the given label.
func (s *SampleCount) Add(label string) {
	if s.ByLabel == nil {
		s.ByLabel = make(map[string]int)
	}
	s.Total++
	s.ByLabel[label]++
}

// Merge adds every vote of o into s.
func (s *SampleCount) Merge(o SampleCount) {
	if s.ByLabel == nil {
		s.ByLabel = make(map[string]int, len(o.ByLabel))
	}
	s.Total += o.Total
	for label, n := range o.ByLabel {
		s.ByLabel[label] += n
	}
}

// Majority returns the label holding strictly more than half of Total.
// An exact half is not a majority.
func (s SampleCount) Majority() (string, bool) {
	if s.Total <= 0 {
		return "", false
	}
	for label, n := range s.ByLabel {
		if 2*n > s.Total {
			return label, true
		}
	}
	return "", false
}

// Labels returns the labels sorted by descending count, then name.
func (s SampleCount) Labels() []string {
	labels := make([]string, 0, len(s.ByLabel))
	for label := range s.ByLabel {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if s.ByLabel[labels[i]] != s.ByLabel[labels[j]] {
			return s.ByLabel[labels[i]] > s.ByLabel[labels[j]]
		}
		return labels[i] < labels[j]
	})
	return labels
}

// Clone returns a deep copy.
func (s SampleCount) Clone() SampleCount {
	out := SampleCount{Total: s.Total, ByLabel: make(map[string]int, len(s.ByLabel))}
	for label, n := range s.ByLabel {
		out.ByLabel[label] = n
	}
	return out
}
