package reconcile

import (
	"cmp"
	"slices"
)

// Host is one monitored host. Name is empty unless display names are read.
type Host struct {
	HostID int64  `json:"hostid"`
	Host   string `json:"host"`
	Name   string `json:"name,omitempty"`
}

func compareHosts(a, b Host) int {
	return cmp.Or(
		cmp.Compare(a.HostID, b.HostID),
		cmp.Compare(a.Host, b.Host),
		cmp.Compare(a.Name, b.Name),
	)
}

// HostSet deduplicates hosts by full-field equality.
type HostSet map[Host]struct{}

func NewHostSet(hosts ...Host) HostSet {
	s := make(HostSet, len(hosts))
	for _, h := range hosts {
		s.Add(h)
	}
	return s
}

func (s HostSet) Add(h Host) {
	s[h] = struct{}{}
}

func (s HostSet) Contains(h Host) bool {
	_, ok := s[h]
	return ok
}

func (s HostSet) Len() int {
	return len(s)
}

// Sorted returns the members ordered by host id, then names.
func (s HostSet) Sorted() []Host {
	out := make([]Host, 0, len(s))
	for h := range s {
		out = append(out, h)
	}
	slices.SortFunc(out, compareHosts)
	return out
}

// ReconcileHosts types host rows into a set.
func ReconcileHosts(rows []Row, opts Options) HostSet {
	var st SectionStats
	return reconcileHosts(rows, opts, &st)
}

func reconcileHosts(rows []Row, opts Options, st *SectionStats) HostSet {
	out := make(HostSet)
	for _, row := range rows {
		st.Rows++
		if opts.FilterDisabled && !enabled(row) {
			st.Disabled++
			continue
		}
		id, ok := int64Value(row["hostid"])
		if !ok {
			st.Invalid++
			continue
		}
		name, ok := stringValue(row["host"])
		if !ok {
			st.Invalid++
			continue
		}
		h := Host{HostID: id, Host: name}
		if opts.DisplayNames {
			// The server leaves the visible name empty when it equals the technical one.
			h.Name, _ = stringValue(row["name"])
			if h.Name == "" {
				h.Name = name
			}
		}
		out.Add(h)
	}
	st.Kept = out.Len()
	return out
}
