package reconcile

import (
	"github.com/danmuck/zbxctl/internal/observability"
	"github.com/rs/zerolog/log"
)

// SectionStats counts what happened to the rows of one section.
type SectionStats struct {
	Rows      int `json:"rows"`
	Kept      int `json:"kept"`
	Disabled  int `json:"disabled"`
	Invalid   int `json:"invalid"`
	ZeroDelay int `json:"zero_delay"`
}

// Duplicates is the number of accepted rows that collapsed into an existing member.
func (s SectionStats) Duplicates() int {
	return s.Rows - s.Disabled - s.Invalid - s.ZeroDelay - s.Kept
}

type Stats struct {
	Hosts SectionStats `json:"hosts"`
	Items SectionStats `json:"items"`
}

// Snapshot is the reconciled view of one configuration payload.
type Snapshot struct {
	Hosts HostSet
	Items ItemSet
	Stats Stats
}

// Reconcile reads the hosts and items sections of payload.
func Reconcile(payload map[string]any, opts Options) Snapshot {
	var snap Snapshot
	snap.Hosts = reconcileHosts(Section(payload, SectionHosts), opts, &snap.Stats.Hosts)
	snap.Items = reconcileItems(Section(payload, SectionItems), opts, &snap.Stats.Items)

	recordStats(SectionHosts, snap.Stats.Hosts)
	recordStats(SectionItems, snap.Stats.Items)
	log.Debug().
		Str("component", "reconcile").
		Int("host_rows", snap.Stats.Hosts.Rows).
		Int("hosts", snap.Hosts.Len()).
		Int("item_rows", snap.Stats.Items.Rows).
		Int("items", snap.Items.Len()).
		Int("items_zero_delay", snap.Stats.Items.ZeroDelay).
		Strs("compress", opts.Compress).
		Msg("reconciled config")
	return snap
}

func recordStats(section string, st SectionStats) {
	observability.RecordReconcileRows(section, "kept", st.Kept)
	observability.RecordReconcileRows(section, "duplicate", st.Duplicates())
	observability.RecordReconcileRows(section, "disabled", st.Disabled)
	observability.RecordReconcileRows(section, "invalid", st.Invalid)
	observability.RecordReconcileRows(section, "zero_delay", st.ZeroDelay)
}

func (s Snapshot) HostItems() []HostItem {
	return JoinHostItem(s.Hosts, s.Items)
}

func (s Snapshot) ItemHosts() []ItemHost {
	return JoinItemHost(s.Hosts, s.Items)
}

// View is the json form of a snapshot.
type View struct {
	Hosts []Host `json:"hosts"`
	Items []Item `json:"items"`
	Stats Stats  `json:"stats"`
}

func (s Snapshot) View() View {
	return View{
		Hosts: s.Hosts.Sorted(),
		Items: s.Items.Sorted(),
		Stats: s.Stats,
	}
}
