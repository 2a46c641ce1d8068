package reconcile

import (
	"cmp"
	"slices"
	"strings"

	"github.com/danmuck/zbxctl/internal/delay"
)

// Item is one polled item after key compression. ItemID is 0 when item ids are not read.
type Item struct {
	ItemID int64  `json:"itemid,omitempty"`
	HostID int64  `json:"hostid"`
	Key    string `json:"key"`
	Delay  uint32 `json:"delay"`
}

func compareItems(a, b Item) int {
	return cmp.Or(
		cmp.Compare(a.HostID, b.HostID),
		cmp.Compare(a.Key, b.Key),
		cmp.Compare(a.Delay, b.Delay),
		cmp.Compare(a.ItemID, b.ItemID),
	)
}

// ItemSet deduplicates items by full-field equality.
type ItemSet map[Item]struct{}

func NewItemSet(items ...Item) ItemSet {
	s := make(ItemSet, len(items))
	for _, it := range items {
		s.Add(it)
	}
	return s
}

func (s ItemSet) Add(it Item) {
	s[it] = struct{}{}
}

func (s ItemSet) Contains(it Item) bool {
	_, ok := s[it]
	return ok
}

func (s ItemSet) Len() int {
	return len(s)
}

// Sorted returns the members ordered by host id, key, delay, then item id.
func (s ItemSet) Sorted() []Item {
	out := make([]Item, 0, len(s))
	for it := range s {
		out = append(out, it)
	}
	slices.SortFunc(out, compareItems)
	return out
}

// CompressKey truncates key at the first occurrence of each token, in order. A token
// only has an effect if it is still present after the earlier truncations:
// CompressKey("df[0]_x", []string{"[", "_"}) == "df".
func CompressKey(key string, tokens []string) string {
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if i := strings.Index(key, tok); i >= 0 {
			key = key[:i]
		}
	}
	return key
}

// ReconcileItems types item rows into a set. Rows whose delay parses to zero are
// dropped: they are not polled.
func ReconcileItems(rows []Row, opts Options) ItemSet {
	var st SectionStats
	return reconcileItems(rows, opts, &st)
}

func reconcileItems(rows []Row, opts Options, st *SectionStats) ItemSet {
	out := make(ItemSet)
	for _, row := range rows {
		st.Rows++
		if opts.FilterDisabled && !enabled(row) {
			st.Disabled++
			continue
		}
		text, ok := delayText(row["delay"])
		if !ok {
			st.Invalid++
			continue
		}
		secs := delay.Parse(text)
		if secs == 0 {
			st.ZeroDelay++
			continue
		}
		hostID, ok := int64Value(row["hostid"])
		if !ok {
			st.Invalid++
			continue
		}
		key, ok := stringValue(row["key_"])
		if !ok {
			st.Invalid++
			continue
		}
		it := Item{
			HostID: hostID,
			Key:    CompressKey(key, opts.Compress),
			Delay:  secs,
		}
		if opts.ItemIDs {
			if it.ItemID, ok = int64Value(row["itemid"]); !ok {
				st.Invalid++
				continue
			}
		}
		out.Add(it)
	}
	st.Kept = out.Len()
	return out
}
