package reconcile

import "slices"

// HostItem groups every item of one host.
type HostItem struct {
	Host  Host   `json:"host"`
	Items []Item `json:"items"`
}

// ItemHost pairs one item with its owning host.
type ItemHost struct {
	Item Item `json:"item"`
	Host Host `json:"host"`
}

func itemsByHost(items ItemSet) map[int64][]Item {
	out := make(map[int64][]Item)
	for it := range items {
		out[it.HostID] = append(out[it.HostID], it)
	}
	for id := range out {
		slices.SortFunc(out[id], compareItems)
	}
	return out
}

// uniqueHosts keeps one host per id, the first in sorted order, so a host id seen
// with two display names still joins once.
func uniqueHosts(hosts HostSet) []Host {
	sorted := hosts.Sorted()
	return slices.CompactFunc(sorted, func(a, b Host) bool {
		return a.HostID == b.HostID
	})
}

func hostsByID(hosts HostSet) map[int64]Host {
	unique := uniqueHosts(hosts)
	out := make(map[int64]Host, len(unique))
	for _, h := range unique {
		out[h.HostID] = h
	}
	return out
}

// JoinHostItem returns one group per host id that owns at least one item. Items whose
// host id is not in hosts are dropped.
func JoinHostItem(hosts HostSet, items ItemSet) []HostItem {
	byHost := itemsByHost(items)
	unique := uniqueHosts(hosts)
	out := make([]HostItem, 0, len(unique))
	for _, h := range unique {
		owned := byHost[h.HostID]
		if len(owned) == 0 {
			continue
		}
		out = append(out, HostItem{Host: h, Items: slices.Clone(owned)})
	}
	return out
}

// JoinItemHost returns one row per item paired with its host. Items whose host id is
// not in hosts are dropped.
func JoinItemHost(hosts HostSet, items ItemSet) []ItemHost {
	byID := hostsByID(hosts)
	out := make([]ItemHost, 0, len(items))
	for _, it := range items.Sorted() {
		h, ok := byID[it.HostID]
		if !ok {
			continue
		}
		out = append(out, ItemHost{Item: it, Host: h})
	}
	return out
}
