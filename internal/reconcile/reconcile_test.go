package reconcile

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/danmuck/zbxctl/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dfRows() []Row {
	rows := make([]Row, 0, 5)
	for x := 0; x < 5; x++ {
		rows = append(rows, Row{
			"hostid": json.Number(fmt.Sprint(3010 + x%2)),
			"delay":  "30s",
			"key_":   fmt.Sprintf("df[%d]", x),
		})
	}
	return rows
}

func TestReconcileItemsKeyCompression(t *testing.T) {
	testlog.Start(t)
	opts := Options{Compress: []string{"["}}
	items := ReconcileItems(dfRows(), opts)
	require.Equal(t, 2, items.Len())
	assert.True(t, items.Contains(Item{HostID: 3010, Key: "df", Delay: 30}))
	assert.True(t, items.Contains(Item{HostID: 3011, Key: "df", Delay: 30}))

	items = ReconcileItems(dfRows(), Options{})
	assert.Equal(t, 5, items.Len())
}

func TestCompressKey(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		key    string
		tokens []string
		want   string
	}{
		{"df[0]_x", []string{"[", "_"}, "df"},
		{"net_if_in[eth0]", []string{"[", "_"}, "net"},
		{"net_if_in[eth0]", []string{"["}, "net_if_in"},
		{"system.uptime", []string{"[", "_"}, "system.uptime"},
		{"vfs.fs.size[/,free]", nil, "vfs.fs.size[/,free]"},
		{"a[b]", []string{""}, "a[b]"},
		{"[x]", []string{"["}, ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CompressKey(tc.key, tc.tokens), "key %q tokens %q", tc.key, tc.tokens)
	}
}

func TestReconcileItemsDelayFilter(t *testing.T) {
	testlog.Start(t)
	rows := []Row{
		{"hostid": json.Number("1"), "key_": "agent.ping", "delay": "0s"},
		{"hostid": json.Number("1"), "key_": "agent.ping", "delay": "0"},
		{"hostid": json.Number("1"), "key_": "agent.ping", "delay": "garbage"},
		{"hostid": json.Number("1"), "key_": "system.cpu.load", "delay": "30s"},
		{"hostid": json.Number("1"), "key_": "system.cpu.load", "delay": "30s"},
		{"hostid": json.Number("1"), "key_": "system.cpu.load", "delay": json.Number("30")},
		{"hostid": json.Number("1"), "key_": "vm.memory.size", "delay": "1m"},
	}
	items := ReconcileItems(rows, Options{})
	assert.Equal(t, []Item{
		{HostID: 1, Key: "system.cpu.load", Delay: 30},
		{HostID: 1, Key: "vm.memory.size", Delay: 60},
	}, items.Sorted())
}

func TestReconcileItemsStatusFilterAndItemIDs(t *testing.T) {
	testlog.Start(t)
	rows := []Row{
		{"itemid": json.Number("100"), "hostid": json.Number("1"), "key_": "a", "delay": "30s", "status": json.Number("0")},
		{"itemid": json.Number("101"), "hostid": json.Number("1"), "key_": "a", "delay": "30s", "status": json.Number("0")},
		{"itemid": json.Number("102"), "hostid": json.Number("1"), "key_": "b", "delay": "30s", "status": json.Number("1")},
		{"itemid": json.Number("103"), "hostid": json.Number("1"), "key_": "c", "delay": "30s", "status": "enabled"},
		{"itemid": json.Number("104"), "hostid": json.Number("1"), "key_": "d", "delay": "30s"},
	}

	filtered := ReconcileItems(rows, Options{FilterDisabled: true, ItemIDs: true})
	assert.Equal(t, []Item{
		{ItemID: 100, HostID: 1, Key: "a", Delay: 30},
		{ItemID: 101, HostID: 1, Key: "a", Delay: 30},
		{ItemID: 104, HostID: 1, Key: "d", Delay: 30},
	}, filtered.Sorted())

	unfiltered := ReconcileItems(rows, Options{})
	assert.Equal(t, 4, unfiltered.Len())
}

func TestReconcileItemsSkipsInvalidRows(t *testing.T) {
	testlog.Start(t)
	rows := []Row{
		{"hostid": "x", "key_": "a", "delay": "30s"},
		{"hostid": json.Number("1"), "delay": "30s"},
		{"hostid": json.Number("1"), "key_": "a"},
		{"hostid": json.Number("1"), "key_": "a", "delay": "30s"},
	}
	var st SectionStats
	items := reconcileItems(rows, Options{ItemIDs: false}, &st)
	assert.Equal(t, 1, items.Len())
	assert.Equal(t, SectionStats{Rows: 4, Kept: 1, Invalid: 3}, st)
}

func TestReconcileHostsVariants(t *testing.T) {
	testlog.Start(t)
	rows := []Row{
		{"hostid": json.Number("10084"), "host": "web-1", "name": "Web 1", "status": json.Number("0")},
		{"hostid": json.Number("10084"), "host": "web-1", "name": "Web 1", "status": json.Number("0")},
		{"hostid": json.Number("10085"), "host": "db-1", "name": "", "status": json.Number("0")},
		{"hostid": json.Number("10086"), "host": "old-1", "name": "Old", "status": json.Number("1")},
		{"hostid": "10087", "host": "str-id"},
		{"host": "no-id"},
	}

	hosts := ReconcileHosts(rows, DefaultOptions())
	assert.Equal(t, []Host{
		{HostID: 10084, Host: "web-1", Name: "Web 1"},
		{HostID: 10085, Host: "db-1", Name: "db-1"},
		{HostID: 10087, Host: "str-id", Name: "str-id"},
	}, hosts.Sorted())

	legacy := ReconcileHosts(rows, Options{})
	assert.Equal(t, []Host{
		{HostID: 10084, Host: "web-1"},
		{HostID: 10085, Host: "db-1"},
		{HostID: 10086, Host: "old-1"},
		{HostID: 10087, Host: "str-id"},
	}, legacy.Sorted())
}

func TestReconcileSnapshot(t *testing.T) {
	testlog.Start(t)
	payload, err := DecodePayload([]byte(`{
		"hosts": {
			"fields": ["hostid", "host", "name", "status"],
			"data": [[10084, "web-1", "Web 1", 0], [10085, "db-1", "DB 1", 0], [10090, "off", "Off", 1]]
		},
		"items": {
			"fields": ["itemid", "hostid", "key_", "delay", "status"],
			"data": [
				[1, 10084, "net.if.in[eth0]", "1m", 0],
				[2, 10084, "net.if.in[eth1]", "1m", 0],
				[3, 10085, "system.cpu.load[all,avg1]", "30s", 0],
				[4, 10085, "trap.only", "0", 0],
				[5, 10099, "orphan", "30s", 0]
			]
		}
	}`))
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.Compress = []string{"["}
	snap := Reconcile(payload, opts)

	assert.Equal(t, 2, snap.Hosts.Len())
	assert.Equal(t, []Item{
		{HostID: 10084, Key: "net.if.in", Delay: 60},
		{HostID: 10085, Key: "system.cpu.load", Delay: 30},
		{HostID: 10099, Key: "orphan", Delay: 30},
	}, snap.Items.Sorted())
	assert.Equal(t, SectionStats{Rows: 3, Kept: 2, Disabled: 1}, snap.Stats.Hosts)
	assert.Equal(t, SectionStats{Rows: 5, Kept: 3, ZeroDelay: 1}, snap.Stats.Items)
	assert.Equal(t, 1, snap.Stats.Items.Duplicates())

	groups := snap.HostItems()
	require.Len(t, groups, 2)
	assert.Equal(t, "web-1", groups[0].Host.Host)
	assert.Len(t, groups[0].Items, 1)

	pairs := snap.ItemHosts()
	require.Len(t, pairs, 2)

	view := snap.View()
	assert.Len(t, view.Hosts, 2)
	assert.Len(t, view.Items, 3)
}

func TestReconcileEmptyPayload(t *testing.T) {
	testlog.Start(t)
	snap := Reconcile(map[string]any{}, DefaultOptions())
	assert.Equal(t, 0, snap.Hosts.Len())
	assert.Equal(t, 0, snap.Items.Len())
	assert.Empty(t, snap.HostItems())
	assert.Empty(t, snap.ItemHosts())
}
