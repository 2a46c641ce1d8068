// Package reconcile turns the server's columnar configuration dump into typed,
// deduplicated host and item sets.
//
// A section of the dump looks like
//
//	{"fields": ["hostid", "host", "status"], "data": [[10084, "web-1", 0], ...]}
//
// Tabulate zips each row against the column names. ReconcileHosts and ReconcileItems
// filter and type those rows into sets; JoinHostItem and JoinItemHost project the sets
// onto each other by host id. Parsing is lenient throughout: malformed tables and rows
// are skipped, never reported as errors.
package reconcile
