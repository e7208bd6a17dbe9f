/*
Package metrics exposes counters, a gauge, and histograms describing a
Database's transaction and durability activity, plus a small component
health registry.

This package stops at registering prometheus collectors and a Timer helper;
it never starts an HTTP server. Hosts that want to scrape these metrics
mount Handler() on their own mux.

	mux.Handle("/metrics", metrics.Handler())

Counters and histograms are process-global (prometheus convention); a
process embedding more than one Database will see combined totals unless it
wraps these with its own labels.
*/
package metrics
