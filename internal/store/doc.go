// Package store is the durable run ledger: every recorded evaluation, its
// gate trace, and its measurement record, in SQLite. The ledger is what the
// trace and replay commands read back; replay re-evaluates a stored run and
// compares trace fingerprints to verify determinism.
package store
