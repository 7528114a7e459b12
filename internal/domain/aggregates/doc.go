// Package aggregates declares the write boundaries of the trip domain:
// session lifecycle, seal scans and coin transfers. Each contract is
// implemented in internal/data/aggregates, where every write method runs in
// exactly one database transaction.
package aggregates
