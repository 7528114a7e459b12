// Package aggregates implements the trip write boundaries on top of the
// table repos. Failures leave this package as *domain/aggregates.Error values.
package aggregates
