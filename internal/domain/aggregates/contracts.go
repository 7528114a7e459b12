package aggregates

import "slices"

// Isolation names the transaction isolation an aggregate runs its writes at.
type Isolation string

const (
	IsolationReadCommitted Isolation = "read_committed"
	IsolationSerializable  Isolation = "serializable"
)

// Contract describes what an aggregate owns. Reads outside the listed tables
// belong to the table repos, not to the aggregate.
type Contract struct {
	Name      string
	Isolation Isolation
	Writes    []string
	Notes     string
}

// Aggregate is implemented by every write boundary.
type Aggregate interface {
	Contract() Contract
}

func (c Contract) OwnsTable(table string) bool {
	return slices.Contains(c.Writes, table)
}
