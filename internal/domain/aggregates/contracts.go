package aggregates

import "fmt"

// WriteTxOwnership says who opens the transaction around an aggregate write.
type WriteTxOwnership string

const (
	// WriteTxOwnedByAggregate: each write method runs in exactly one transaction it
	// opens itself; callers never pass one in.
	WriteTxOwnedByAggregate WriteTxOwnership = "aggregate_owned"
)

// ReadPolicy says which reads an aggregate may perform.
type ReadPolicy string

const (
	// ReadPolicyInvariantScoped: only the reads a write needs to check its invariants.
	// Ledger aggregates use it; dashboards and listings go through table repos.
	ReadPolicyInvariantScoped ReadPolicy = "invariant_scoped_reads"
	// ReadPolicyTableRepoQueries: the aggregate may also serve structure reads
	// (ordered sections and lessons) straight from its repos.
	ReadPolicyTableRepoQueries ReadPolicy = "table_repo_queries"
)

// Contract describes the consistency policy an aggregate promises.
type Contract struct {
	Name             string
	WriteTxOwnership WriteTxOwnership
	ReadPolicy       ReadPolicy
	Notes            string
}

type Aggregate interface {
	Contract() Contract
}

func (c Contract) RequiresAggregateOwnedTx() bool {
	return c.WriteTxOwnership == WriteTxOwnedByAggregate
}

// Validate rejects contracts that are unnamed, leave transactions to callers or use
// an unknown read policy.
func (c Contract) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("aggregate contract has no name")
	}
	if !c.RequiresAggregateOwnedTx() {
		return fmt.Errorf("%s: writes must own their transaction, got %q", c.Name, c.WriteTxOwnership)
	}
	switch c.ReadPolicy {
	case ReadPolicyInvariantScoped, ReadPolicyTableRepoQueries:
		return nil
	default:
		return fmt.Errorf("%s: unknown read policy %q", c.Name, c.ReadPolicy)
	}
}

// CheckContracts validates every aggregate and rejects two aggregates claiming the
// same name.
func CheckContracts(aggs ...Aggregate) error {
	seen := make(map[string]struct{}, len(aggs))
	for _, a := range aggs {
		if a == nil {
			return fmt.Errorf("nil aggregate")
		}
		c := a.Contract()
		if err := c.Validate(); err != nil {
			return err
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("duplicate aggregate contract %s", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}
