package aggregates

import (
	"testing"

	domainagg "github.com/yungbote/coursemarket-backend/internal/domain/aggregates"
)

func TestEveryAggregateOwnsItsTransaction(t *testing.T) {
	base := BaseDeps{}
	aggs := []domainagg.Aggregate{
		NewCatalogAggregate(CatalogAggregateDeps{Base: base}),
		NewEnrollmentAggregate(EnrollmentAggregateDeps{Base: base}),
		NewProgressAggregate(ProgressAggregateDeps{Base: base}),
		NewRatingAggregate(RatingAggregateDeps{Base: base}),
	}
	for _, a := range aggs {
		c := a.Contract()
		if !c.RequiresAggregateOwnedTx() {
			t.Fatalf("%s: expected aggregate-owned transactions", c.Name)
		}
		if err := c.Validate(); err != nil {
			t.Fatalf("%s: %v", c.Name, err)
		}
	}
	for _, a := range aggs[1:] {
		if got := a.Contract().ReadPolicy; got != domainagg.ReadPolicyInvariantScoped {
			t.Fatalf("%s: ledger aggregates read only for invariants, got %q", a.Contract().Name, got)
		}
	}
	if err := domainagg.CheckContracts(aggs...); err != nil {
		t.Fatalf("CheckContracts: %v", err)
	}
}

type contractOnly domainagg.Contract

func (c contractOnly) Contract() domainagg.Contract { return domainagg.Contract(c) }

func TestCheckContractsRejectsBadContracts(t *testing.T) {
	ok := contractOnly(domainagg.ProgressAggregateContract)
	cases := map[string][]domainagg.Aggregate{
		"caller owned tx": {contractOnly{Name: "x", ReadPolicy: domainagg.ReadPolicyInvariantScoped}},
		"unnamed":         {contractOnly{WriteTxOwnership: domainagg.WriteTxOwnedByAggregate, ReadPolicy: domainagg.ReadPolicyInvariantScoped}},
		"unknown reads":   {contractOnly{Name: "x", WriteTxOwnership: domainagg.WriteTxOwnedByAggregate, ReadPolicy: "anything"}},
		"duplicate name":  {ok, ok},
		"nil aggregate":   {ok, nil},
	}
	for name, aggs := range cases {
		if err := domainagg.CheckContracts(aggs...); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
