package models

import (
	"testing"
)

func TestStockPositionSeverity(t *testing.T) {
	cases := []struct {
		name      string
		current   string
		committed string
		reorder   string
		want      StockSeverity
	}{
		{"nothing available", "5", "5", "2", StockSeverityDanger},
		{"oversold", "3", "5", "2", StockSeverityDanger},
		{"at reorder level", "7", "5", "2", StockSeverityWarn},
		{"healthy", "10", "5", "2", StockSeveritySuccess},
	}
	for _, tc := range cases {
		p := StockPosition{
			CurrentQty:   qty(tc.current),
			CommittedQty: qty(tc.committed),
			ReorderLevel: qty(tc.reorder),
		}
		p.computeSeverity()
		if p.Severity != tc.want {
			t.Errorf("%s: severity = %s, want %s", tc.name, p.Severity, tc.want)
		}
	}
}

func TestStockPositionNetRequired(t *testing.T) {
	// 12 outstanding demand, 3 available, 4 on order: 5 still uncovered
	p := StockPosition{CurrentQty: qty("5"), CommittedQty: qty("2"), OrderQty: qty("4")}
	p.computeSeverity()
	p.computeNetRequired(qty("12"))
	if !p.NetRequired.Equal(qty("5")) {
		t.Fatalf("net required = %s, want 5", p.NetRequired)
	}

	// fully covered demand floors at zero, never negative
	p = StockPosition{CurrentQty: qty("20"), CommittedQty: qty("2"), OrderQty: qty("4")}
	p.computeSeverity()
	p.computeNetRequired(qty("6"))
	if !p.NetRequired.IsZero() {
		t.Fatalf("net required = %s, want 0", p.NetRequired)
	}

	// oversold positions count the shortfall as demand to cover
	p = StockPosition{CurrentQty: qty("1"), CommittedQty: qty("3"), OrderQty: qty("0")}
	p.computeSeverity()
	p.computeNetRequired(qty("4"))
	if !p.NetRequired.Equal(qty("6")) {
		t.Fatalf("net required with negative available = %s, want 6", p.NetRequired)
	}
}
