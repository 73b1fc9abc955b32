// stock-rebuild recomputes committed quantities on stock summaries from the
// sales order lines that still hold allocation. Committed drifts only when a
// past bug double-counted an allocation; this tool repairs the counters from
// first principles.
//
// Usage:
//   DB_USER=... DB_HOST=... go run ./cmd/stock-rebuild [-business <id>] [-dry-run]
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/warehub_backend/config"
	"bitbucket.org/mmdatafocus/warehub_backend/models"
)

type committedRow struct {
	BusinessId  string
	WarehouseId int
	ProductId   int
	Committed   decimal.Decimal
}

func main() {
	businessFlag := flag.String("business", "", "restrict the rebuild to one business id")
	dryRun := flag.Bool("dry-run", false, "report drift without writing")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	// Committed is what active orders still hold: allocation that has not
	// shipped yet. Completed and cancelled orders hold nothing.
	query := db.Table("sales_order_lines AS l").
		Select("o.business_id, o.warehouse_id, l.product_id, SUM(l.quantity_allocated) AS committed").
		Joins("JOIN sales_orders o ON o.id = l.sales_order_id").
		Where("o.current_status NOT IN ?", []models.SalesOrderStatus{
			models.SalesOrderStatusCancelled,
			models.SalesOrderStatusCompleted,
		}).
		Group("o.business_id, o.warehouse_id, l.product_id")
	if *businessFlag != "" {
		query = query.Where("o.business_id = ?", *businessFlag)
	}

	var rows []committedRow
	if err := query.Scan(&rows).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to aggregate allocations: %v\n", err)
		os.Exit(1)
	}

	expected := make(map[string]decimal.Decimal, len(rows))
	for _, r := range rows {
		expected[fmt.Sprintf("%s/%d/%d", r.BusinessId, r.WarehouseId, r.ProductId)] = r.Committed
	}

	summaryQuery := db.Model(&models.StockSummary{})
	if *businessFlag != "" {
		summaryQuery = summaryQuery.Where("business_id = ?", *businessFlag)
	}
	var summaries []models.StockSummary
	if err := summaryQuery.Find(&summaries).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to load stock summaries: %v\n", err)
		os.Exit(1)
	}

	drift := 0
	for _, s := range summaries {
		key := fmt.Sprintf("%s/%d/%d", s.BusinessId, s.WarehouseId, s.ProductId)
		want := expected[key]
		if s.CommittedQty.Equal(want) {
			continue
		}
		drift++
		fmt.Printf("drift business=%s warehouse=%d product=%d committed=%s expected=%s\n",
			s.BusinessId, s.WarehouseId, s.ProductId, s.CommittedQty.String(), want.String())
		if *dryRun {
			continue
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			return tx.Model(&models.StockSummary{}).
				Where("id = ?", s.ID).
				Update("committed_qty", want).Error
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to repair summary id=%d: %v\n", s.ID, err)
			os.Exit(1)
		}
	}

	if drift == 0 {
		fmt.Println("all committed quantities match")
		return
	}
	if *dryRun {
		fmt.Printf("%d summaries drifted (dry run, nothing written)\n", drift)
	} else {
		fmt.Printf("%d summaries repaired\n", drift)
	}
}
