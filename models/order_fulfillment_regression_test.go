package models_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bitbucket.org/mmdatafocus/warehub_backend/config"
	"bitbucket.org/mmdatafocus/warehub_backend/models"
	"bitbucket.org/mmdatafocus/warehub_backend/utils"
	"bitbucket.org/mmdatafocus/warehub_backend/workflow"
)

// End to end allocation lifecycle against real MySQL and Redis: allocate and
// confirm, replay the same request key, fulfill, ship, and verify every stock
// counter and the derived order status along the way.
func TestOrderAllocationFulfillmentLifecycle(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := integrationContext(t)
	businessId, _ := utils.GetBusinessIdFromContext(ctx)

	biz, err := models.GetBusinessById(ctx, businessId)
	if err != nil {
		t.Fatalf("GetBusinessById: %v", err)
	}
	warehouseId := biz.PrimaryWarehouseId
	if warehouseId == 0 {
		t.Fatalf("business has no primary warehouse")
	}

	product, err := models.CreateProduct(ctx, &models.NewProduct{
		Name: "Stapler",
		Sku:  "STAPLER-001",
		OpeningStocks: []models.NewOpeningStock{
			{WarehouseId: warehouseId, Qty: decimal.NewFromInt(10)},
		},
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Acme Retail"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	so, err := models.CreateSalesOrder(ctx, &models.NewSalesOrder{
		CustomerId:  customer.ID,
		WarehouseId: warehouseId,
		OrderDate:   time.Now(),
		Lines: []models.NewSalesOrderLine{
			{ProductId: product.ID, QuantityOrdered: decimal.NewFromInt(6)},
		},
	})
	if err != nil {
		t.Fatalf("CreateSalesOrder: %v", err)
	}
	if so.CurrentStatus != models.SalesOrderStatusDraft {
		t.Fatalf("new order status = %s, want draft", so.CurrentStatus)
	}

	// 1) Allocate and confirm. Plenty of stock, the order must reserve fully.
	res := workflow.AllocateInventoryAndConfirmOrder(ctx, so.ID, "lifecycle-key-1")
	if !res.IsOk() {
		t.Fatalf("AllocateInventoryAndConfirmOrder: %+v", res.Error)
	}
	var allocated workflow.OrderAllocationPayload
	if err := json.Unmarshal(res.Data, &allocated); err != nil {
		t.Fatalf("decode allocation payload: %v", err)
	}
	if allocated.SalesOrder.CurrentStatus != models.SalesOrderStatusReserved {
		t.Fatalf("order status after allocation = %s, want reserved", allocated.SalesOrder.CurrentStatus)
	}
	if len(allocated.Lines) != 1 || !allocated.Lines[0].QuantityAllocated.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("unexpected allocation lines: %+v", allocated.Lines)
	}

	assertStock(t, businessId, warehouseId, product.ID, stockWant{
		committed: "6", shipped: "0", current: "10",
	})

	// 2) Replay the same request key. The stored envelope comes back and no
	// quantity moves twice.
	replay := workflow.AllocateInventoryAndConfirmOrder(ctx, so.ID, "lifecycle-key-1")
	if !replay.IsOk() {
		t.Fatalf("replay returned error: %+v", replay.Error)
	}
	var replayed workflow.OrderAllocationPayload
	if err := json.Unmarshal(replay.Data, &replayed); err != nil {
		t.Fatalf("decode replayed payload: %v", err)
	}
	if !replayed.Lines[0].QuantityAllocated.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("replayed allocation = %s, want 6", replayed.Lines[0].QuantityAllocated)
	}
	assertStock(t, businessId, warehouseId, product.ID, stockWant{
		committed: "6", shipped: "0", current: "10",
	})

	orderLine := fetchOrderLine(t, so.ID)
	if !orderLine.QuantityAllocated.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("line allocated after replay = %s, want 6", orderLine.QuantityAllocated)
	}

	// 3) Create a fulfillment for the full allocation.
	fres := workflow.CreateFulfillmentAndReallocate(ctx, &models.NewFulfillment{
		SalesOrderId: so.ID,
		Lines: []models.NewFulfillmentLine{
			{SalesOrderLineId: orderLine.ID, Quantity: decimal.NewFromInt(6)},
		},
	}, "lifecycle-key-2")
	if !fres.IsOk() {
		t.Fatalf("CreateFulfillmentAndReallocate: %+v", fres.Error)
	}
	var fulfillment workflow.FulfillmentPayload
	if err := json.Unmarshal(fres.Data, &fulfillment); err != nil {
		t.Fatalf("decode fulfillment payload: %v", err)
	}
	if fulfillment.Fulfillment.CurrentStatus != models.FulfillmentStatusPending {
		t.Fatalf("fulfillment status = %s, want pending", fulfillment.Fulfillment.CurrentStatus)
	}
	if fulfillment.SalesOrder.CurrentStatus != models.SalesOrderStatusPicking {
		t.Fatalf("order status with open fulfillment = %s, want picking", fulfillment.SalesOrder.CurrentStatus)
	}

	counters := fetchLineFulfillmentQtys(t, ctx, so.ID)
	if len(counters) != 1 {
		t.Fatalf("fulfillment qty rows = %d, want 1", len(counters))
	}
	if !counters[0].QtyInFulfillment.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("in-fulfillment qty = %s, want 6", counters[0].QtyInFulfillment)
	}
	if !counters[0].QtyShipped.IsZero() {
		t.Fatalf("shipped qty before ship = %s, want 0", counters[0].QtyShipped)
	}

	// 4) Ship. Allocation converts to fulfilled, committed drains, on-hand
	// drops, and the derived order status lands on shipped.
	shipped, err := models.ShipFulfillment(ctx, fulfillment.Fulfillment.ID)
	if err != nil {
		t.Fatalf("ShipFulfillment: %v", err)
	}
	if shipped.CurrentStatus != models.FulfillmentStatusShipped {
		t.Fatalf("fulfillment status after ship = %s", shipped.CurrentStatus)
	}

	assertStock(t, businessId, warehouseId, product.ID, stockWant{
		committed: "0", shipped: "6", current: "4",
	})

	orderLine = fetchOrderLine(t, so.ID)
	if !orderLine.QuantityFulfilled.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("line fulfilled = %s, want 6", orderLine.QuantityFulfilled)
	}
	if !orderLine.QuantityAllocated.IsZero() {
		t.Fatalf("line allocated after ship = %s, want 0", orderLine.QuantityAllocated)
	}

	final, err := models.GetSalesOrder(ctx, so.ID)
	if err != nil {
		t.Fatalf("GetSalesOrder: %v", err)
	}
	if final.CurrentStatus != models.SalesOrderStatusShipped {
		t.Fatalf("final order status = %s, want shipped", final.CurrentStatus)
	}

	counters = fetchLineFulfillmentQtys(t, ctx, so.ID)
	if !counters[0].QtyInFulfillment.IsZero() {
		t.Fatalf("in-fulfillment qty after ship = %s, want 0", counters[0].QtyInFulfillment)
	}
	if !counters[0].QtyShipped.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("shipped qty after ship = %s, want 6", counters[0].QtyShipped)
	}
}

func fetchLineFulfillmentQtys(t *testing.T, ctx context.Context, salesOrderId int) []models.LineFulfillmentQty {
	t.Helper()
	res := workflow.GetLineFulfillmentQty(ctx, salesOrderId)
	if !res.IsOk() {
		t.Fatalf("GetLineFulfillmentQty: %+v", res.Error)
	}
	var counters []models.LineFulfillmentQty
	if err := json.Unmarshal(res.Data, &counters); err != nil {
		t.Fatalf("decode fulfillment qty payload: %v", err)
	}
	return counters
}

func TestAllocateLineItemInsufficientStock(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := integrationContext(t)
	businessId, _ := utils.GetBusinessIdFromContext(ctx)

	biz, err := models.GetBusinessById(ctx, businessId)
	if err != nil {
		t.Fatalf("GetBusinessById: %v", err)
	}

	product, err := models.CreateProduct(ctx, &models.NewProduct{
		Name: "Tape Gun",
		Sku:  "TAPE-001",
		OpeningStocks: []models.NewOpeningStock{
			{WarehouseId: biz.PrimaryWarehouseId, Qty: decimal.NewFromInt(2)},
		},
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Budget Goods"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	so, err := models.CreateSalesOrder(ctx, &models.NewSalesOrder{
		CustomerId:  customer.ID,
		WarehouseId: biz.PrimaryWarehouseId,
		OrderDate:   time.Now(),
		Lines: []models.NewSalesOrderLine{
			{ProductId: product.ID, QuantityOrdered: decimal.NewFromInt(5)},
		},
	})
	if err != nil {
		t.Fatalf("CreateSalesOrder: %v", err)
	}
	if _, err := models.UpdateStatusSalesOrder(ctx, so.ID, string(models.SalesOrderStatusConfirmed)); err != nil {
		t.Fatalf("confirm order: %v", err)
	}

	line := fetchOrderLine(t, so.ID)

	res := workflow.AllocateLineItem(ctx, line.ID, decimal.NewFromInt(5), "line-key-1")
	if res.IsOk() {
		t.Fatalf("expected insufficient stock error, got ok")
	}
	if res.Error.Code != workflow.ErrCodeInsufficient {
		t.Fatalf("error code = %s, want %s", res.Error.Code, workflow.ErrCodeInsufficient)
	}

	// Nothing moved.
	assertStock(t, businessId, biz.PrimaryWarehouseId, product.ID, stockWant{
		committed: "0", shipped: "0", current: "2",
	})

	// A partial allocation within stock still works.
	partial := workflow.AllocateLineItem(ctx, line.ID, decimal.NewFromInt(2), "line-key-2")
	if !partial.IsOk() {
		t.Fatalf("partial allocation: %+v", partial.Error)
	}
	var payload workflow.LineAllocationPayload
	if err := json.Unmarshal(partial.Data, &payload); err != nil {
		t.Fatalf("decode line payload: %v", err)
	}
	if payload.OrderStatus != models.SalesOrderStatusAwaitingStock {
		t.Fatalf("order status after partial allocation = %s, want awaiting_stock", payload.OrderStatus)
	}
	assertStock(t, businessId, biz.PrimaryWarehouseId, product.ID, stockWant{
		committed: "2", shipped: "0", current: "2",
	})
}

func TestFulfillOrderPartShip(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := integrationContext(t)
	businessId, _ := utils.GetBusinessIdFromContext(ctx)

	biz, err := models.GetBusinessById(ctx, businessId)
	if err != nil {
		t.Fatalf("GetBusinessById: %v", err)
	}

	product, err := models.CreateProduct(ctx, &models.NewProduct{
		Name: "Label Printer",
		Sku:  "LABEL-001",
		OpeningStocks: []models.NewOpeningStock{
			{WarehouseId: biz.PrimaryWarehouseId, Qty: decimal.NewFromInt(6)},
		},
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Parcel Partners"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	so, err := models.CreateSalesOrder(ctx, &models.NewSalesOrder{
		CustomerId:  customer.ID,
		WarehouseId: biz.PrimaryWarehouseId,
		OrderDate:   time.Now(),
		Lines: []models.NewSalesOrderLine{
			{ProductId: product.ID, QuantityOrdered: decimal.NewFromInt(10)},
		},
	})
	if err != nil {
		t.Fatalf("CreateSalesOrder: %v", err)
	}

	// Only 6 of 10 can be reserved.
	res := workflow.AllocateInventoryAndConfirmOrder(ctx, so.ID, "partship-key-1")
	if !res.IsOk() {
		t.Fatalf("AllocateInventoryAndConfirmOrder: %+v", res.Error)
	}
	assertStock(t, businessId, biz.PrimaryWarehouseId, product.ID, stockWant{
		committed: "6", shipped: "0", current: "6",
	})

	// First part-ship: outstanding 4, allocation covers it.
	first := workflow.FulfillOrder(ctx, so.ID, "partship-key-2")
	if !first.IsOk() {
		t.Fatalf("FulfillOrder: %+v", first.Error)
	}
	var firstPayload workflow.FulfillmentPayload
	if err := json.Unmarshal(first.Data, &firstPayload); err != nil {
		t.Fatalf("decode fulfill payload: %v", err)
	}
	if firstPayload.NothingToShip {
		t.Fatalf("first fulfill reported nothing to ship")
	}
	counters := fetchLineFulfillmentQtys(t, ctx, so.ID)
	if !counters[0].QtyInFulfillment.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("held after first fulfill = %s, want 4", counters[0].QtyInFulfillment)
	}

	// Second part-ship: only the 2 unheld allocated units remain reachable.
	second := workflow.FulfillOrder(ctx, so.ID, "partship-key-3")
	if !second.IsOk() {
		t.Fatalf("second FulfillOrder: %+v", second.Error)
	}
	counters = fetchLineFulfillmentQtys(t, ctx, so.ID)
	if !counters[0].QtyInFulfillment.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("held after second fulfill = %s, want 6", counters[0].QtyInFulfillment)
	}

	// Third attempt: allocation exhausted, warehouse empty. Reported as ok
	// with nothing to ship, and no fulfillment is created.
	third := workflow.FulfillOrder(ctx, so.ID, "partship-key-4")
	if !third.IsOk() {
		t.Fatalf("third FulfillOrder: %+v", third.Error)
	}
	var thirdPayload workflow.FulfillmentPayload
	if err := json.Unmarshal(third.Data, &thirdPayload); err != nil {
		t.Fatalf("decode third payload: %v", err)
	}
	if !thirdPayload.NothingToShip {
		t.Fatalf("expected nothing to ship")
	}
	fulfillments, err := models.GetFulfillments(ctx, so.ID)
	if err != nil {
		t.Fatalf("GetFulfillments: %v", err)
	}
	if len(fulfillments) != 2 {
		t.Fatalf("fulfillment count = %d, want 2", len(fulfillments))
	}
	assertStock(t, businessId, biz.PrimaryWarehouseId, product.ID, stockWant{
		committed: "6", shipped: "0", current: "6",
	})
}

// integrationContext boots the docker dependencies, migrates a fresh schema,
// creates a business and returns a context carrying its identity.
func integrationContext(t *testing.T) context.Context {
	t.Helper()
	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME_2", "warehub_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	// Model hooks write history rows and need a user identity.
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")
	ctx = utils.SetUsernameInContext(ctx, "test@local")

	biz, err := models.CreateBusiness(ctx, &models.NewBusiness{
		Name:  fmt.Sprintf("Test Biz %d", time.Now().UnixNano()),
		Email: fmt.Sprintf("owner%d@test.local", time.Now().UnixNano()),
	})
	if err != nil {
		t.Fatalf("CreateBusiness: %v", err)
	}
	return utils.SetBusinessIdInContext(ctx, biz.ID.String())
}

type stockWant struct {
	committed string
	shipped   string
	current   string
}

func assertStock(t *testing.T, businessId string, warehouseId, productId int, want stockWant) {
	t.Helper()
	db := config.GetDB()
	var summary models.StockSummary
	err := db.Where("business_id = ? AND warehouse_id = ? AND product_id = ?",
		businessId, warehouseId, productId).First(&summary).Error
	if err != nil {
		t.Fatalf("fetch stock summary: %v", err)
	}
	if !summary.CommittedQty.Equal(decimal.RequireFromString(want.committed)) {
		t.Errorf("committed = %s, want %s", summary.CommittedQty, want.committed)
	}
	if !summary.ShippedQty.Equal(decimal.RequireFromString(want.shipped)) {
		t.Errorf("shipped = %s, want %s", summary.ShippedQty, want.shipped)
	}
	if !summary.CurrentQty.Equal(decimal.RequireFromString(want.current)) {
		t.Errorf("current = %s, want %s", summary.CurrentQty, want.current)
	}
}

func fetchOrderLine(t *testing.T, salesOrderId int) *models.SalesOrderLine {
	t.Helper()
	var line models.SalesOrderLine
	if err := config.GetDB().Where("sales_order_id = ?", salesOrderId).First(&line).Error; err != nil {
		t.Fatalf("fetch sales order line: %v", err)
	}
	return &line
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("warehub-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("warehub-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=warehub_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
