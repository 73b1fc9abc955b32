package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type SalesOrderStatus string

const (
	SalesOrderStatusDraft            SalesOrderStatus = "draft"
	SalesOrderStatusConfirmed        SalesOrderStatus = "confirmed"
	SalesOrderStatusRequiresItems    SalesOrderStatus = "requires_items"
	SalesOrderStatusAwaitingStock    SalesOrderStatus = "awaiting_stock"
	SalesOrderStatusReserved         SalesOrderStatus = "reserved"
	SalesOrderStatusPicking          SalesOrderStatus = "picking"
	SalesOrderStatusPacked           SalesOrderStatus = "packed"
	SalesOrderStatusPartiallyShipped SalesOrderStatus = "partially_shipped"
	SalesOrderStatusShipped          SalesOrderStatus = "shipped"
	SalesOrderStatusCompleted        SalesOrderStatus = "completed"
	SalesOrderStatusCancelled        SalesOrderStatus = "cancelled"
)

func (s SalesOrderStatus) IsTerminal() bool {
	return s == SalesOrderStatusCompleted || s == SalesOrderStatusCancelled
}

// statuses before any fulfillment has been created
func (s SalesOrderStatus) IsPreFulfillment() bool {
	switch s {
	case SalesOrderStatusDraft, SalesOrderStatusConfirmed, SalesOrderStatusRequiresItems,
		SalesOrderStatusAwaitingStock, SalesOrderStatusReserved, SalesOrderStatusPicking,
		SalesOrderStatusPacked:
		return true
	}
	return false
}

func ParseSalesOrderStatus(s string) (SalesOrderStatus, error) {
	statuses := map[string]SalesOrderStatus{
		"draft":             SalesOrderStatusDraft,
		"confirmed":         SalesOrderStatusConfirmed,
		"requires_items":    SalesOrderStatusRequiresItems,
		"awaiting_stock":    SalesOrderStatusAwaitingStock,
		"reserved":          SalesOrderStatusReserved,
		"picking":           SalesOrderStatusPicking,
		"packed":            SalesOrderStatusPacked,
		"partially_shipped": SalesOrderStatusPartiallyShipped,
		"shipped":           SalesOrderStatusShipped,
		"completed":         SalesOrderStatusCompleted,
		"cancelled":         SalesOrderStatusCancelled,
	}
	status, ok := statuses[s]
	if !ok {
		return "", errors.New("invalid sales order status")
	}
	return status, nil
}

type FulfillmentStatus string

const (
	FulfillmentStatusPending   FulfillmentStatus = "pending"
	FulfillmentStatusPicking   FulfillmentStatus = "picking"
	FulfillmentStatusPacked    FulfillmentStatus = "packed"
	FulfillmentStatusShipped   FulfillmentStatus = "shipped"
	FulfillmentStatusCancelled FulfillmentStatus = "cancelled"
)

// a fulfillment still holds quantity until it is shipped or cancelled
func (s FulfillmentStatus) IsOpen() bool {
	return s == FulfillmentStatusPending || s == FulfillmentStatusPicking || s == FulfillmentStatusPacked
}

type PurchaseOrderStatus string

const (
	PurchaseOrderStatusDraft             PurchaseOrderStatus = "draft"
	PurchaseOrderStatusIssued            PurchaseOrderStatus = "issued"
	PurchaseOrderStatusPartiallyReceived PurchaseOrderStatus = "partially_received"
	PurchaseOrderStatusReceived          PurchaseOrderStatus = "received"
	PurchaseOrderStatusClosed            PurchaseOrderStatus = "closed"
	PurchaseOrderStatusCancelled         PurchaseOrderStatus = "cancelled"
)

// open purchase orders count toward incoming supply
func (s PurchaseOrderStatus) IsOpen() bool {
	return s == PurchaseOrderStatusIssued || s == PurchaseOrderStatusPartiallyReceived
}

type OrderChannel string

const (
	OrderChannelManual  OrderChannel = "manual"
	OrderChannelShopify OrderChannel = "shopify"
)

type StockSeverity string

const (
	StockSeverityDanger  StockSeverity = "danger"
	StockSeverityWarn    StockSeverity = "warn"
	StockSeveritySuccess StockSeverity = "success"
)

type RowChangeAction string

const (
	RowChangeActionInsert RowChangeAction = "INSERT"
	RowChangeActionUpdate RowChangeAction = "UPDATE"
	RowChangeActionDelete RowChangeAction = "DELETE"
)

// Outbox publish statuses for RowChangeRecord.PublishStatus.
// Keep these as strings (DB values) for backwards compatibility.
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

type MyDateString time.Time

func (t MyDateString) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).Format("2006-01-02T15:04:05"))
}

// Parse the string into time.Time object
func (t *MyDateString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.New("MyDateString must be string")
	}

	localTime, err := time.Parse("2006-01-02T15:04:05", str)
	if err != nil {
		return errors.New("error parsing datetime")
	}
	*t = MyDateString(localTime)

	return nil
}

func (t *MyDateString) StartOfDayUTCTime(timezone string) error {
	// do nothing if the pointer is nil
	if t == nil {
		return nil
	}

	localTime := time.Time(*t)

	if timezone == "" {
		timezone = "Asia/Yangon"
	}

	location, err := time.LoadLocation(timezone)
	if err != nil {
		fmt.Println("Error loading location:", err)
		return err
	}

	localTimeInZone := time.Date(
		localTime.Year(), localTime.Month(), localTime.Day(),
		0, 0, 0, 0,
		location,
	)

	utcTime := localTimeInZone.In(time.UTC)
	*t = MyDateString(utcTime)

	return nil
}

func (t *MyDateString) EndOfDayUTCTime(timezone string) error {
	// do nothing if the pointer is nil
	if t == nil {
		return nil
	}

	localTime := time.Time(*t)

	if timezone == "" {
		timezone = "Asia/Yangon"
	}

	location, err := time.LoadLocation(timezone)
	if err != nil {
		fmt.Println("Error loading location:", err)
		return err
	}

	localTimeInZone := time.Date(
		localTime.Year(), localTime.Month(), localTime.Day(),
		23, 59, 59, 999, // Max nanoseconds
		location,
	)

	utcTime := localTimeInZone.In(time.UTC)
	*t = MyDateString(utcTime)

	return nil
}

// Value implements the driver.Valuer interface
func (t MyDateString) Value() (driver.Value, error) {
	return time.Time(t), nil
}

// Scan implements the sql.Scanner interface
func (t *MyDateString) Scan(value interface{}) error {
	if value == nil {
		*t = MyDateString(time.Time{})
		return nil
	}
	switch v := value.(type) {
	case time.Time:
		*t = MyDateString(v)
	default:
		return fmt.Errorf("cannot convert %T to MyDateString", value)
	}
	return nil
}

func (t *MyDateString) SetDefaultNowIfNil() *MyDateString {
	if t == nil {
		now := MyDateString(time.Now())
		return &now
	}
	return t
}
