package models

type Identifier interface {
	GetId() int
}

func (u User) GetId() int {
	return u.ID
}

func (w Warehouse) GetId() int {
	return w.ID
}

func (p Product) GetId() int {
	return p.ID
}

func (c Customer) GetId() int {
	return c.ID
}

func (s Supplier) GetId() int {
	return s.ID
}

func (so SalesOrder) GetId() int {
	return so.ID
}

func (l SalesOrderLine) GetId() int {
	return l.ID
}

func (f Fulfillment) GetId() int {
	return f.ID
}

func (l FulfillmentLine) GetId() int {
	return l.ID
}

func (po PurchaseOrder) GetId() int {
	return po.ID
}

func (l PurchaseOrderLine) GetId() int {
	return l.ID
}

func (s StockSummary) GetId() int {
	return s.ID
}

// lines loaded by their parent document id
type RelatedData interface {
	GetReferenceId() int
}

func (l SalesOrderLine) GetReferenceId() int {
	return l.SalesOrderId
}

func (l FulfillmentLine) GetReferenceId() int {
	return l.FulfillmentId
}

func (l PurchaseOrderLine) GetReferenceId() int {
	return l.PurchaseOrderId
}
