package models

func (c Customer) GetBusinessId() string {
	return c.BusinessId
}

func (f Fulfillment) GetBusinessId() string {
	return f.BusinessId
}

func (h History) GetBusinessId() string {
	return h.BusinessId
}

func (p Product) GetBusinessId() string {
	return p.BusinessId
}

func (p PurchaseOrder) GetBusinessId() string {
	return p.BusinessId
}

func (s SalesOrder) GetBusinessId() string {
	return s.BusinessId
}

func (s StockSummary) GetBusinessId() string {
	return s.BusinessId
}

func (s Supplier) GetBusinessId() string {
	return s.BusinessId
}

func (u User) GetBusinessId() string {
	return u.BusinessId
}

func (w Warehouse) GetBusinessId() string {
	return w.BusinessId
}
