package shopifysync

import "encoding/json"

type SyncModules struct {
	Products  bool `json:"products"`
	Customers bool `json:"customers"`
	Orders    bool `json:"orders"`
}

func DefaultModules() SyncModules {
	return SyncModules{
		Products:  true,
		Customers: true,
		Orders:    true,
	}
}

func NormalizeModules(mod SyncModules) SyncModules {
	// Orders cannot import without products and customers.
	if mod.Orders {
		mod.Products = true
		mod.Customers = true
	}
	return mod
}

func DecodeModules(raw []byte) SyncModules {
	if len(raw) == 0 {
		return DefaultModules()
	}
	var mod SyncModules
	if err := json.Unmarshal(raw, &mod); err != nil {
		return DefaultModules()
	}
	return NormalizeModules(mod)
}

func EncodeModules(mod SyncModules) []byte {
	b, _ := json.Marshal(NormalizeModules(mod))
	return b
}

type CursorEntry struct {
	UpdatedSince string `json:"updated_since"`
	PageInfo     string `json:"page_info"`
}

type CursorState struct {
	Products  CursorEntry `json:"products"`
	Customers CursorEntry `json:"customers"`
	Orders    CursorEntry `json:"orders"`
}

func DecodeCursorState(raw []byte) CursorState {
	if len(raw) == 0 {
		return CursorState{}
	}
	var state CursorState
	if err := json.Unmarshal(raw, &state); err != nil {
		return CursorState{}
	}
	return state
}

func EncodeCursorState(state CursorState) []byte {
	b, _ := json.Marshal(state)
	return b
}

type ConnectRequest struct {
	ShopDomain  string `json:"shopDomain"`
	ShopName    string `json:"shopName"`
	AccessToken string `json:"accessToken"`
}

type UpdateSettingsRequest struct {
	Modules SyncModules `json:"modules"`
}

type TriggerSyncRequest struct {
	Modules SyncModules `json:"modules"`
}

type StatusResponse struct {
	Connection        ConnectionResponse `json:"connection"`
	LastSyncAt        *string            `json:"lastSyncAt"`
	LastSuccessSyncAt *string            `json:"lastSuccessSyncAt"`
	Modules           SyncModules        `json:"modules"`
}

type ConnectionResponse struct {
	Status     string `json:"status"`
	ShopDomain string `json:"shopDomain"`
	ShopName   string `json:"shopName"`
}

type SyncHistoryResponse struct {
	Items []SyncRunResponse `json:"items"`
}

type SyncRunResponse struct {
	ID            uint    `json:"id"`
	Status        string  `json:"status"`
	StartedAt     *string `json:"startedAt"`
	FinishedAt    *string `json:"finishedAt"`
	DurationMs    int64   `json:"durationMs"`
	RecordsSynced int     `json:"recordsSynced"`
	ErrorCount    int     `json:"errorCount"`
	TriggeredBy   string  `json:"triggeredBy"`
}

type SyncRunDetailResponse struct {
	SyncRunResponse
	Errors []SyncErrorResponse `json:"errors"`
}

type SyncErrorResponse struct {
	ID         uint   `json:"id"`
	EntityType string `json:"entityType"`
	ExternalId string `json:"externalId"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
}

type PubSubPushEnvelope struct {
	Message struct {
		Data []byte `json:"data"`
		ID   string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

type SyncPubSubPayload struct {
	RunId        uint   `json:"run_id"`
	BusinessId   string `json:"business_id"`
	ConnectionId uint   `json:"connection_id"`
}

// StockUpdatePayload is what the stock layer publishes on onStockUpdate after
// every stock movement of a shopify-mapped product.
type StockUpdatePayload struct {
	Provider         string `json:"provider"`
	ConnectionId     uint   `json:"connection_id"`
	BusinessId       string `json:"business_id"`
	ProductId        int    `json:"product_id"`
	ShopifyProductId string `json:"shopify_product_id"`
	ShopifyVariantId string `json:"shopify_variant_id"`
	Available        string `json:"available"`
}
