package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/warehub_backend/config"
	"bitbucket.org/mmdatafocus/warehub_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// get AllModelMap, redis or db
func MapAllModel[ModelT any, AllT Identifier](ctx context.Context) (map[int]*AllT, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	key := utils.GetTypeName[AllT]() + "Map:" + businessId

	var allMap map[int]*AllT

	// retrieve from redis
	if exists, err := config.GetRedisObject(key, &allMap); err != nil {
		return nil, err
	} else if !exists {
		// if the map has not been cached yet
		// fetch resources and construct the map, cache the result

		allMap = make(map[int]*AllT)
		var allSlice []*AllT
		db := config.GetDB()
		var m ModelT
		dbCtx := db.WithContext(ctx).Model(&m)
		dbCtx.Where("business_id = ?", businessId)
		if err := dbCtx.Find(&allSlice).Error; err != nil {
			return nil, err
		}

		// fill the map
		for _, allModel := range allSlice {
			allMap[(*allModel).GetId()] = allModel
		}

		// store redis
		var duration time.Duration
		if err := config.SetRedisObject(key, &allMap, duration); err != nil {
			return nil, err
		}
	}

	return allMap, nil
}

// embedding struct will receive ID field, satisfy Identifier interface
type HasId struct {
	ID int `json:"id"`
}

func (h HasId) GetId() int {
	return h.ID
}

type HasUid struct {
	ID uuid.UUID `json:"id"`
}

func (h HasUid) GetId() uuid.UUID {
	return h.ID
}

type AllBusiness struct {
	HasUid
	Name     string `json:"name"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
	Address  string `json:"address"`
	Country  string `json:"country"`
	City     string `json:"city"`
}

type AllUser struct {
	HasId
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

type AllWarehouse struct {
	HasId
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

type AllProduct struct {
	HasId
	Name         string          `json:"name"`
	Sku          string          `json:"sku"`
	Barcode      string          `json:"barcode"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
	IsActive     bool            `json:"is_active"`
}

type AllCustomer struct {
	HasId
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	IsActive bool   `json:"is_active"`
}

type AllSupplier struct {
	HasId
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	IsActive bool   `json:"is_active"`
}

func ListAllBusiness(ctx context.Context) ([]*AllBusiness, error) {
	return ListAllAdmin[Business, AllBusiness](ctx)
}

func ListAllUser(ctx context.Context) ([]*AllUser, error) {
	return ListAllResource[User, AllUser](ctx)
}

func MapAllUser(ctx context.Context) (map[int]*AllUser, error) {
	return MapAllModel[User, AllUser](ctx)
}

func ListAllWarehouse(ctx context.Context) ([]*AllWarehouse, error) {
	return ListAllResource[Warehouse, AllWarehouse](ctx, "name")
}

func MapAllWarehouse(ctx context.Context) (map[int]*AllWarehouse, error) {
	return MapAllModel[Warehouse, AllWarehouse](ctx)
}

func ListAllProduct(ctx context.Context) ([]*AllProduct, error) {
	return ListAllResource[Product, AllProduct](ctx, "name")
}

func MapAllProduct(ctx context.Context) (map[int]*AllProduct, error) {
	return MapAllModel[Product, AllProduct](ctx)
}

func ListAllCustomer(ctx context.Context) ([]*AllCustomer, error) {
	return ListAllResource[Customer, AllCustomer](ctx, "name")
}

func MapAllCustomer(ctx context.Context) (map[int]*AllCustomer, error) {
	return MapAllModel[Customer, AllCustomer](ctx)
}

func ListAllSupplier(ctx context.Context) ([]*AllSupplier, error) {
	return ListAllResource[Supplier, AllSupplier](ctx, "name")
}

func MapAllSupplier(ctx context.Context) (map[int]*AllSupplier, error) {
	return MapAllModel[Supplier, AllSupplier](ctx)
}
