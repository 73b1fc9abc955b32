package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/warehub_backend/config"
	"bitbucket.org/mmdatafocus/warehub_backend/utils"
)

type Customer struct {
	ID                int       `gorm:"primary_key" json:"id"`
	BusinessId        string    `gorm:"index;not null" json:"business_id" binding:"required"`
	Name              string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Email             string    `gorm:"size:100" json:"email"`
	Phone             string    `gorm:"size:20" json:"phone"`
	Mobile            string    `gorm:"size:20" json:"mobile"`
	ShippingAddress   string    `gorm:"type:text" json:"shipping_address"`
	BillingAddress    string    `gorm:"type:text" json:"billing_address"`
	Notes             string    `gorm:"type:text" json:"notes"`
	ShopifyCustomerId string    `gorm:"size:50;index" json:"shopify_customer_id"`
	IsActive          *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCustomer struct {
	Name              string `json:"name" binding:"required"`
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	Mobile            string `json:"mobile"`
	ShippingAddress   string `json:"shipping_address"`
	BillingAddress    string `json:"billing_address"`
	Notes             string `json:"notes"`
	ShopifyCustomerId string `json:"shopify_customer_id"`
}

type CustomersEdge Edge[Customer]
type CustomersConnection struct {
	Edges    []*CustomersEdge `json:"edges"`
	PageInfo *PageInfo        `json:"pageInfo"`
}

// returns decoded cursor string
func (c Customer) GetCursor() string {
	return c.CreatedAt.String()
}

// validate input for both create & update. (id = 0 for create)
func (input *NewCustomer) validate(ctx context.Context, businessId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Customer](ctx, businessId, id); err != nil {
			return err
		}
	}
	// validate unique name
	if err := utils.ValidateUnique[Customer](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	// validate email
	if input.Email != "" {
		if !utils.IsValidEmail(input.Email) {
			return errors.New("invalid email")
		}
		if err := utils.ValidateUnique[Customer](ctx, businessId, "email", input.Email, id); err != nil {
			return err
		}
	}
	// validate phone
	if input.Phone != "" {
		if err := utils.ValidateUnique[Customer](ctx, businessId, "phone", input.Phone, id); err != nil {
			return err
		}
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return err
		}
	}
	return nil
}

func CreateCustomer(ctx context.Context, input *NewCustomer) (*Customer, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	customer := Customer{
		BusinessId:        businessId,
		Name:              input.Name,
		Email:             input.Email,
		Phone:             input.Phone,
		Mobile:            input.Mobile,
		ShippingAddress:   input.ShippingAddress,
		BillingAddress:    input.BillingAddress,
		Notes:             input.Notes,
		ShopifyCustomerId: input.ShopifyCustomerId,
		IsActive:          utils.NewTrue(),
	}

	err := db.WithContext(ctx).Create(&customer).Error
	if err != nil {
		return nil, err
	}

	return &customer, nil
}

func UpdateCustomer(ctx context.Context, id int, input *NewCustomer) (*Customer, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	customer, err := utils.FetchModel[Customer](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	err = tx.WithContext(ctx).Model(&customer).Updates(map[string]interface{}{
		"Name":              input.Name,
		"Email":             input.Email,
		"Phone":             input.Phone,
		"Mobile":            input.Mobile,
		"ShippingAddress":   input.ShippingAddress,
		"BillingAddress":    input.BillingAddress,
		"Notes":             input.Notes,
		"ShopifyCustomerId": input.ShopifyCustomerId,
	}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := customer.RemoveInstanceRedis(); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return customer, nil
}

func DeleteCustomer(ctx context.Context, id int) (*Customer, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	result, err := utils.FetchModel[Customer](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	count, err := utils.ResourceCountWhere[SalesOrder](ctx, businessId, "customer_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("sales order associated with customer exists")
	}

	db := config.GetDB()
	tx := db.Begin()
	err = tx.WithContext(ctx).Delete(&result).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := result.RemoveInstanceRedis(); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return result, nil
}

func ToggleActiveCustomer(ctx context.Context, id int, isActive bool) (*Customer, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	return ToggleActiveModel[Customer](ctx, businessId, id, isActive)
}

func GetCustomer(ctx context.Context, id int) (*Customer, error) {
	return GetResource[Customer](ctx, id)
}

func GetCustomers(ctx context.Context, name *string) ([]*Customer, error) {
	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	var results []*Customer
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	err := dbCtx.
		Find(&results).Error
	if err != nil {
		return nil, err
	}

	return results, nil
}

func PaginateCustomer(ctx context.Context, limit *int, after *string,
	name *string, phone *string, mobile *string, email *string, isActive *bool) (*CustomersConnection, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if name != nil && *name != "" {
		dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if phone != nil && *phone != "" {
		dbCtx.Where("phone LIKE ?", "%"+*phone+"%")
	}
	if mobile != nil && *mobile != "" {
		dbCtx.Where("mobile LIKE ?", "%"+*mobile+"%")
	}
	if email != nil && *email != "" {
		dbCtx.Where("email LIKE ?", "%"+*email+"%")
	}
	if isActive != nil {
		dbCtx.Where("is_active = ?", isActive)
	}

	edges, pageInfo, err := FetchPageCompositeCursor[Customer](dbCtx, *limit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}

	var customersConnection CustomersConnection
	customersConnection.PageInfo = pageInfo
	for _, edge := range edges {
		customerEdge := CustomersEdge(edge)
		customersConnection.Edges = append(customersConnection.Edges, &customerEdge)
	}

	return &customersConnection, err
}
