package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/warehub_backend/config"
	"bitbucket.org/mmdatafocus/warehub_backend/utils"
)

type Supplier struct {
	ID           int       `gorm:"primary_key" json:"id"`
	BusinessId   string    `gorm:"index;not null" json:"business_id" binding:"required"`
	Name         string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Email        string    `gorm:"size:100" json:"email"`
	Phone        string    `gorm:"size:20" json:"phone"`
	Mobile       string    `gorm:"size:20" json:"mobile"`
	Address      string    `gorm:"type:text" json:"address"`
	LeadTimeDays int       `gorm:"default:0" json:"lead_time_days"`
	Notes        string    `gorm:"type:text" json:"notes"`
	IsActive     *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSupplier struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Mobile       string `json:"mobile"`
	Address      string `json:"address"`
	LeadTimeDays int    `json:"lead_time_days"`
	Notes        string `json:"notes"`
}

type SuppliersEdge Edge[Supplier]
type SuppliersConnection struct {
	PageInfo *PageInfo        `json:"pageInfo"`
	Edges    []*SuppliersEdge `json:"edges"`
}

// returns decoded cursor string
func (s Supplier) GetCursor() string {
	return s.CreatedAt.String()
}

// validate input for both create & update. (id = 0 for create)
func (input *NewSupplier) validate(ctx context.Context, businessId string, id int) error {
	// validate unique name
	if err := utils.ValidateUnique[Supplier](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	// validate email
	if input.Email != "" {
		if !utils.IsValidEmail(input.Email) {
			return errors.New("invalid email")
		}
		if err := utils.ValidateUnique[Supplier](ctx, businessId, "email", input.Email, id); err != nil {
			return err
		}
	}
	// validate phone
	if input.Phone != "" {
		if err := utils.ValidateUnique[Supplier](ctx, businessId, "phone", input.Phone, id); err != nil {
			return err
		}
	}
	if input.LeadTimeDays < 0 {
		return errors.New("lead time days cannot be negative")
	}
	return nil
}

func CreateSupplier(ctx context.Context, input *NewSupplier) (*Supplier, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	supplier := Supplier{
		BusinessId:   businessId,
		Name:         input.Name,
		Email:        input.Email,
		Phone:        input.Phone,
		Mobile:       input.Mobile,
		Address:      input.Address,
		LeadTimeDays: input.LeadTimeDays,
		Notes:        input.Notes,
		IsActive:     utils.NewTrue(),
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Create(&supplier).Error
	if err != nil {
		return nil, err
	}

	return &supplier, nil
}

func UpdateSupplier(ctx context.Context, id int, input *NewSupplier) (*Supplier, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	supplier, err := utils.FetchModel[Supplier](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(supplier).
		Updates(map[string]interface{}{
			"Name":         input.Name,
			"Email":        input.Email,
			"Phone":        input.Phone,
			"Mobile":       input.Mobile,
			"Address":      input.Address,
			"LeadTimeDays": input.LeadTimeDays,
			"Notes":        input.Notes,
		}).Error
	if err != nil {
		return nil, err
	}

	if err := supplier.RemoveInstanceRedis(); err != nil {
		return nil, err
	}
	return supplier, nil
}

func DeleteSupplier(ctx context.Context, id int) (*Supplier, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	result, err := utils.FetchModel[Supplier](ctx, businessId, id)
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	count, err := utils.ResourceCountWhere[Product](ctx, businessId, "supplier_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("product associated with supplier exists")
	}

	count, err = utils.ResourceCountWhere[PurchaseOrder](ctx, businessId, "supplier_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("purchase order associated with supplier exists")
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Delete(&result).Error
	if err != nil {
		return nil, err
	}
	if err := result.RemoveInstanceRedis(); err != nil {
		return nil, err
	}

	return result, nil
}

func GetSupplier(ctx context.Context, id int) (*Supplier, error) {
	return GetResource[Supplier](ctx, id)
}

func GetSuppliers(ctx context.Context, name *string) ([]*Supplier, error) {
	db := config.GetDB()
	var results []*Supplier

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

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

func ToggleActiveSupplier(ctx context.Context, id int, isActive bool) (*Supplier, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	return ToggleActiveModel[Supplier](ctx, businessId, id, isActive)
}

func PaginateSupplier(ctx context.Context, limit *int, after *string,
	name *string, phone *string, email *string, isActive *bool) (*SuppliersConnection, error) {
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
	if email != nil && *email != "" {
		dbCtx.Where("email LIKE ?", "%"+*email+"%")
	}
	if isActive != nil {
		dbCtx.Where("is_active = ?", isActive)
	}
	edges, pageInfo, err := FetchPageCompositeCursor[Supplier](dbCtx, *limit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}
	var suppliersConnection SuppliersConnection
	suppliersConnection.PageInfo = pageInfo
	for _, edge := range edges {
		supplierEdge := SuppliersEdge(edge)
		suppliersConnection.Edges = append(suppliersConnection.Edges, &supplierEdge)
	}
	return &suppliersConnection, err
}
