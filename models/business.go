package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/warehub_backend/config"
	"bitbucket.org/mmdatafocus/warehub_backend/utils"
	"github.com/google/uuid"
)

type Business struct {
	ID                 uuid.UUID `gorm:"primary_key" json:"id"`
	Name               string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	ContactName        string    `gorm:"size:100" json:"contact_name"`
	Email              string    `gorm:"size:255" json:"email"`
	Phone              string    `gorm:"size:20" json:"phone"`
	Website            string    `gorm:"size:255" json:"website"`
	Address            string    `gorm:"type:text" json:"address"`
	Country            string    `gorm:"size:100"  json:"country"`
	City               string    `gorm:"size:100"  json:"city"`
	Timezone           string    `gorm:"size:50" json:"timezone"`
	OrderNumberPrefix  string    `gorm:"size:20;default:'SO-'" json:"order_number_prefix"`
	PurchaseOrderPrefix string   `gorm:"size:20;default:'PO-'" json:"purchase_order_prefix"`
	PrimaryWarehouseId int       `gorm:"not null" json:"primary_warehouse_id"`
	IsActive           *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBusiness struct {
	Name        string `json:"name" binding:"required"`
	ContactName string `json:"contact_name"`
	Email       string `json:"email" binding:"required"`
	Phone       string `json:"phone"`
	Website     string `json:"website"`
	Address     string `json:"address"`
	Country     string `json:"country"`
	City        string `json:"city"`
	Timezone    string `json:"timezone"`
}

func (business *Business) StoreRedis() error {
	return config.SetRedisObject("Business:"+fmt.Sprint(business.ID), business, 0)
}

func (business *Business) RemoveRedis() error {
	return config.RemoveRedisKey("Business:" + fmt.Sprint(business.ID))
}

func (input *NewBusiness) validate(ctx context.Context, id string) error {
	// name
	if err := utils.ValidateUnique[Business](ctx, "", "name", input.Name, id); err != nil {
		return err
	}
	// email
	if err := utils.ValidateUnique[Business](ctx, "", "email", input.Email, id); err != nil {
		return err
	}
	// phone
	if input.Phone != "" {
		if err := utils.ValidateUnique[Business](ctx, "", "phone", input.Phone, id); err != nil {
			return err
		}
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return err
		}
	}
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return errors.New("invalid email")
	}
	return nil
}

func CreateBusiness(ctx context.Context, input *NewBusiness) (*Business, error) {
	if err := input.validate(ctx, ""); err != nil {
		return nil, err
	}

	business := Business{
		ID:          uuid.New(),
		Name:        input.Name,
		ContactName: input.ContactName,
		Email:       input.Email,
		Phone:       input.Phone,
		Website:     input.Website,
		Address:     input.Address,
		Country:     input.Country,
		City:        input.City,
		Timezone:    input.Timezone,
		IsActive:    utils.NewTrue(),
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&business).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	// every business starts with a primary warehouse
	warehouse := Warehouse{
		BusinessId: business.ID.String(),
		Name:       "Main Warehouse",
		IsActive:   utils.NewTrue(),
	}
	if err := tx.WithContext(ctx).Create(&warehouse).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Model(&business).Update("PrimaryWarehouseId", warehouse.ID).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	business.PrimaryWarehouseId = warehouse.ID

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	_ = business.StoreRedis()
	return &business, nil
}

// read business, redis or db
func GetBusinessById(ctx context.Context, businessId string) (*Business, error) {
	var business *Business
	exists, err := config.GetRedisObject("Business:"+businessId, &business)
	if err != nil {
		return nil, err
	}
	if exists {
		return business, nil
	}

	db := config.GetDB()
	business = &Business{}
	if err := db.WithContext(ctx).Where("id = ?", businessId).First(business).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	_ = business.StoreRedis()
	return business, nil
}

func GetBusiness(ctx context.Context) (*Business, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return GetBusinessById(ctx, businessId)
}

func UpdateBusiness(ctx context.Context, businessId string, input *NewBusiness) (*Business, error) {
	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var business Business
	if err := db.WithContext(ctx).Where("id = ?", businessId).First(&business).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	business.Name = input.Name
	business.ContactName = input.ContactName
	business.Email = input.Email
	business.Phone = input.Phone
	business.Website = input.Website
	business.Address = input.Address
	business.Country = input.Country
	business.City = input.City
	business.Timezone = input.Timezone

	if err := db.WithContext(ctx).Save(&business).Error; err != nil {
		return nil, err
	}
	_ = business.RemoveRedis()
	return &business, nil
}
