package models

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"bitbucket.org/mmdatafocus/warehub_backend/config"
	"bitbucket.org/mmdatafocus/warehub_backend/utils"
)

// Document is a stored file attached to a record, e.g. a packing list on a
// sales order or a product photo.
type Document struct {
	ID            int    `gorm:"primary_key" json:"id"`
	DocumentUrl   string `json:"document_url"`
	ReferenceType string `json:"reference_type"`
	ReferenceID   int    `json:"reference_id"`
}

type NewDocument struct {
	HasId
	DocumentUrl string `json:"document_url"`
}

type UploadResponse struct {
	ImageUrl     string `json:"image_url"`
	ThumbnailUrl string `json:"thumbnail_url,omitempty"`
}

// tables that accept attachments; also whitelists the polymorphic reference
// for tenant checks
var attachmentTables = map[string]string{
	"customers":       "customers",
	"suppliers":       "suppliers",
	"products":        "products",
	"sales_orders":    "sales_orders",
	"purchase_orders": "purchase_orders",
	"fulfillments":    "fulfillments",
}

func (d *Document) Store(tx *gorm.DB, ctx context.Context) error {
	return tx.WithContext(ctx).Create(&d).Error
}

func (d *Document) Delete(tx *gorm.DB, ctx context.Context) error {
	if err := tx.WithContext(ctx).Delete(&d).Error; err != nil {
		return err
	}
	if key := utils.ExtractObjectKeyFromURL(d.DocumentUrl); key != "" {
		if err := utils.DeleteImageFromGCS(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func GetDocument(ctx context.Context, id int) (*Document, error) {
	var result Document
	db := config.GetDB()
	if err := db.WithContext(ctx).First(&result, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	// Enforce tenant ownership (fail closed) unless explicitly bypassed for admin/internal ops.
	if skip, ok := utils.GetSkipTenantScopeFromContext(ctx); ok && skip {
		return &result, nil
	}
	if isAdmin, ok := utils.GetIsAdminFromContext(ctx); ok && isAdmin {
		return &result, nil
	}

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if result.ReferenceType == "" || result.ReferenceID <= 0 {
		return nil, errors.New("unauthorized")
	}

	table, ok := attachmentTables[result.ReferenceType]
	if !ok || table == "" {
		// Unknown polymorphic type => deny rather than risk cross-tenant leakage.
		return nil, errors.New("unauthorized")
	}

	var count int64
	if err := db.WithContext(ctx).
		Table(table).
		Where("business_id = ? AND id = ?", businessId, result.ReferenceID).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, errors.New("unauthorized")
	}

	return &result, nil
}

// RemoveFile deletes an uploaded object that no document row references.
func RemoveFile(ctx context.Context, fullUrl string) (*UploadResponse, error) {
	var count int64
	db := config.GetDB()

	if err := db.Model(&Document{}).WithContext(ctx).Where("document_url = ?", fullUrl).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("cannot delete file associated with database")
	}

	objectName := utils.ExtractObjectKeyFromURL(fullUrl)
	if objectName == "" {
		return nil, errors.New("invalid url")
	}
	if ok, err := utils.ObjectExistsInGCS(ctx, objectName); !ok || err != nil {
		return nil, errors.New("object does not exist")
	}

	if err := utils.DeleteImageFromGCS(ctx, objectName); err != nil {
		return nil, err
	}

	return &UploadResponse{
		ImageUrl: fullUrl,
	}, nil
}
