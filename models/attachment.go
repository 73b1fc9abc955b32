package models

import (
	"context"
	"errors"

	"bitbucket.org/mmdatafocus/warehub_backend/config"
	"bitbucket.org/mmdatafocus/warehub_backend/utils"
)

// document's reference type
func validateReferenceType(ctx context.Context, businessId string, referenceType string, referenceId int) error {
	db := config.GetDB()
	table, ok := attachmentTables[referenceType]
	if !ok {
		return errors.New("invalid reference type")
	}

	// check if it exists
	var count int64
	if err := db.WithContext(ctx).Table(table).Where("business_id = ? AND id = ?", businessId, referenceId).Count(&count).Error; err != nil {
		return err
	}
	if count <= 0 {
		return utils.ErrorRecordNotFound
	}

	return nil
}

func CreateAttachmentFromURL(ctx context.Context, documentURL string, referenceType string, referenceId int) (*Document, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := validateReferenceType(ctx, businessId, referenceType, referenceId); err != nil {
		return nil, err
	}

	if err := utils.CheckImageExistInGCS(documentURL); err != nil {
		return nil, err
	}

	var result Document = Document{
		DocumentUrl:   documentURL,
		ReferenceType: referenceType,
		ReferenceID:   referenceId,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&result).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func DeleteAttachment(ctx context.Context, id int) (*Document, error) {
	// ownership check included
	result, err := GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := result.Delete(db, ctx); err != nil {
		return nil, err
	}
	return result, nil
}
