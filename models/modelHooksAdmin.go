package models

import (
	"gorm.io/gorm"
)

// User hooks build the history row directly instead of going through
// createHistory: seed tooling creates users without a business in context.
func (u *User) AfterCreate(tx *gorm.DB) (err error) {
	var history History
	history.BusinessId = u.BusinessId
	history.ActionType = "REGISTER"
	history.ReferenceID = u.ID
	history.ReferenceType = "users"
	history.UserName = u.Name
	history.Description = "created user"

	if err := tx.Create(&history).Error; err != nil {
		return err
	}

	return u.RemoveAllRedis()
}

func (u *User) BeforeUpdate(tx *gorm.DB) (err error) {
	var history History
	history.BusinessId = u.BusinessId
	history.ActionType = "UPDATE"
	history.ReferenceID = u.ID
	history.ReferenceType = "users"
	history.UserName = u.Name
	history.Description = "updated user"

	if err := tx.Create(&history).Error; err != nil {
		return err
	}

	return u.RemoveAllRedis()
}

func (u *User) AfterDelete(tx *gorm.DB) (err error) {
	var history History
	history.BusinessId = u.BusinessId
	history.ActionType = "DELETE"
	history.ReferenceID = u.ID
	history.ReferenceType = "users"
	history.UserName = u.Name
	history.Description = "deleted user"

	if err := tx.Create(&history).Error; err != nil {
		return err
	}

	return u.RemoveAllRedis()
}
