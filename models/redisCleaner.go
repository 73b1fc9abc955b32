package models

import (
	"bitbucket.org/mmdatafocus/warehub_backend/utils"
)

type RedisCleaner interface {
	RemoveInstanceRedis() error // remove one
	RemoveAllRedis() error      // remove list & map if exists
}

// remove both item & list + map
func RemoveRedisBoth[T RedisCleaner](obj T) error {
	if err := obj.RemoveInstanceRedis(); err != nil {
		return err
	}
	if err := obj.RemoveAllRedis(); err != nil {
		return err
	}
	return nil
}

func (obj User) RemoveAllRedis() error {
	if err := utils.RemoveRedisList[AllUser](obj.BusinessId); err != nil {
		return err
	}
	return nil
}

func (obj Warehouse) RemoveInstanceRedis() error {
	if err := utils.RemoveRedisItem[Warehouse](obj.ID); err != nil {
		return err
	}
	return nil
}

func (obj Warehouse) RemoveAllRedis() error {
	if err := utils.RemoveRedisList[AllWarehouse](obj.BusinessId); err != nil {
		return err
	}
	if err := utils.RemoveRedisMap[AllWarehouse](obj.BusinessId); err != nil {
		return err
	}
	return nil
}

func (obj Product) RemoveInstanceRedis() error {
	if err := utils.RemoveRedisItem[Product](obj.ID); err != nil {
		return err
	}
	return nil
}

func (obj Product) RemoveAllRedis() error {
	if err := utils.RemoveRedisList[AllProduct](obj.BusinessId); err != nil {
		return err
	}
	if err := utils.RemoveRedisMap[AllProduct](obj.BusinessId); err != nil {
		return err
	}
	return nil
}

func (obj Customer) RemoveInstanceRedis() error {
	if err := utils.RemoveRedisItem[Customer](obj.ID); err != nil {
		return err
	}
	return nil
}

func (obj Customer) RemoveAllRedis() error {
	return nil
}

func (obj Supplier) RemoveInstanceRedis() error {
	if err := utils.RemoveRedisItem[Supplier](obj.ID); err != nil {
		return err
	}
	return nil
}

func (obj Supplier) RemoveAllRedis() error {
	return nil
}
