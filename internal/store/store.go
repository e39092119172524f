package store

import "time"

// Store is the persistent key/value-by-binding-id contract spec §6
// describes: findAll, save, delete(id).
type Store interface {
	FindAll() ([]Blueprint, error)
	Save(bp Blueprint) error
	Delete(bindingID string) error
}

// ScalingHistory is implemented by stores that can also retain a
// bounded log of past scaling decisions per binding. It is kept
// separate from Store so a minimal Store (used by tests and any future
// backend that only needs blueprint persistence) isn't forced to carry
// it.
type ScalingHistory interface {
	LogScalingAction(bindingID string, reason string, old, new int, decisionTime time.Time, payload interface{}) error
	GetScalingHistory(bindingID string, limit int) ([]map[string]interface{}, error)
}
