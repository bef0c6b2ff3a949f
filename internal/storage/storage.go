package storage

import "flashPool/internal/model"

// Storage defines a sink for pool records.
type Storage interface {
	PutRecordBatch(records []model.Record) error
}
