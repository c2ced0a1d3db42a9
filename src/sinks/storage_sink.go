package sinks

import (
	"symbollist-observer/src/interfaces"
	"symbollist-observer/src/models"
)

// StorageSink persists records through a database backend.
type StorageSink struct {
	DB interfaces.IDatabase
}

func NewStorageSink(db interfaces.IDatabase) *StorageSink {
	return &StorageSink{DB: db}
}

func (s *StorageSink) Name() string {
	return "storage"
}

func (s *StorageSink) Publish(records []models.DecodedRecord) error {
	return s.DB.SaveRecords(records)
}

func (s *StorageSink) Close() error {
	return s.DB.Close()
}
