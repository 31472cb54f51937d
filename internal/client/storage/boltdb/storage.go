package boltdb

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var bucketSession = []byte("session")

// Storage хранит сессию устройства в BoltDB. Данные сущностей и очередь
// изменений живут в SQLite, здесь только параметры подключения к серверу.
type Storage struct {
	db *bbolt.DB
}

// New opens the BoltDB file and makes sure the session bucket exists.
func New(ctx context.Context, dbPath string) (*Storage, error) {
	// Timeout на открытие, чтобы второй запущенный клиент не завис на блокировке файла
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSession)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create session bucket: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close closes the database file.
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
