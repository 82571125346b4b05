// persistence/interface.go
package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/wfunc/trivia/config"
	"github.com/wfunc/trivia/models"
)

// Store archives finished games. Nothing is ever loaded back into a running
// server.
type Store interface {
	SaveGameRecord(ctx context.Context, rec *models.GameRecord) error
	// RecentGameRecords returns up to limit records, newest first.
	RecentGameRecords(ctx context.Context, limit int) ([]models.GameRecord, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrUnknownDriver  = errors.New("unknown database driver")
)

// Open connects the store named by cfg.Driver. An empty driver disables the
// archive and returns a nil Store.
func Open(cfg config.DatabaseConfig) (Store, error) {
	switch cfg.Driver {
	case "":
		return nil, nil
	case "gorm":
		return NewGormPostgreSQL(cfg.Postgres.DSN())
	case "postgres":
		return NewPostgreSQL(cfg.Postgres.DSN())
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
