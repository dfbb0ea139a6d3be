// Package engine is the submission persistence and reconciliation core. It
// maps nested client documents onto the normalized schema, performs idempotent
// upsert/replace writes, retries transient lock contention, and reconstructs
// the nested document on read. The HTTP layer is thin glue over this package.
package engine

import (
	"time"

	"gorm.io/gorm"
)

type Engine struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
