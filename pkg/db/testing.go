package db

import (
	"fmt"
	"sync/atomic"
	"testing"

	glebarez "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq atomic.Int64

// NewTest opens an isolated in-memory sqlite database and migrates the given
// models into it.
func NewTest(t testing.TB, models ...any) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:greenledger_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	conn, err := gorm.Open(glebarez.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if len(models) > 0 {
		if err := conn.AutoMigrate(models...); err != nil {
			t.Fatalf("migrate test db: %v", err)
		}
	}

	sqlDB, err := conn.DB()
	if err == nil {
		sqlDB.SetMaxIdleConns(4)
		t.Cleanup(func() { _ = sqlDB.Close() })
	}
	return conn
}
