package models

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(conn))

	return conn
}

// fixed draw materials; model-level tests never verify the commitment
const (
	testSeed       = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"
	testCommitment = "commitment-under-test"
)

var accountSeq int64

func createTestAccount(t *testing.T, conn *gorm.DB, balance float64) *Account {
	t.Helper()

	account := &Account{
		Nickname: fmt.Sprintf("player-%d", atomic.AddInt64(&accountSeq, 1)),
		Balance:  balance,
	}
	require.NoError(t, conn.Create(account).Error)
	return account
}
