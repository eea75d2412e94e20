package database

import (
	"testing"

	"pointlist/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestNewPostgresDB_Unreachable(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host: "127.0.0.1", Port: 1, User: "u", Password: "p", Database: "pointlist", SSLMode: "disable",
	}
	db, err := NewPostgresDB(cfg)
	assert.Error(t, err)
	assert.Nil(t, db)
}

func TestClose_Nil(t *testing.T) {
	assert.NoError(t, Close(nil))
}
