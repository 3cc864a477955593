package db

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestUniqueViolation(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'AB12CD' for key 'matches.uk_room_id'"}

	key, ok := UniqueViolation(fmt.Errorf("exec failed: %w", dup))
	assert.True(t, ok)
	assert.Equal(t, "matches.uk_room_id", key)

	_, ok = UniqueViolation(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"})
	assert.False(t, ok)

	_, ok = UniqueViolation(errors.New("boom"))
	assert.False(t, ok)
}

func TestIsNoRows(t *testing.T) {
	assert.True(t, IsNoRows(fmt.Errorf("scan failed: %w", sql.ErrNoRows)))
	assert.False(t, IsNoRows(errors.New("other")))
}

func TestCurrentDatabase(t *testing.T) {
	_, err := CurrentDatabase(nil)
	assert.Error(t, err)

	_, err = CurrentDatabase(NewStaticProvider(nil))
	assert.Error(t, err)
}
