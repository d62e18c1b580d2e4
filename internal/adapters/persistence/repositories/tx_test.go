package repositories

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&mysql.MySQLError{Number: 1213}))
	assert.True(t, isRetryable(&mysql.MySQLError{Number: 1205}))
	assert.True(t, isRetryable(fmt.Errorf("save loan: %w", &mysql.MySQLError{Number: 1213})))

	assert.False(t, isRetryable(&mysql.MySQLError{Number: 1062}))
	assert.False(t, isRetryable(errors.New("connection refused")))
	assert.False(t, isRetryable(nil))
}

func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, IsDuplicateKey(&mysql.MySQLError{Number: 1062}))
	assert.True(t, IsDuplicateKey(fmt.Errorf("create loan: %w", &mysql.MySQLError{Number: 1062})))
	assert.True(t, IsDuplicateKey(gorm.ErrDuplicatedKey))

	assert.False(t, IsDuplicateKey(&mysql.MySQLError{Number: 1213}))
	assert.False(t, IsDuplicateKey(gorm.ErrRecordNotFound))
	assert.False(t, IsDuplicateKey(nil))
}
