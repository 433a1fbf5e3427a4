package utils

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
)

func NewTrue() *bool {
	b := true
	return &b
}

func ProcessValidationErrors(err error) map[string]string {

	validationErrors := err.(validator.ValidationErrors)

	errorResponse := make(map[string]string)

	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}

	return errorResponse
}

// MySQL error numbers we care about when classifying transaction failures.
const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

// IsDuplicateKeyDBError reports whether err is a MySQL duplicate-key violation (1062).
func IsDuplicateKeyDBError(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlErrDuplicateEntry
	}
	return false
}

// IsRetryableDBError reports whether err is a serialization conflict the caller
// may retry: MySQL deadlock (1213) or lock wait timeout (1205).
func IsRetryableDBError(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlErrDeadlock || mysqlErr.Number == mysqlErrLockWaitTimeout
	}
	return false
}
