package utils

import (
	"errors"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrorRecordNotFound = errors.New("record not found")
	ErrorBarIdRequired  = errors.New("bar id is required")
	ErrorUnauthorized   = errors.New("unauthorized")
	ErrorForbidden      = errors.New("forbidden")
	ErrorInvalidInput   = errors.New("invalid input")
	ErrorDuplicate      = errors.New("duplicate")
)

// kindError carries a client-safe message and matches one of the sentinels above.
type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Is(target error) bool { return target == e.kind }

func NewInputError(msg string) error {
	return &kindError{msg: msg, kind: ErrorInvalidInput}
}

// NewNotFoundError returns "<resource> not found" matching ErrorRecordNotFound.
func NewNotFoundError(resource string) error {
	return &kindError{msg: resource + " not found", kind: ErrorRecordNotFound}
}

func NewForbiddenError(msg string) error {
	return &kindError{msg: msg, kind: ErrorForbidden}
}

func NewDuplicateError(msg string) error {
	return &kindError{msg: msg, kind: ErrorDuplicate}
}

// IsDuplicateKeyErr reports unique-constraint violations for both supported drivers.
func IsDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
