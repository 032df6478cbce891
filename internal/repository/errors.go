// Package repository holds the MySQL-backed stores. Driver errors never leave
// this package raw: translate maps them onto the sentinels below so services
// and handlers can branch with errors.Is.
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateTitle means the business already has an offer with this title.
	ErrDuplicateTitle = errors.New("an offer with this title already exists for this business")
	// ErrDuplicateTier means the offer already has a tier of this type.
	ErrDuplicateTier = errors.New("the offer already has a tier of this type")
	// ErrDuplicateReview means the reviewer already reviewed this business.
	ErrDuplicateReview = errors.New("the reviewer already reviewed this business")
	// ErrDuplicateUser means the username or email is taken.
	ErrDuplicateUser = errors.New("username or email already exists")
	// ErrPersistence wraps any other storage failure.
	ErrPersistence = errors.New("persistence error")
)

const mysqlDuplicateEntry = 1062

// uniqueKeys maps unique key names from the migrations to sentinels.
var uniqueKeys = []struct {
	key string
	err error
}{
	{"uq_offers_business_title", ErrDuplicateTitle},
	{"uq_offer_details_offer_tier", ErrDuplicateTier},
	{"uq_reviews_reviewer_business", ErrDuplicateReview},
	{"uq_users_username", ErrDuplicateUser},
	{"uq_users_email", ErrDuplicateUser},
}

// PersistenceError carries the driver message behind ErrPersistence.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

func (e *PersistenceError) Unwrap() error { return e.Err }

// translate converts a driver error into the repository taxonomy. It is safe
// to call with nil and with errors that were already translated.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	for _, known := range []error{ErrNotFound, ErrDuplicateTitle, ErrDuplicateTier, ErrDuplicateReview, ErrDuplicateUser, ErrPersistence} {
		if errors.Is(err, known) {
			return err
		}
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		for _, k := range uniqueKeys {
			if strings.Contains(me.Message, k.key) {
				return k.err
			}
		}
	}
	return &PersistenceError{Op: op, Err: err}
}

// finish commits tx, or rolls it back when *err is set. Commit failures are
// reported through err. Use as `defer finish(tx, &err)`.
func finish(tx *sql.Tx, err *error) {
	if *err != nil {
		_ = tx.Rollback()
		return
	}
	if cerr := tx.Commit(); cerr != nil {
		*err = translate("commit", cerr)
	}
}
