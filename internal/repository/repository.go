// internal/repository/repository.go
package repository

import (
	"errors"
	"fmt"

	"github.com/dangerclosesec/campusops/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const uniqueViolation = "23505"

// ListOptions narrows a list query. Conditions are column equality filters
// applied on top of the organization filter.
type ListOptions struct {
	Offset     int
	Limit      int
	Order      string
	Conditions map[string]interface{}
}

func (o ListOptions) apply(tx *gorm.DB) *gorm.DB {
	if len(o.Conditions) > 0 {
		tx = tx.Where(o.Conditions)
	}
	if o.Order != "" {
		tx = tx.Order(o.Order)
	}
	if o.Offset > 0 {
		tx = tx.Offset(o.Offset)
	}
	if o.Limit > 0 {
		tx = tx.Limit(o.Limit)
	}
	return tx
}

// translateError maps driver and gorm errors onto domain errors. notFound
// replaces gorm.ErrRecordNotFound when given.
func translateError(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if notFound != nil {
			return notFound
		}
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, pgErr.ConstraintName)
	}
	return err
}
