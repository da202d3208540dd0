package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/exam-engine/internal/repositories"
)

// wrapErr maps gorm's not-found into the repositories sentinel and annotates everything else.
func wrapErr(err error, entity string, key interface{}, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repositories.NewNotFoundError(entity, key)
	}
	return fmt.Errorf("failed to %s %s: %w", op, entity, err)
}
