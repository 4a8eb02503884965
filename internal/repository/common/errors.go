package common

import (
	"errors"

	"github.com/ignatzorin/feedback-escalation/internal/pkg/apperror"
)

// StorageError переводит ошибку драйвера в доменную: доменные ошибки
// проходят как есть, остальное считается недоступностью хранилища.
func StorageError(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Wrap(err, apperror.ErrCodePersistenceUnavailable, message)
}
