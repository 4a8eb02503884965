package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ignatzorin/feedback-escalation/internal/pkg/apperror"
)

// Константы валидации
const (
	MinCategoryLength = 1
	MaxCategoryLength = 100
	MaxStoreIDLength  = 64
	MaxMarketIDLength = 64
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s must be at least %d characters", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s must be at most %d characters", fieldName, max)
	}
	return nil
}

// ValidateCategory проверяет категорию жалобы до классификации.
func ValidateCategory(category string) error {
	category = strings.TrimSpace(category)
	if err := ValidateLength("category", category, MinCategoryLength, MaxCategoryLength); err != nil {
		return apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if strings.ContainsAny(category, "\x00\r\n") {
		return apperror.New(apperror.ErrCodeValidation, "category contains forbidden characters")
	}
	return nil
}

// ValidateLocation проверяет необязательные идентификаторы магазина и рынка.
func ValidateLocation(storeID, marketID string) error {
	if err := ValidateLength("store_id", strings.TrimSpace(storeID), 0, MaxStoreIDLength); err != nil {
		return apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := ValidateLength("market_id", strings.TrimSpace(marketID), 0, MaxMarketIDLength); err != nil {
		return apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	return nil
}
