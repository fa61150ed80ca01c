package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MaxLocationLength      = 300
	MaxNotesLength         = 5000
	MaxReasonLength        = 2000
	MaxPaymentMethodLength = 64
	MaxFileNameLength      = 255
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s обязателен", fieldName)
	}
	return nil
}

// ValidateOrderDetails проверяет место и комментарий заказа.
func ValidateOrderDetails(location, notes string) error {
	if err := ValidateLength("место", strings.TrimSpace(location), 0, MaxLocationLength); err != nil {
		return err
	}
	return ValidateLength("комментарий", strings.TrimSpace(notes), 0, MaxNotesLength)
}

// ValidateReason проверяет необязательную причину перехода.
func ValidateReason(reason string) error {
	return ValidateLength("причина", strings.TrimSpace(reason), 0, MaxReasonLength)
}

func ValidatePaymentMethod(method string) error {
	if err := ValidateNonEmpty("способ оплаты", method); err != nil {
		return err
	}
	if strings.ContainsAny(method, " \t\r\n") {
		return fmt.Errorf("способ оплаты не должен содержать пробелов")
	}
	return ValidateLength("способ оплаты", method, 1, MaxPaymentMethodLength)
}

// ValidateFileName отсекает пустые имена и попытки выйти из каталога.
func ValidateFileName(name string) error {
	if err := ValidateNonEmpty("имя файла", name); err != nil {
		return err
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("недопустимое имя файла")
	}
	return ValidateLength("имя файла", name, 1, MaxFileNameLength)
}
