// Package scancode генерирует коды для отметки посещения на ресепшене.
package scancode

import (
	"strings"

	"github.com/google/uuid"
)

// New возвращает новый уникальный код записи: UUIDv4 без дефисов в верхнем регистре.
func New() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// Normalize приводит отсканированную строку к виду, в котором код хранится в базе.
func Normalize(code string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(code), "-", ""))
}
