// Package sl содержит вспомогательные функции для работы с логгером slog:
// поле ошибки и единые ключи идентификаторов расписания.
package sl

import "log/slog"

// Ключи идентификаторов, по ним ищут записи в логах сервиса и сверки.
const (
	KeyMember       = "member_id"
	KeyOccurrence   = "occurrence_id"
	KeyRegistration = "registration_id"
	KeyTemplate     = "template_id"
)

// Err возвращает slog.Attr с ключом "error" и значением текста ошибки.
//
// Пример:
//
//	log.Error("failed to book", sl.Err(err), sl.Member(memberID))
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

func Member(id int64) slog.Attr { return slog.Int64(KeyMember, id) }

func Occurrence(id int64) slog.Attr { return slog.Int64(KeyOccurrence, id) }

func Registration(id int64) slog.Attr { return slog.Int64(KeyRegistration, id) }

func Template(id int64) slog.Attr { return slog.Int64(KeyTemplate, id) }
