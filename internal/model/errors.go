package model

import "errors"

// Категории ошибок ядра. Любая ошибка сервисов и репозиториев,
// относящаяся к бизнес-правилам, оборачивает ровно одну из них.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
)
