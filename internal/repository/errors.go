package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// versionが合わない（他のリクエストが先に更新した）
	ErrVersionConflict = errors.New("version conflict")
	// ユニーク制約違反
	ErrDuplicate = errors.New("duplicate")
)
