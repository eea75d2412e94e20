package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNoFileProvided     = errors.New("no file provided")
	ErrUnreadableWorkbook = errors.New("unreadable workbook")
	ErrColumnOutOfRange   = errors.New("column out of range")
	ErrEmptyExport        = errors.New("no rows to export")
	ErrInvalidMapping     = errors.New("invalid mapping")
	ErrSessionNotFound    = errors.New("session not found")
)

// MappingError 映射错误，携带出错字段与列索引
// Kind 为 ErrInvalidMapping 或 ErrColumnOutOfRange，可用 errors.Is 判断
type MappingError struct {
	Kind   error
	Key    string
	Index  int
	Reason string
}

func (e *MappingError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%v: field %q: %s", e.Kind, e.Key, e.Reason)
	}
	return fmt.Sprintf("%v: field %q index %d", e.Kind, e.Key, e.Index)
}

func (e *MappingError) Unwrap() error { return e.Kind }

// NewColumnOutOfRange 列索引超出表格列数
func NewColumnOutOfRange(key string, index, columnCount int) *MappingError {
	return &MappingError{
		Kind:   ErrColumnOutOfRange,
		Key:    key,
		Index:  index,
		Reason: fmt.Sprintf("index %d not in [0, %d)", index, columnCount),
	}
}

// NewInvalidMapping 索引为负数或非整数
func NewInvalidMapping(key string, reason string) *MappingError {
	return &MappingError{Kind: ErrInvalidMapping, Key: key, Index: -1, Reason: reason}
}
