// Package store 按会话暂存上传的工作簿（每个会话只保留最近一次上传）
package store

import (
	"context"
	"time"

	"pointlist/internal/domain"
)

// ErrMiss 会话不存在或已过期
var ErrMiss = domain.ErrSessionNotFound

// DefaultTTL 暂存默认有效期
const DefaultTTL = 2 * time.Hour

// WorkbookStore 会话级工作簿暂存；同一会话重复上传时覆盖（后写者胜）
type WorkbookStore interface {
	Put(ctx context.Context, sessionID string, data []byte) error
	Get(ctx context.Context, sessionID string) ([]byte, error)
	Delete(ctx context.Context, sessionID string) error
}
