package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"pointlist/internal/client"
	"pointlist/internal/domain"
	"pointlist/internal/export"
	httpapi "pointlist/internal/http"
	"pointlist/internal/mapping"
	"pointlist/internal/normalize"
	"pointlist/internal/workbook"

	"go.uber.org/zap"
)

// TransformInput 转换参数
type TransformInput struct {
	Sheet     string
	HeaderRow int
	Mapping   map[string]any
	Strict    bool
}

// backend 本地处理或调用远程服务
type backend interface {
	Sheets(ctx context.Context, path string) ([]string, error)
	Preview(ctx context.Context, path, sheet string, maxRows int) ([][]string, error)
	Transform(ctx context.Context, path string, in TransformInput) (*normalize.Result, error)
	Export(ctx context.Context, records []domain.NormalizedRecord, ship domain.ShipMetadata) ([]byte, error)
	// Close 命令结束时释放资源
	Close(ctx context.Context) error
}

type localBackend struct {
	writer *export.Writer
}

func newLocalBackend(logger *zap.Logger) *localBackend {
	return &localBackend{writer: export.NewWriter(logger)}
}

func (b *localBackend) Sheets(ctx context.Context, path string) ([]string, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return workbook.ListSheets(data)
}

func (b *localBackend) Preview(ctx context.Context, path, sheet string, maxRows int) ([][]string, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	g, err := workbook.PreviewGrid(data, sheet, maxRows)
	if err != nil {
		return nil, err
	}
	return g.StringRows(), nil
}

func (b *localBackend) Transform(ctx context.Context, path string, in TransformInput) (*normalize.Result, error) {
	m, err := mapping.New(in.Mapping, mapping.Options{Strict: in.Strict})
	if err != nil {
		return nil, err
	}
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	g, err := workbook.LoadGrid(data, in.Sheet, 0)
	if err != nil {
		return nil, err
	}
	return normalize.Normalize(g, in.HeaderRow, m)
}

func (b *localBackend) Export(ctx context.Context, records []domain.NormalizedRecord, ship domain.ShipMetadata) ([]byte, error) {
	data, _, err := b.writer.Export(records, ship)
	return data, err
}

func (b *localBackend) Close(ctx context.Context) error { return nil }

type remoteBackend struct {
	c *client.Client
	// uploaded 已上传文件 -> 会话，避免同一次命令重复上传
	uploaded map[string]string
	// keep 为 true 时保留服务端会话（指定了 --session 或 --keep-session）
	keep   bool
	logger *zap.Logger
}

func newRemoteBackend(server, session string, keep bool, logger *zap.Logger) *remoteBackend {
	c := client.New(server, logger)
	if session != "" {
		c.SetSessionID(session)
		keep = true
	}
	return &remoteBackend{c: c, uploaded: map[string]string{}, keep: keep, logger: logger}
}

func (b *remoteBackend) upload(ctx context.Context, path string) ([]string, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	res, err := b.c.Upload(ctx, filepath.Base(path), data)
	if err != nil {
		return nil, err
	}
	b.uploaded[path] = res.SessionID
	return res.Sheets, nil
}

func (b *remoteBackend) ensureUploaded(ctx context.Context, path string) error {
	if id, ok := b.uploaded[path]; ok {
		b.c.SetSessionID(id)
		return nil
	}
	_, err := b.upload(ctx, path)
	return err
}

func (b *remoteBackend) Sheets(ctx context.Context, path string) ([]string, error) {
	return b.upload(ctx, path)
}

func (b *remoteBackend) Preview(ctx context.Context, path, sheet string, maxRows int) ([][]string, error) {
	if err := b.ensureUploaded(ctx, path); err != nil {
		return nil, err
	}
	res, err := b.c.Preview(ctx, sheet, maxRows)
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

func (b *remoteBackend) Transform(ctx context.Context, path string, in TransformInput) (*normalize.Result, error) {
	if err := b.ensureUploaded(ctx, path); err != nil {
		return nil, err
	}
	strict := in.Strict
	return b.c.Transform(ctx, httpapi.TransformRequest{
		SheetName:      in.Sheet,
		HeaderRowIndex: in.HeaderRow,
		Mapping:        in.Mapping,
		Strict:         &strict,
	})
}

func (b *remoteBackend) Export(ctx context.Context, records []domain.NormalizedRecord, ship domain.ShipMetadata) ([]byte, error) {
	return b.c.Export(ctx, httpapi.ExportRequest{
		Rows: records,
		ShipInfo: map[string]any{
			"name":    ship.Name,
			"hull":    ship.Hull,
			"owner":   ship.Owner,
			"project": ship.Project,
			"class":   ship.Class,
			"imo":     ship.IMO,
			"mmsi":    ship.MMSI,
		},
	})
}

// Close 删除本次命令上传的会话，不等待服务端 TTL 过期
func (b *remoteBackend) Close(ctx context.Context) error {
	if b.keep {
		return nil
	}
	seen := map[string]bool{}
	var errs []error
	for _, id := range b.uploaded {
		if seen[id] {
			continue
		}
		seen[id] = true
		b.c.SetSessionID(id)
		if err := b.c.Discard(ctx); err != nil {
			b.logger.Warn("failed to discard session", zap.String("session_id", id), zap.Error(err))
			errs = append(errs, err)
		}
	}
	b.uploaded = map[string]string{}
	return errors.Join(errs...)
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
