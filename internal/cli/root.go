// Package cli pointctl 命令行：在本地或通过 pointlist 服务处理点表
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"pointlist/internal/domain"
	"pointlist/internal/export"
	"pointlist/internal/logger"
	"pointlist/internal/mapping"
	"pointlist/internal/normalize"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type rootOptions struct {
	server   string
	session     string
	keepSession bool
	logLevel    string
}

type app struct {
	opts   rootOptions
	out    io.Writer
	logger *zap.Logger
	be     backend
}

// NewRootCommand 构造 pointctl 根命令
func NewRootCommand(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:           "pointctl",
		Short:         "Normalize engineering point lists and export grouped workbooks",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logger.NewLogger(logger.Options{Level: a.opts.logLevel, Format: "console"})
			if err != nil {
				return err
			}
			a.logger = l
			if a.opts.server != "" {
				a.be = newRemoteBackend(a.opts.server, a.opts.session, a.opts.keepSession, l)
			} else {
				a.be = newLocalBackend(l)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.be == nil {
				return nil
			}
			return a.be.Close(cmd.Context())
		},
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVar(&a.opts.server, "server", os.Getenv("POINTLIST_SERVER"), "pointlist server base URL (empty = process locally)")
	pf.StringVar(&a.opts.session, "session", "", "reuse a server session id (kept after the command)")
	pf.BoolVar(&a.opts.keepSession, "keep-session", false, "keep uploaded workbooks staged on the server")
	pf.StringVar(&a.opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(
		a.sheetsCommand(),
		a.previewCommand(),
		a.transformCommand(),
		a.exportCommand(),
		a.convertCommand(),
	)
	return root
}

// Execute 运行 pointctl
func Execute() {
	if err := NewRootCommand(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) sheetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sheets FILE",
		Short: "List the sheets of a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sheets, err := a.be.Sheets(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, s := range sheets {
				fmt.Fprintln(a.out, s)
			}
			return nil
		},
	}
}

func (a *app) previewCommand() *cobra.Command {
	var (
		sheet string
		rows  int
	)
	cmd := &cobra.Command{
		Use:   "preview FILE",
		Short: "Print the first rows of a sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.be.Preview(cmd.Context(), args[0], sheet, rows)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			for i, row := range data {
				cells := make([]string, 0, len(row)+1)
				cells = append(cells, fmt.Sprintf("%d", i))
				for _, c := range row {
					cells = append(cells, strings.ReplaceAll(c, "\n", `\n`))
				}
				fmt.Fprintln(tw, strings.Join(cells, "\t"))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&sheet, "sheet", "", "sheet name")
	cmd.Flags().IntVar(&rows, "rows", 0, "max rows (default 20)")
	_ = cmd.MarkFlagRequired("sheet")
	return cmd
}

// transformFlags transform / convert 共用参数
type transformFlags struct {
	sheet     string
	headerRow int
	preset    string
	maps      []string
	strict    bool
}

func (f *transformFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.sheet, "sheet", "", "sheet name (overrides preset)")
	cmd.Flags().IntVar(&f.headerRow, "header-row", 0, "0-based header row index (overrides preset)")
	cmd.Flags().StringVar(&f.preset, "preset", "", "YAML mapping preset file")
	cmd.Flags().StringArrayVarP(&f.maps, "map", "m", nil, "field=column mapping, repeatable (e.g. -m point_name=3)")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "reject unknown mapping keys")
}

// input 合并预设与命令行参数，命令行优先
func (f *transformFlags) input(cmd *cobra.Command) (TransformInput, error) {
	in := TransformInput{Mapping: map[string]any{}}
	if f.preset != "" {
		p, err := mapping.LoadPreset(f.preset)
		if err != nil {
			return in, err
		}
		if _, err := p.FieldMapping(); err != nil {
			return in, fmt.Errorf("preset %s: %w", f.preset, err)
		}
		in.Sheet, in.HeaderRow, in.Strict = p.Sheet, p.HeaderRow, p.Strict
		for k, v := range p.Mapping {
			in.Mapping[k] = v
		}
	}
	if cmd.Flags().Changed("sheet") || in.Sheet == "" {
		in.Sheet = f.sheet
	}
	if cmd.Flags().Changed("header-row") {
		in.HeaderRow = f.headerRow
	}
	if cmd.Flags().Changed("strict") {
		in.Strict = f.strict
	}
	for _, kv := range f.maps {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return in, fmt.Errorf("invalid --map %q, want field=column", kv)
		}
		in.Mapping[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	if in.Sheet == "" {
		return in, fmt.Errorf("sheet is required (--sheet or preset)")
	}
	if len(in.Mapping) == 0 {
		return in, fmt.Errorf("mapping is required (--map or preset)")
	}
	return in, nil
}

func (a *app) transformCommand() *cobra.Command {
	var (
		tf  transformFlags
		out string
	)
	cmd := &cobra.Command{
		Use:   "transform FILE",
		Short: "Normalize a sheet into standard point records (JSON)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := tf.input(cmd)
			if err != nil {
				return err
			}
			res, err := a.be.Transform(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			a.logger.Info("sheet transformed", zap.String("sheet", in.Sheet), zap.Int("records", len(res.Records)))
			return a.writeJSON(out, res)
		},
	}
	tf.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func (a *app) exportCommand() *cobra.Command {
	var (
		ship string
		out  string
	)
	cmd := &cobra.Command{
		Use:   "export RECORDS.json",
		Short: "Export normalized records into a grouped workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := loadRecords(args[0])
			if err != nil {
				return err
			}
			meta, err := loadShip(ship)
			if err != nil {
				return err
			}
			return a.export(cmd, records, meta, out)
		},
	}
	cmd.Flags().StringVar(&ship, "ship", "", "YAML/JSON ship metadata file")
	cmd.Flags().StringVarP(&out, "out", "o", export.DefaultFileName, "output workbook")
	return cmd
}

func (a *app) convertCommand() *cobra.Command {
	var (
		tf   transformFlags
		ship string
		out  string
	)
	cmd := &cobra.Command{
		Use:   "convert FILE",
		Short: "Transform a sheet and export the grouped workbook in one step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := tf.input(cmd)
			if err != nil {
				return err
			}
			meta, err := loadShip(ship)
			if err != nil {
				return err
			}
			res, err := a.be.Transform(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			return a.export(cmd, res.Records, meta, out)
		},
	}
	tf.register(cmd)
	cmd.Flags().StringVar(&ship, "ship", "", "YAML/JSON ship metadata file")
	cmd.Flags().StringVarP(&out, "out", "o", export.DefaultFileName, "output workbook")
	return cmd
}

func (a *app) export(cmd *cobra.Command, records []domain.NormalizedRecord, ship domain.ShipMetadata, out string) error {
	data, err := a.be.Export(cmd.Context(), records, ship)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	fmt.Fprintf(a.out, "wrote %s (%d records)\n", out, len(records))
	return nil
}

func (a *app) writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if path == "" {
		_, err = fmt.Fprintln(a.out, string(b))
		return err
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// loadRecords 读取记录 JSON：记录数组或 transform 的输出（clean_data）
func loadRecords(path string) ([]domain.NormalizedRecord, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var records []domain.NormalizedRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("failed to parse records: %w", err)
		}
		return records, nil
	}
	var res normalize.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to parse records: %w", err)
	}
	return res.Records, nil
}

// loadShip 读取船舶信息（YAML 兼容 JSON）；空路径返回空信息
func loadShip(path string) (domain.ShipMetadata, error) {
	var ship domain.ShipMetadata
	if path == "" {
		return ship, nil
	}
	data, err := readFile(path)
	if err != nil {
		return ship, err
	}
	if err := yaml.Unmarshal(data, &ship); err != nil {
		return ship, fmt.Errorf("failed to parse ship metadata: %w", err)
	}
	return ship, nil
}
