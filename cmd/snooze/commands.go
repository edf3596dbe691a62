package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/snooze/shield"
	"github.com/hazyhaar/snooze/snooze"
)

type rootOptions struct {
	configPath string
	url        string
	backend    string
	storePath  string
	addr       string
	logLevel   string
}

func newRoot() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "snooze",
		Short:         "Snooze Phabricator dashboard items until a chosen date.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	f := cmd.PersistentFlags()
	f.StringVar(&o.configPath, "config", "", "path to snooze.yaml")
	f.StringVar(&o.url, "url", "", "dashboard URL (overrides config)")
	f.StringVar(&o.backend, "store", "", "store backend: localstorage, sqlite, diskv, memory")
	f.StringVar(&o.storePath, "store-path", "", "sqlite file or diskv directory")
	f.StringVar(&o.logLevel, "log-level", "info", "log level: debug, info, warn, error")

	addRun(cmd, o)
	addList(cmd, o)
	addExport(cmd, o)
	addImport(cmd, o)
	addRender(cmd, o)
	addHistory(cmd, o)
	addHashPassword(cmd)
	addVersion(cmd)
	return cmd
}

func (o *rootOptions) logger() *slog.Logger {
	var level slog.Level
	switch o.logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// config loads the file if any, then applies flag overrides.
func (o *rootOptions) config() (*snooze.Config, error) {
	cfg := snooze.DefaultConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = snooze.LoadConfigFile(o.configPath); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	if o.url != "" {
		cfg.Page.URL = o.url
	}
	if o.backend != "" {
		cfg.Store.Backend = o.backend
	}
	if o.storePath != "" {
		cfg.Store.Path = o.storePath
	}
	if o.addr != "" {
		cfg.HTTP.Addr = o.addr
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore opens the configured backend for the offline commands.
func (o *rootOptions) openStore() (*snooze.Config, snooze.KV, func() error, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, nil, nil, err
	}
	kv, closeFn, err := snooze.OpenStore(cfg.Store)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, kv, closeFn, nil
}

func addRun(top *cobra.Command, o *rootOptions) {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open the dashboard and keep it decorated until interrupted",
		Example: `
snooze run --config snooze.yaml
snooze run --url https://phabricator.example.com/ --store sqlite --store-path ~/.snooze.db --addr 127.0.0.1:8377
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.config()
			if err != nil {
				return err
			}
			logger := o.logger()
			sinks, err := snooze.SinksFromConfig(cfg.Sinks, os.Stdout, logger)
			if err != nil {
				return err
			}
			e := snooze.New(cfg, logger, snooze.WithSinks(sinks...))
			return e.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&o.addr, "addr", "", "admin API listen address (overrides config)")
	top.AddCommand(cmd)
}

func addList(top *cobra.Command, o *rootOptions) {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List snoozed items from the store, soonest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, kv, closeFn, err := o.openStore()
			if err != nil {
				return err
			}
			defer closeFn()
			items, err := snooze.ListStore(cmd.Context(), kv, cfg.Engine, time.Now())
			if err != nil {
				return err
			}
			printItems(color.Output, items)
			return nil
		},
	}
	top.AddCommand(cmd)
}

func printItems(w io.Writer, items []snooze.ItemView) {
	if len(items) == 0 {
		fmt.Fprintln(w, "nothing snoozed")
		return
	}
	bold := color.New(color.Bold).SprintFunc()
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold("ID"), bold("Wakes"), bold("Urgency"))
	for _, it := range items {
		tbl.AddRow(it.ID, it.Date, urgencyColor(it.Urgency)(fmt.Sprintf("%3.0f%%", it.Urgency*100)))
	}
	fmt.Fprintln(w, tbl)
}

func urgencyColor(u float64) func(a ...interface{}) string {
	switch {
	case u >= 0.8:
		return color.New(color.FgRed).SprintFunc()
	case u >= 0.4:
		return color.New(color.FgYellow).SprintFunc()
	default:
		return color.New(color.FgGreen).SprintFunc()
	}
}

func addExport(top *cobra.Command, o *rootOptions) {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every stored entry in the export file format",
		Example: `
snooze export --store sqlite --store-path snooze.db -o ` + snooze.ExportFileName + `
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, kv, closeFn, err := o.openStore()
			if err != nil {
				return err
			}
			defer closeFn()
			data, err := snooze.ExportStore(cmd.Context(), kv)
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			return os.WriteFile(out, data, 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	top.AddCommand(cmd)
}

func addImport(top *cobra.Command, o *rootOptions) {
	var filter string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load an export file into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, kv, closeFn, err := o.openStore()
			if err != nil {
				return err
			}
			defer closeFn()
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if filter == "" {
				filter = cfg.Engine.ImportFilter
			}
			rep, err := snooze.ImportStore(cmd.Context(), kv, data, filter)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "imported %d entries\n", len(rep.Written))
			if len(rep.Rejected) > 0 {
				fmt.Fprintf(w, "rejected %d: %v\n", len(rep.Rejected), rep.Rejected)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "key filter: strict or open (default from config)")
	top.AddCommand(cmd)
}

func addRender(top *cobra.Command, o *rootOptions) {
	var out string
	cmd := &cobra.Command{
		Use:   "render <page.html>",
		Short: "Decorate a saved dashboard page without a browser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, kv, closeFn, err := o.openStore()
			if err != nil {
				return err
			}
			defer closeFn()
			in, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			res, err := snooze.RenderFile(cmd.Context(), cfg, kv, in, w, time.Now(), o.logger())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d links, %d decorated, %d skipped, %d snoozed\n",
				res.Seen, res.Attached, res.Skipped, res.Snoozed)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	top.AddCommand(cmd)
}

func addHistory(top *cobra.Command, o *rootOptions) {
	var (
		path  string
		item  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded snooze and wake transitions, newest first",
		Example: `
snooze history --journal journal.db
snooze history --config snooze.yaml --item T123
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				cfg, err := o.config()
				if err != nil {
					return err
				}
				for _, s := range cfg.Sinks {
					if s.Type == "journal" {
						path = s.Path
						break
					}
				}
			}
			if path == "" {
				return errors.New("no journal: pass --journal or configure a journal sink")
			}
			j, err := snooze.OpenJournal(path)
			if err != nil {
				return err
			}
			defer j.Close()
			ts, err := j.Query(cmd.Context(), snooze.JournalFilter{ItemID: item, Limit: limit})
			if err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), ts)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "journal", "", "journal file (default: first journal sink in config)")
	cmd.Flags().StringVar(&item, "item", "", "only this item")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows")
	top.AddCommand(cmd)
}

func printHistory(w io.Writer, ts []snooze.Transition) {
	if len(ts) == 0 {
		fmt.Fprintln(w, "no transitions recorded")
		return
	}
	bold := color.New(color.Bold).SprintFunc()
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold("When"), bold("Item"), bold("Event"), bold("Date"), bold("Snoozed"))
	for _, t := range ts {
		kind := color.New(color.FgCyan).Sprint(t.Kind)
		if t.Kind == snooze.KindWoken {
			kind = color.New(color.FgYellow).Sprint(t.Kind)
		}
		when := time.UnixMilli(t.Timestamp).Format("2006-01-02 15:04")
		tbl.AddRow(when, t.ItemID, kind, t.Date, t.Snoozed)
	}
	fmt.Fprintln(w, tbl)
}

func addHashPassword(top *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for http.password_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := shield.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
	top.AddCommand(cmd)
}

func addVersion(top *cobra.Command) {
	top.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), snooze.Version)
		},
	})
}
