// Threadsaver captures Threads posts' official embed codes alongside
// their extracted content, and manages the saved collection.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"threadsaver/apperr"
	"threadsaver/article"
	"threadsaver/browser"
	"threadsaver/config"
	"threadsaver/export"
	"threadsaver/refresh"
	"threadsaver/store"
)

func main() {
	cmd := &cli.Command{
		Name:  "threadsaver",
		Usage: "Save Threads posts' embed codes with extracted content, tags and code blocks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Sources: cli.EnvVars("THREADSAVER_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "yes",
				Usage: "Skip confirmation prompts",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "watch",
				Usage:  "Open the Threads feed and save posts as you click 'Get embed code'",
				Action: runWatch,
			},
			{
				Name:   "list",
				Usage:  "List saved articles, newest first",
				Action: runList,
			},
			{
				Name:      "search",
				Usage:     "Search saved articles",
				ArgsUsage: "<term>",
				Action:    runSearch,
			},
			{
				Name:      "show",
				Usage:     "Show one article in full",
				ArgsUsage: "<id>",
				Action:    runShow,
			},
			{
				Name:      "delete",
				Usage:     "Delete one article",
				ArgsUsage: "<id>",
				Action:    runDelete,
			},
			{
				Name:   "clear",
				Usage:  "Delete every saved article",
				Action: runClear,
			},
			{
				Name:  "export",
				Usage: "Export the collection as a JS embed-code file",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "full", Usage: "Export full records instead of embed codes only"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file (default: stdout)"},
				},
				Action: runExport,
			},
			{
				Name:      "import",
				Usage:     "Import a previously exported .js or .json file",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "replace", Usage: "Discard the current collection instead of merging"},
				},
				Action: runImport,
			},
			{
				Name:   "refresh",
				Usage:  "Revisit every saved post and refresh timestamps and missing content",
				Action: runRefresh,
			},
			{
				Name:      "regenerate",
				Usage:     "Rebuild embed codes from permalinks (one article, or all)",
				ArgsUsage: "[id]",
				Action:    runRegenerate,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		slog.Error("threadsaver failed", "error", err)
		os.Exit(1)
	}
}

// setup loads config, wires logging and builds the store. The returned
// path is non-empty for file-backed stores (used by the session watcher),
// and cleanup releases backend resources.
func setup(cmd *cli.Command) (config.Config, *store.Store, string, func(), error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return cfg, nil, "", nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)

	cleanup := func() {}
	var kv store.KV
	var storePath string

	switch cfg.Storage.Backend {
	case "sqlite":
		path := cfg.Storage.Path
		if path == "" {
			dir, err := store.DefaultDir()
			if err != nil {
				return cfg, nil, "", nil, err
			}
			path = filepath.Join(dir, "threadsaver.db")
			if err := os.MkdirAll(dir, 0755); err != nil {
				return cfg, nil, "", nil, err
			}
		}
		sq, err := store.OpenSQLiteKV(path)
		if err != nil {
			return cfg, nil, "", nil, err
		}
		kv = sq
		cleanup = func() { sq.Close() }
	default:
		dir := cfg.Storage.Path
		if dir == "" {
			d, err := store.DefaultDir()
			if err != nil {
				return cfg, nil, "", nil, err
			}
			dir = d
		}
		fileKV := store.NewFileKV(dir)
		kv = fileKV
		storePath = fileKV.Path(store.ArticlesKey)
	}

	if !kv.Available() {
		cleanup()
		return cfg, nil, "", nil, fmt.Errorf("opening storage: %w", apperr.ErrUnavailable)
	}

	return cfg, store.New(kv, logger), storePath, cleanup, nil
}

func logLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// confirm asks before a destructive action unless --yes was given.
func confirm(cmd *cli.Command, prompt string) bool {
	if cmd.Bool("yes") {
		return true
	}
	fmt.Printf("%s [y/N] ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func runWatch(ctx context.Context, cmd *cli.Command) error {
	cfg, st, storePath, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	session := browser.NewSession(cfg, st, slog.Default())
	session.StorePath = storePath
	fmt.Println("Watching the Threads feed; click 'Get embed code' on a post to save it. Ctrl-C to stop.")
	return session.Run(ctx)
}

func runList(ctx context.Context, cmd *cli.Command) error {
	_, st, _, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	articles, err := st.All(ctx)
	if err != nil {
		return err
	}
	printArticles(articles)
	return nil
}

func runSearch(ctx context.Context, cmd *cli.Command) error {
	term := cmd.Args().First()
	if term == "" {
		return errors.New("usage: threadsaver search <term>")
	}
	_, st, _, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	articles, err := st.Search(ctx, term)
	if err != nil {
		return err
	}
	printArticles(articles)
	return nil
}

func runShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return errors.New("usage: threadsaver show <id>")
	}
	_, st, _, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	a, err := st.Get(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("%s  %s\n", a.Author, a.PostLink)
	if a.Timestamp != "" {
		fmt.Printf("posted:  %s", a.Timestamp)
		if a.TimestampTitle != "" {
			fmt.Printf(" (%s)", a.TimestampTitle)
		}
		fmt.Println()
	}
	fmt.Printf("saved:   %s\n", a.SavedAt)
	if a.LastUpdated != "" {
		fmt.Printf("embed regenerated: %s\n", a.LastUpdated)
	}
	if a.TimestampUpdatedAt != "" {
		fmt.Printf("refreshed: %s\n", a.TimestampUpdatedAt)
	}
	if len(a.Tags) > 0 {
		fmt.Printf("tags:    %s\n", strings.Join(a.Tags, ", "))
	}
	if a.Content != "" {
		fmt.Printf("\n%s\n", a.Content)
	}
	for _, b := range a.CodeBlocks {
		fmt.Printf("\n--- %s (block %d, %s) ---\n%s\n", strings.ToUpper(b.Language), b.Index, b.Type, b.Code)
	}
	fmt.Printf("\n%s\n", a.EmbedCode)
	return nil
}

func runDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return errors.New("usage: threadsaver delete <id>")
	}
	_, st, _, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if !confirm(cmd, "Delete this article?") {
		return nil
	}
	if err := st.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Println("Deleted.")
	return nil
}

func runClear(ctx context.Context, cmd *cli.Command) error {
	_, st, _, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	articles, err := st.All(ctx)
	if err != nil {
		return err
	}
	if len(articles) == 0 {
		fmt.Println("Nothing to clear.")
		return nil
	}
	if !confirm(cmd, fmt.Sprintf("Delete all %d articles? This cannot be undone.", len(articles))) {
		return nil
	}
	if err := st.Clear(ctx); err != nil {
		return err
	}
	fmt.Println("Cleared.")
	return nil
}

func runExport(ctx context.Context, cmd *cli.Command) error {
	_, st, _, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	articles, err := st.All(ctx)
	if err != nil {
		return err
	}
	if len(articles) == 0 {
		return errors.New("nothing to export")
	}

	out := os.Stdout
	if path := cmd.String("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	if cmd.Bool("full") {
		return export.Full(out, articles)
	}
	return export.Simple(out, articles)
}

func runImport(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return errors.New("usage: threadsaver import <file>")
	}
	_, st, _, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	articles, err := export.Import(f, path)
	if err != nil {
		return err
	}

	if cmd.Bool("replace") {
		if !confirm(cmd, fmt.Sprintf("Replace the current collection with %d imported articles?", len(articles))) {
			return nil
		}
		res, err := export.ReplaceAll(ctx, st, articles)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d articles (%d dropped).\n", res.Added, res.Skipped)
		return nil
	}

	res, err := export.Merge(ctx, st, articles)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d new articles, skipped %d.\n", res.Added, res.Skipped)
	return nil
}

func runRefresh(ctx context.Context, cmd *cli.Command) error {
	cfg, st, _, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	articles, err := st.All(ctx)
	if err != nil {
		return err
	}
	if len(articles) == 0 {
		fmt.Println("Nothing to refresh.")
		return nil
	}
	if !confirm(cmd, fmt.Sprintf("Revisit all %d saved posts?", len(articles))) {
		return nil
	}

	runner := browser.NewRunner(cfg, slog.Default())
	defer runner.Close()

	o := refresh.New(st, runner, slog.Default())
	o.Progress = func(done, total int) {
		fmt.Printf("\r%d/%d", done, total)
	}
	res, err := o.RefreshAll(ctx)
	fmt.Println()
	if err != nil {
		return err
	}
	fmt.Printf("Done. Success: %d, failed: %d.\n", res.Success, res.Fail)
	return nil
}

func runRegenerate(ctx context.Context, cmd *cli.Command) error {
	_, st, _, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	o := refresh.New(st, nil, slog.Default())

	if id := cmd.Args().First(); id != "" {
		if err := o.Regenerate(ctx, id); err != nil {
			return err
		}
		fmt.Println("Embed code regenerated.")
		return nil
	}

	articles, err := st.All(ctx)
	if err != nil {
		return err
	}
	if len(articles) == 0 {
		fmt.Println("Nothing to regenerate.")
		return nil
	}
	if !confirm(cmd, fmt.Sprintf("Regenerate embed codes for all %d articles?", len(articles))) {
		return nil
	}
	res, err := o.RegenerateAll(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Done. Success: %d, failed: %d.\n", res.Success, res.Fail)
	return nil
}

func printArticles(articles []article.Article) {
	if len(articles) == 0 {
		fmt.Println("No saved articles.")
		return
	}
	for _, a := range articles {
		summary := strings.ReplaceAll(a.Content, "\n", " ")
		if len(summary) > 80 {
			summary = summary[:80] + "..."
		}
		line := fmt.Sprintf("%s  %-16s %s", a.ID, timeAgo(a.SavedAt), a.Author)
		if len(a.Tags) > 0 {
			line += "  [" + strings.Join(a.Tags, " ") + "]"
		}
		fmt.Println(line)
		if summary != "" {
			fmt.Printf("    %s\n", summary)
		}
		fmt.Printf("    %s\n", a.PostLink)
	}
	fmt.Printf("%d articles\n", len(articles))
}

// timeAgo renders a saved-at timestamp as a relative age.
func timeAgo(iso string) string {
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return iso
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
	return t.Format("Jan 2, 2006")
}
