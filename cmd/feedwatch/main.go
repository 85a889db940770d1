// Command feedwatch tails on-chain social views from a terminal: the global
// feed, one author's posts, a conversation or a comment thread, kept fresh
// by polling. It also submits fire-and-forget write commands (post, dm,
// like, follow, delete) and shows the locally tallied trending tags.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bitbuzz-project/web3social-sub000/internal/config"
	"github.com/bitbuzz-project/web3social-sub000/internal/feed"
	"github.com/bitbuzz-project/web3social-sub000/internal/index"
	"github.com/bitbuzz-project/web3social-sub000/internal/index/postgres"
	"github.com/bitbuzz-project/web3social-sub000/internal/model"
	"github.com/bitbuzz-project/web3social-sub000/internal/source/gateway"
	"github.com/bitbuzz-project/web3social-sub000/internal/source/jsonrpc"
	"github.com/bitbuzz-project/web3social-sub000/internal/telemetry"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage:
  feedwatch tail      [-window feed|author|dm|thread] [-author A] [-self S] [-peer P] [-parent N] [-q QUERY] [-collection C]
  feedwatch post      -text TEXT
  feedwatch dm        -to ADDR -text TEXT
  feedwatch like      -id N [-undo]
  feedwatch follow    -account ADDR [-undo]
  feedwatch markread  -id N
  feedwatch edit      -id N -text TEXT
  feedwatch delete    -id N
  feedwatch trending  [-n 10]
`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cmdErr error
	switch os.Args[1] {
	case "tail":
		cmdErr = runTail(ctx, cfg, logger, os.Args[2:])
	case "post":
		cmdErr = runPost(ctx, cfg, logger, os.Args[2:])
	case "dm":
		cmdErr = runDM(ctx, cfg, logger, os.Args[2:])
	case "like":
		cmdErr = runLike(ctx, cfg, logger, os.Args[2:])
	case "follow":
		cmdErr = runFollow(ctx, cfg, logger, os.Args[2:])
	case "markread":
		cmdErr = runMarkRead(ctx, cfg, logger, os.Args[2:])
	case "edit":
		cmdErr = runEdit(ctx, cfg, logger, os.Args[2:])
	case "delete":
		cmdErr = runDelete(ctx, cfg, logger, os.Args[2:])
	case "trending":
		cmdErr = runTrending(ctx, cfg, os.Args[2:])
	default:
		usage()
	}
	if cmdErr != nil {
		fmt.Fprintln(os.Stderr, "feedwatch:", cmdErr)
		os.Exit(1)
	}
}

func runTail(ctx context.Context, cfg config.Config, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("tail", flag.ExitOnError)
	windowKind := fs.String("window", "feed", "feed|author|dm|thread")
	author := fs.String("author", "", "author account (window=author)")
	self := fs.String("self", "", "own account (window=dm)")
	peer := fs.String("peer", "", "peer account (window=dm)")
	parent := fs.Int64("parent", 0, "parent record id (window=thread)")
	query := fs.String("q", "", "search text, or #tag")
	collection := fs.String("collection", "posts", "ledger collection")
	interval := fs.Duration("interval", cfg.PollInterval, "poll interval")
	_ = fs.Parse(args)

	w, err := parseWindow(*windowKind, *author, *self, *peer, *parent)
	if err != nil {
		return err
	}
	if *collection == "posts" && w.Kind == model.ByConversation {
		*collection = "messages"
	}

	src := jsonrpc.New(cfg.NodeEndpoint, *collection, logger)
	blobs := gateway.New(cfg.GatewayURL, logger)

	var idx index.Index
	if cfg.IndexDSN != "" {
		db, err := postgres.New(ctx, cfg.IndexDSN)
		if err != nil {
			logger.Warn("index shortcuts disabled", zap.Error(err))
		} else {
			defer db.Close()
			idx = postgres.NewIndexRepo(db)
		}
	}

	var trending feed.TagCounter
	if cfg.TelemetryPath != "" {
		counter, err := telemetry.Open(cfg.TelemetryPath)
		if err != nil {
			logger.Warn("trending disabled", zap.Error(err))
		} else {
			defer counter.Close()
			trending = counter
		}
	}

	d := feed.NewDriver(feed.DriverConfig{
		Window:   w,
		Source:   src,
		Blobs:    blobs,
		Index:    idx,
		Logger:   logger,
		Interval: *interval,
		PageSize: cfg.PageSize,
		Trending: trending,
		OnApply:  func(view []model.Record) { render(ctx, blobs, view) },
	})
	if *query != "" {
		d.Loader().SetQuery(*query)
	}

	fmt.Printf("tailing %s every %s (ctrl-c to stop)\n", *windowKind, *interval)
	if err := d.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func parseWindow(kind, author, self, peer string, parent int64) (model.Window, error) {
	switch kind {
	case "feed":
		return model.MostRecentWindow(), nil
	case "author":
		if author == "" {
			return model.Window{}, fmt.Errorf("window=author needs -author")
		}
		return model.AuthorWindow(author), nil
	case "dm":
		if self == "" || peer == "" {
			return model.Window{}, fmt.Errorf("window=dm needs -self and -peer")
		}
		return model.ConversationWindow(self, peer), nil
	case "thread":
		if parent <= 0 {
			return model.Window{}, fmt.Errorf("window=thread needs -parent")
		}
		return model.ThreadWindow(parent), nil
	}
	return model.Window{}, fmt.Errorf("unknown window %q", kind)
}

// render prints the visible view, newest entries as the enumerator ordered
// them. Bodies are best effort: an unreachable blob prints as its ref.
func render(ctx context.Context, blobs *gateway.Store, view []model.Record) {
	fmt.Printf("---- %s (%d items) ----\n", time.Now().Format(time.TimeOnly), len(view))
	for _, r := range view {
		body := ""
		if r.ContentRef != "" {
			text, err := blobs.Get(ctx, r.ContentRef)
			if err != nil {
				text = "<" + r.ContentRef + ">"
			}
			body = strings.TrimSpace(text)
		}
		ts := time.Unix(r.CreatedAt, 0).Format("01-02 15:04")
		fmt.Printf("#%-5d %s  %s  %s  (%d likes)\n", r.ID, ts, short(r.Author), body, r.Likes)
	}
}

func short(account string) string {
	if len(account) <= 10 {
		return account
	}
	return account[:6] + ".." + account[len(account)-4:]
}

func runPost(ctx context.Context, cfg config.Config, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("post", flag.ExitOnError)
	text := fs.String("text", "", "post body")
	collection := fs.String("collection", "posts", "ledger collection")
	_ = fs.Parse(args)
	if *text == "" {
		return fmt.Errorf("post needs -text")
	}

	blobs := gateway.New(cfg.GatewayURL, logger)
	key, err := blobs.Put(ctx, *text)
	if err != nil {
		return fmt.Errorf("store body: %w", err)
	}
	if err := jsonrpc.New(cfg.NodeEndpoint, *collection, logger).CreatePost(ctx, key); err != nil {
		return fmt.Errorf("submit post: %w", err)
	}
	fmt.Println("submitted, body at", key)
	return nil
}

func runDM(ctx context.Context, cfg config.Config, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("dm", flag.ExitOnError)
	to := fs.String("to", "", "recipient account")
	text := fs.String("text", "", "message body")
	_ = fs.Parse(args)
	if *to == "" || *text == "" {
		return fmt.Errorf("dm needs -to and -text")
	}

	blobs := gateway.New(cfg.GatewayURL, logger)
	key, err := blobs.Put(ctx, *text)
	if err != nil {
		return fmt.Errorf("store body: %w", err)
	}
	if err := jsonrpc.New(cfg.NodeEndpoint, "messages", logger).SendMessage(ctx, *to, key); err != nil {
		return fmt.Errorf("submit message: %w", err)
	}
	fmt.Println("submitted, body at", key)
	return nil
}

func runLike(ctx context.Context, cfg config.Config, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("like", flag.ExitOnError)
	id := fs.Int64("id", 0, "record id")
	undo := fs.Bool("undo", false, "remove the like instead")
	collection := fs.String("collection", "posts", "ledger collection")
	_ = fs.Parse(args)
	if *id <= 0 {
		return fmt.Errorf("like needs -id")
	}

	c := jsonrpc.New(cfg.NodeEndpoint, *collection, logger)
	if *undo {
		return c.Unlike(ctx, *id)
	}
	return c.Like(ctx, *id)
}

func runFollow(ctx context.Context, cfg config.Config, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("follow", flag.ExitOnError)
	account := fs.String("account", "", "account to follow")
	undo := fs.Bool("undo", false, "unfollow instead")
	_ = fs.Parse(args)
	if *account == "" {
		return fmt.Errorf("follow needs -account")
	}

	c := jsonrpc.New(cfg.NodeEndpoint, "accounts", logger)
	if *undo {
		return c.Unfollow(ctx, *account)
	}
	return c.Follow(ctx, *account)
}

func runMarkRead(ctx context.Context, cfg config.Config, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("markread", flag.ExitOnError)
	id := fs.Int64("id", 0, "message id")
	_ = fs.Parse(args)
	if *id <= 0 {
		return fmt.Errorf("markread needs -id")
	}
	return jsonrpc.New(cfg.NodeEndpoint, "messages", logger).MarkRead(ctx, *id)
}

func runEdit(ctx context.Context, cfg config.Config, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	id := fs.Int64("id", 0, "record id")
	text := fs.String("text", "", "replacement body")
	collection := fs.String("collection", "posts", "ledger collection")
	_ = fs.Parse(args)
	if *id <= 0 || *text == "" {
		return fmt.Errorf("edit needs -id and -text")
	}

	blobs := gateway.New(cfg.GatewayURL, logger)
	key, err := blobs.Put(ctx, *text)
	if err != nil {
		return fmt.Errorf("store body: %w", err)
	}
	if err := jsonrpc.New(cfg.NodeEndpoint, *collection, logger).Edit(ctx, *id, key); err != nil {
		return fmt.Errorf("submit edit: %w", err)
	}
	fmt.Println("submitted, new body at", key)
	return nil
}

func runDelete(ctx context.Context, cfg config.Config, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.Int64("id", 0, "record id")
	collection := fs.String("collection", "posts", "ledger collection")
	_ = fs.Parse(args)
	if *id <= 0 {
		return fmt.Errorf("delete needs -id")
	}
	return jsonrpc.New(cfg.NodeEndpoint, *collection, logger).Delete(ctx, *id)
}

func runTrending(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("trending", flag.ExitOnError)
	n := fs.Int("n", 10, "how many tags")
	_ = fs.Parse(args)

	if cfg.TelemetryPath == "" {
		return fmt.Errorf("telemetry.path is not configured")
	}
	counter, err := telemetry.Open(cfg.TelemetryPath)
	if err != nil {
		return err
	}
	defer counter.Close()

	top, err := counter.TopN(ctx, *n)
	if err != nil {
		return err
	}
	if len(top) == 0 {
		fmt.Println("no tags observed yet")
		return nil
	}
	for i, tc := range top {
		fmt.Printf("%2d. #%-20s %d\n", i+1, tc.Tag, tc.Hits)
	}
	return nil
}
