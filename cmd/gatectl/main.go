// Command gatectl runs operator tasks against a notiongate deployment.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/notiongate/notiongate/cmd/gatectl/cli"
	"github.com/notiongate/notiongate/internal/app"
	"github.com/notiongate/notiongate/internal/auth"
	"github.com/notiongate/notiongate/internal/content"
	jobmetrics "github.com/notiongate/notiongate/internal/jobs"
	"github.com/notiongate/notiongate/internal/platform/cache"
	"github.com/notiongate/notiongate/internal/platform/db"
	"github.com/notiongate/notiongate/jobs"
)

const usage = `usage: gatectl <command> [flags]

commands:
  migrate                 apply Postgres migrations
  hash-password           print the bcrypt hash of --password or stdin
  create-user             register a user with a generated password
  enqueue-contact-sync    queue a contact for marketing delivery
  queue-stats             print contact sync queue statistics
  purge-content           invalidate the content cache
`

func main() {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], cli.Streams{Stdout: os.Stdout, Stderr: os.Stderr, Stdin: os.Stdin})
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, streams cli.Streams) int {
	if len(args) == 0 {
		fmt.Fprint(streams.Stderr, usage)
		return 2
	}
	command, rest := args[0], args[1:]
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(streams.Stderr)

	switch command {
	case "hash-password":
		password := fs.String("password", "", "plaintext password, read from stdin when empty")
		cost := fs.Int("cost", auth.DefaultPasswordCost, "bcrypt cost")
		if err := fs.Parse(rest); err != nil {
			return 2
		}
		service := auth.NewService(nil, auth.WithPasswordCost(*cost))
		return cli.HashPasswordCommand(service, *password, streams)
	case "migrate", "create-user", "enqueue-contact-sync", "queue-stats", "purge-content":
	default:
		fmt.Fprintf(streams.Stderr, "gatectl: unknown command %q\n\n%s", command, usage)
		return 2
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(streams.Stderr, "gatectl: load config: %v\n", err)
		return 1
	}
	logger := slog.New(slog.NewTextHandler(streams.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	redisOpts := cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}

	switch command {
	case "migrate":
		if err := fs.Parse(rest); err != nil {
			return 2
		}
		return cli.MigrateCommand(ctx, db.Migrate, cfg.PGDSN, streams)

	case "create-user":
		name := fs.String("name", "", "full name")
		email := fs.String("email", "", "email address")
		notify := fs.Bool("notify", false, "deliver credentials through the configured marketing channel")
		if err := fs.Parse(rest); err != nil {
			return 2
		}
		repo, closeRepo, err := openRepository(ctx, cfg)
		if err != nil {
			fmt.Fprintf(streams.Stderr, "create-user: %v\n", err)
			return 1
		}
		defer closeRepo()
		var hook auth.SignupHook
		if *notify {
			sink, err := app.NewMarketingSink(cfg, logger)
			if err != nil {
				fmt.Fprintf(streams.Stderr, "create-user: %v\n", err)
				return 1
			}
			hook = app.InlineSignupHook(sink)
		}
		users := cli.NewUsersCLI(repo, hook, auth.WithLogger(logger))
		return users.CreateCommand(ctx, cli.CreateUserOptions{Name: *name, Email: *email, Streams: streams})

	case "enqueue-contact-sync", "queue-stats":
		opts := cli.ContactSyncOptions{Streams: streams}
		if command == "enqueue-contact-sync" {
			fs.StringVar(&opts.Name, "name", "", "full name")
			fs.StringVar(&opts.Email, "email", "", "email address")
			fs.StringVar(&opts.Password, "password", "", "credential to deliver")
		}
		if err := fs.Parse(rest); err != nil {
			return 2
		}
		client := jobs.NewClient(redisOpts.AsynqOpts(), jobmetrics.NewMetrics(nil))
		defer func() {
			_ = client.Close()
		}()
		helper := cli.NewJobsCLI(client, asynq.NewInspector(redisOpts.AsynqOpts()))
		defer func() {
			_ = helper.Close()
		}()
		if command == "queue-stats" {
			return helper.QueueStatsCommand(streams)
		}
		return helper.ContactSyncCommand(ctx, opts)

	case "purge-content":
		if err := fs.Parse(rest); err != nil {
			return 2
		}
		client, err := cache.New(ctx, redisOpts)
		if err != nil {
			fmt.Fprintf(streams.Stderr, "purge-content: %v\n", err)
			return 1
		}
		defer func() {
			_ = client.Close()
		}()
		return cli.PurgeContentCommand(ctx, content.NewCache(client, cfg.ContentCacheTTL), streams)
	}
	return 2
}

func openRepository(ctx context.Context, cfg *app.Config) (auth.Repository, func(), error) {
	if cfg.StoreDriver == app.StorePostgres {
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, err
		}
		return auth.NewPostgresRepository(pool), pool.Close, nil
	}
	repo := auth.NewNotionRepository(app.NewNotionClient(cfg), cfg.NotionDatabaseID)
	return repo, func() {}, nil
}
