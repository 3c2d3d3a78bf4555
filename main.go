package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/arcdesk/docbot/api"
	"github.com/arcdesk/docbot/bot"
	"github.com/arcdesk/docbot/chat"
	"github.com/arcdesk/docbot/config"
	"github.com/arcdesk/docbot/database"
	"github.com/arcdesk/docbot/embeddings"
	"github.com/arcdesk/docbot/ingestion"
	"github.com/arcdesk/docbot/llm"
	"github.com/arcdesk/docbot/logging"
	"github.com/arcdesk/docbot/session"
	"github.com/arcdesk/docbot/storage"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	switch os.Args[1] {
	case "serve":
		serveCmd(cfg, logger)
	case "chat":
		chatCmd(cfg, logger, os.Args[2:])
	case "grant":
		grantCmd(cfg, logger, os.Args[2:])
	default:
		logger.Error("unknown command", zap.String("command", os.Args[1]))
		printUsage()
		os.Exit(1)
	}
}

func serveCmd(cfg config.Config, logger *zap.Logger) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	assistant, pool := buildBot(ctx, cfg, logger)
	defer pool.Close()

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      api.New(assistant, logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", cfg.ListenAddr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("serve", zap.Error(err))
	}
}

func chatCmd(cfg config.Config, logger *zap.Logger, args []string) {
	flags := flag.NewFlagSet("chat", flag.ExitOnError)
	userID := flags.Int64("user", 1, "user id for this terminal session")
	userName := flags.String("name", "terminal user", "user name for this terminal session")
	if err := flags.Parse(args); err != nil {
		logger.Fatal("parse chat flags", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	assistant, pool := buildBot(ctx, cfg, logger)
	defer pool.Close()

	fmt.Println("Type /start to begin, /folder to set a document folder, or any question. Ctrl-D exits.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		reply := assistant.Handle(ctx, terminalEvent(*userID, *userName, line))
		fmt.Println(reply.Text)
		if len(reply.Citations) > 0 {
			fmt.Println("\nReferences:")
			for _, source := range reply.Citations {
				fmt.Printf("Document: %s\n", source)
			}
		}
		fmt.Println()
	}
	if err := scanner.Err(); err != nil {
		logger.Fatal("read input", zap.Error(err))
	}
}

func grantCmd(cfg config.Config, logger *zap.Logger, args []string) {
	flags := flag.NewFlagSet("grant", flag.ExitOnError)
	userID := flags.Int64("user", 0, "user id to grant access to")
	if err := flags.Parse(args); err != nil {
		logger.Fatal("parse grant flags", zap.Error(err))
	}
	if *userID == 0 {
		logger.Fatal("grant requires --user")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("postgres connection", zap.Error(err))
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal("ensure schema", zap.Error(err))
	}

	store := storage.NewPostgresStore(pool, logger)
	if err := store.GrantAccess(ctx, *userID); err != nil {
		logger.Fatal("grant access", zap.Error(err))
	}
	logger.Info("access granted", zap.Int64("user_id", *userID))
}

func buildBot(ctx context.Context, cfg config.Config, logger *zap.Logger) (*bot.Bot, *pgxpool.Pool) {
	pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("postgres connection", zap.Error(err))
	}

	if err := database.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal("ensure schema", zap.Error(err))
	}

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		logger.Fatal("embedder setup", zap.Error(err))
	}

	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		logger.Fatal("llm setup", zap.Error(err))
	}

	store := storage.NewPostgresStore(pool, logger)
	loader := ingestion.NewLoader(logger)
	chatSvc := chat.NewService(llmClient, logger, cfg.Corpus.RetrieverK)
	sessions := session.NewStore()

	return bot.New(cfg, sessions, store, loader, embedder, chatSvc, bot.LocalFolders{}, logger), pool
}

func terminalEvent(userID int64, userName, line string) bot.Event {
	event := bot.Event{UserID: userID, UserName: userName, Text: line}
	if strings.HasPrefix(line, "/") {
		parts := strings.SplitN(strings.TrimPrefix(line, "/"), " ", 2)
		event.Command = bot.Command(parts[0])
		if len(parts) > 1 {
			event.Text = strings.TrimSpace(parts[1])
		} else {
			event.Text = ""
		}
	}
	return event
}

func printUsage() {
	fmt.Println("Usage: docbot <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  serve    Run the HTTP transport")
	fmt.Println("  chat     Talk to the assistant from the terminal")
	fmt.Println("  grant    Grant a user access (--user <id>)")
}
