// Command repochat answers questions about a GitHub repository's code.
// It crawls a repository, chunks and embeds its files, indexes the vectors,
// and then chats over the indexed content.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/BenLus/Github-Repo-Chatbot/internal/adapters/crawler"
	"github.com/BenLus/Github-Repo-Chatbot/internal/adapters/embedding"
	"github.com/BenLus/Github-Repo-Chatbot/internal/adapters/filewatcher"
	"github.com/BenLus/Github-Repo-Chatbot/internal/adapters/llm"
	"github.com/BenLus/Github-Repo-Chatbot/internal/adapters/tokenizer"
	"github.com/BenLus/Github-Repo-Chatbot/internal/adapters/vectordb"
	"github.com/BenLus/Github-Repo-Chatbot/internal/config"
	"github.com/BenLus/Github-Repo-Chatbot/internal/domain/entities"
	"github.com/BenLus/Github-Repo-Chatbot/internal/domain/ports"
	"github.com/BenLus/Github-Repo-Chatbot/internal/domain/usecases"
	httpserver "github.com/BenLus/Github-Repo-Chatbot/internal/infrastructure/http"
)

var cli struct {
	LogLevel string `help:"Log level (debug, info, warn, error)." default:"info"`

	Serve ServeCmd `cmd:"" help:"Run the HTTP API server."`
	Index IndexCmd `cmd:"" help:"Ingest a repository and exit."`
	Chat  ChatCmd  `cmd:"" help:"Interactive chat with a repository."`
}

// ServeCmd runs the JSON API.
type ServeCmd struct {
	Addr string `help:"Listen address, overrides HTTP_ADDR." default:""`
}

// IndexCmd ingests one repository into the vector store.
type IndexCmd struct {
	URL string `arg:"" help:"Repository URL (https://github.com/owner/repo or file:///path)."`
}

// ChatCmd ingests a repository and then chats on the terminal.
type ChatCmd struct {
	URL   string `arg:"" help:"Repository URL (https://github.com/owner/repo or file:///path)."`
	Watch bool   `help:"Re-index when local files change (file:// URLs only)."`
}

type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  ports.VectorStore
	closer func() error

	process *usecases.ProcessUseCase
	chat    *usecases.ChatUseCase
}

func buildApp(cfg *config.Config, logger *slog.Logger, local bool) (*app, error) {
	tok, err := tokenizer.NewTiktoken(tokenizer.DefaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("loading tokenizer: %w", err)
	}

	chunker, err := usecases.NewChunker(tok, cfg.MaxChunkTokens, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	embedder := embedding.NewOpenAIAdapter(cfg.OpenAIKey, "", cfg.EmbeddingModel, cfg.EmbeddingDimensions, logger)

	var store ports.VectorStore
	closer := func() error { return nil }
	switch cfg.VectorBackend {
	case "postgres":
		pg, err := vectordb.NewPostgresStore(cfg.PostgresURL, cfg.EmbeddingDimensions)
		if err != nil {
			return nil, err
		}
		store, closer = pg, pg.Close
	case "memory":
		store = vectordb.NewMemoryStore()
	default:
		sq, err := vectordb.NewSQLiteStore(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		store, closer = sq, sq.Close
	}

	var generator ports.GenerationService
	if cfg.LLMProvider == "anthropic" {
		generator = llm.NewAnthropicAdapter(cfg.AnthropicKey, cfg.ChatModel)
	} else {
		generator = llm.NewOpenAIAdapter(cfg.OpenAIKey, "", cfg.ChatModel)
	}

	var source ports.RepositorySource
	if local {
		source = crawler.NewLocalCrawler(logger)
	} else {
		source = crawler.NewGitHubCrawler(logger)
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		closer:  closer,
		process: usecases.NewProcessUseCase(source, chunker, embedder, store, cfg.GitHubToken, logger),
		chat:    usecases.NewChatUseCase(embedder, store, generator, cfg.TopK),
	}, nil
}

func (a *app) newOrchestrator() *usecases.Orchestrator {
	return usecases.NewOrchestrator(a.process, a.chat, a.cfg.HistoryWindow, a.logger)
}

// ingest runs the pipeline to completion, printing progress.
func ingest(ctx context.Context, o *usecases.Orchestrator, url string) error {
	updates, err := o.ProcessRepository(ctx, url)
	if err != nil {
		return err
	}
	for st := range updates {
		if st.Stage == entities.StageFailed {
			return fmt.Errorf("pipeline failed: %s", st.Reason)
		}
		fmt.Printf("  %s\n", st.Stage)
	}
	if st := o.CurrentState(); st.Stage != entities.StageReady {
		return fmt.Errorf("pipeline ended in %s", st.Stage)
	}
	return nil
}

func (c *ServeCmd) Run(cfg *config.Config, logger *slog.Logger) error {
	a, err := buildApp(cfg, logger, false)
	if err != nil {
		return err
	}
	defer a.closer()

	addr := cfg.HTTPAddr
	if c.Addr != "" {
		addr = c.Addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := httpserver.NewServer(a.newOrchestrator, addr, logger)
	return server.Start(ctx)
}

func (c *IndexCmd) Run(cfg *config.Config, logger *slog.Logger) error {
	a, err := buildApp(cfg, logger, strings.HasPrefix(c.URL, "file://"))
	if err != nil {
		return err
	}
	defer a.closer()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	o := a.newOrchestrator()
	fmt.Printf("Indexing %s\n", c.URL)
	if err := ingest(ctx, o, c.URL); err != nil {
		return err
	}
	fmt.Printf("Ready: %s\n", o.Repository())
	return nil
}

func (c *ChatCmd) Run(cfg *config.Config, logger *slog.Logger) error {
	local := strings.HasPrefix(c.URL, "file://")
	if c.Watch && !local {
		return fmt.Errorf("--watch requires a file:// URL")
	}

	a, err := buildApp(cfg, logger, local)
	if err != nil {
		return err
	}
	defer a.closer()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	o := a.newOrchestrator()
	fmt.Printf("Indexing %s\n", c.URL)
	if err := ingest(ctx, o, c.URL); err != nil {
		return err
	}
	fmt.Printf("Ready. Ask about %s (ctrl-d to quit)\n", o.Repository())

	if c.Watch {
		if err := c.watch(ctx, o, logger); err != nil {
			return err
		}
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		answer, err := o.Ask(ctx, question)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Printf("\n%s\n\n", answer)
	}
	return scanner.Err()
}

// watch re-indexes the repository whenever a source file changes.
func (c *ChatCmd) watch(ctx context.Context, o *usecases.Orchestrator, logger *slog.Logger) error {
	watcher, err := filewatcher.NewFSNotifyWatcher(logger)
	if err != nil {
		return err
	}

	dir := strings.TrimPrefix(c.URL, "file://")
	events, err := watcher.Watch(ctx, dir)
	if err != nil {
		watcher.Stop()
		return err
	}

	go func() {
		defer watcher.Stop()
		for ev := range events {
			logger.Info("source changed, re-indexing", "path", ev.Path)
			if err := ingest(ctx, o, c.URL); err != nil {
				logger.Warn("re-index failed", "error", err)
			}
		}
	}()
	return nil
}

func main() {
	ktx := kong.Parse(&cli,
		kong.Name("repochat"),
		kong.Description("Chat with a GitHub repository's code."),
		kong.UsageOnError(),
	)

	var level slog.Level
	if err := level.UnmarshalText([]byte(cli.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	err = ktx.Run(cfg, logger)
	ktx.FatalIfErrorf(err)
}
