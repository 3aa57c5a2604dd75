// Package app wires the assistant together and runs the interactive REPL.
package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"

	"aide/internal/approval"
	"aide/internal/audit"
	"aide/internal/brain"
	"aide/internal/client"
	"aide/internal/commands"
	"aide/internal/config"
	"aide/internal/logging"
	"aide/internal/memory"
	"aide/internal/router"
	"aide/internal/semantic"
	"aide/internal/store"
	"aide/internal/tools"
	"aide/internal/trainer"
)

var (
	promptColor = color.New(color.FgGreen, color.Bold)
	replyColor  = color.New(color.FgCyan, color.Bold)
	dimColor    = color.New(color.Faint)
	errColor    = color.New(color.FgRed)
	okColor     = color.New(color.FgGreen)
)

// App holds the assembled application.
type App struct {
	cfg      *config.Config
	store    *store.SQLiteStore
	client   client.Client
	search   *semantic.Index
	brain    *brain.Brain
	trainer  *trainer.Trainer
	handler  *commands.Handler
	renderer *glamour.TermRenderer

	quit bool
}

// New wires up the store, model client, tools, governance, and brain.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := logging.EnableFileLogging(config.ConfigDir(), logging.ParseLevel(cfg.Logging.Level)); err != nil {
		logging.Warn("file logging unavailable", "error", err)
	}

	s, err := store.NewSQLiteStore(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	if err := router.Seed(ctx, s, cfg.Tools); err != nil {
		s.Close()
		return nil, fmt.Errorf("seeding tool registry: %w", err)
	}

	if n, err := s.CleanupExpiredMemories(ctx); err != nil {
		logging.Warn("expired memory cleanup failed", "error", err)
	} else if n > 0 {
		logging.Info("cleaned up expired memories", "count", n)
	}

	mc, err := client.New(ctx, cfg)
	if err != nil {
		s.Close()
		return nil, err
	}

	search := buildIndex(s, mc, cfg)
	registry := tools.DefaultRegistry(cfg, s, search)

	gate := approval.NewGate(s, &terminalDecisionProvider{in: bufio.NewReader(os.Stdin)}, cfg.Assistant.User)
	b := brain.New(brain.Options{
		Store:        s,
		Client:       mc,
		Registry:     registry,
		Router:       router.NewRouter(s),
		Gate:         gate,
		Trail:        audit.NewTrail(s),
		Assembler:    memory.NewAssembler(s, search),
		SystemPrompt: cfg.Assistant.SystemPrompt,
		User:         cfg.Assistant.User,
	})

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		logging.Warn("markdown renderer unavailable", "error", err)
	}

	return &App{
		cfg:      cfg,
		store:    s,
		client:   mc,
		search:   search,
		brain:    b,
		trainer:  trainer.New(s, search),
		handler:  commands.NewHandler(),
		renderer: renderer,
	}, nil
}

// buildIndex creates the semantic index. Only the Gemini provider exposes
// an embedding API; everywhere else the index stays unavailable and recall
// degrades to keyword search.
func buildIndex(s *store.SQLiteStore, mc client.Client, cfg *config.Config) *semantic.Index {
	if !cfg.Semantic.Enabled {
		return semantic.NewIndex(s, nil, 0)
	}

	gc, ok := mc.(*client.GeminiClient)
	if !ok {
		logging.Warn("semantic search requires the gemini provider", "provider", cfg.API.GetActiveProvider())
		return semantic.NewIndex(s, nil, 0)
	}

	embedder := semantic.NewEmbedder(gc.Raw(), cfg.Semantic.Model)
	return semantic.NewIndex(s, embedder, cfg.Semantic.MinScore)
}

// Close releases all resources.
func (a *App) Close() {
	if a.brain.ConversationID() != "" {
		if err := a.brain.EndConversation(context.Background()); err != nil {
			logging.Warn("closing conversation failed", "error", err)
		}
	}
	if err := a.client.Close(); err != nil {
		logging.Warn("closing model client failed", "error", err)
	}
	if err := a.store.Close(); err != nil {
		logging.Warn("closing store failed", "error", err)
	}
	logging.Close()
}

// Run starts the interactive loop and blocks until /quit, EOF, or an
// interrupt. Signals only cancel the loop context, checked at the turn
// boundary; teardown stays with the caller's deferred Close so the store
// is never closed under an in-flight write.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.run(ctx, os.Stdin)
}

func (a *App) run(ctx context.Context, in io.Reader) error {
	a.printBanner()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		scanErr <- scanner.Err()
		close(lines)
	}()

	for !a.quit {
		fmt.Println()
		promptColor.Printf("%s → ", a.cfg.Assistant.User)

		var input string
		select {
		case <-ctx.Done():
			fmt.Println()
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-scanErr
			}
			input = strings.TrimSpace(line)
		}
		if input == "" {
			continue
		}

		if name, args, ok := a.handler.Parse(input); ok {
			out, err := a.handler.Execute(ctx, name, args, a)
			if err != nil {
				errColor.Print("Error: ")
				fmt.Println(err)
				continue
			}
			okColor.Println(out)
			continue
		}

		if strings.HasPrefix(input, "/") {
			errColor.Print("Error: ")
			fmt.Printf("unknown command %s. Type /help for commands.\n", input)
			continue
		}

		dimColor.Println("  thinking...")
		answer, err := a.brain.HandleTurn(ctx, input)
		if err != nil {
			errColor.Print("Error: ")
			fmt.Println(err)
			continue
		}

		fmt.Println()
		replyColor.Print("Aide: ")
		fmt.Println(a.renderMarkdown(answer))
	}

	return nil
}

func (a *App) renderMarkdown(text string) string {
	if a.renderer == nil {
		return text
	}
	rendered, err := a.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimSpace(rendered)
}

func (a *App) printBanner() {
	replyColor.Println("Aide — conversations, semantic memory, approvals")
	dimColor.Printf("  model: %s", a.client.ModelName())
	if a.search.Available() {
		dimColor.Print(" | semantic recall: on")
	}
	dimColor.Println("\n  Type /help for commands, /quit to exit")
}

// GetStore implements commands.AppInterface.
func (a *App) GetStore() *store.SQLiteStore { return a.store }

// GetBrain implements commands.AppInterface.
func (a *App) GetBrain() *brain.Brain { return a.brain }

// GetTrainer implements commands.AppInterface.
func (a *App) GetTrainer() *trainer.Trainer { return a.trainer }

// GetSearch implements commands.AppInterface.
func (a *App) GetSearch() *semantic.Index { return a.search }

// RequestQuit implements commands.AppInterface.
func (a *App) RequestQuit() { a.quit = true }
