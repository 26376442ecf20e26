// Command parley is an interactive chat client against a remote AI proxy.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"

	"parley/internal/app"
	"parley/internal/domain"
	"parley/internal/infra/config"
	"parley/internal/infra/logger"
	"parley/internal/infra/tracer"
	"parley/internal/usecase"
)

var (
	userStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	aiStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "parley.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return err
	}
	defer shutdownTracer(context.Background())

	a, err := app.New(cfg, *configPath, log)
	if err != nil {
		return err
	}
	defer a.Close()

	go watchStatus(ctx, a)

	fmt.Println(statusStyle.Render("parley ready. Type a message, or /help for commands."))
	return repl(ctx, a)
}

// watchStatus prints backend health transitions as they happen.
func watchStatus(ctx context.Context, a *app.App) {
	for status := range a.Gateway.ObserveStatus(ctx) {
		switch s := status.(type) {
		case domain.StatusAvailable:
			fmt.Println(statusStyle.Render("[backend available: " + s.ModelVersion + "]"))
		case domain.StatusUnavailable:
			fmt.Println(statusStyle.Render("[backend unavailable: " + s.Reason + "]"))
		case domain.StatusError:
			fmt.Println(errorStyle.Render("[backend error: " + s.Cause.Error() + "]"))
		}
	}
}

func repl(ctx context.Context, a *app.App) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Print(userStyle.Render("you> "))
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := command(ctx, a, line); quit {
				return nil
			}
			continue
		}

		reply, err := a.Send.Send(ctx, line)
		printOutcome(reply, err)
	}
}

// command handles a slash command and reports whether the REPL should exit.
func command(ctx context.Context, a *app.App, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true

	case "/help":
		fmt.Println(`commands:
  /retry [id]   retry the last failed response (or the given message id)
  /clear        clear the conversation
  /status       show backend availability
  /mode <m>     switch mode (online or offline)
  /quit         exit`)

	case "/clear":
		if err := a.Store.Clear(); err != nil {
			fmt.Println(errorStyle.Render("clear: " + err.Error()))
		}

	case "/status":
		fmt.Printf("online: %v, offline: %v\n",
			a.Gateway.IsModeAvailable(domain.ModeOnline),
			a.Gateway.IsModeAvailable(domain.ModeOffline))

	case "/mode":
		if len(fields) < 2 {
			fmt.Println(errorStyle.Render("usage: /mode online|offline"))
			return false
		}
		switchMode(ctx, a, domain.Mode(fields[1]))

	case "/retry":
		id := lastFailedID(a.Store)
		if len(fields) > 1 {
			id = fields[1]
		}
		if id == "" {
			fmt.Println(errorStyle.Render("nothing to retry"))
			return false
		}
		reply, err := a.Retry.Retry(ctx, id)
		printOutcome(reply, err)

	default:
		fmt.Println(errorStyle.Render("unknown command: " + fields[0]))
	}
	return false
}

func switchMode(ctx context.Context, a *app.App, mode domain.Mode) {
	cfg, err := a.Config.Snapshot(ctx)
	if err != nil {
		fmt.Println(errorStyle.Render("config: " + err.Error()))
		return
	}
	cfg.Mode = mode
	if err := a.Config.Update(ctx, cfg); err != nil {
		fmt.Println(errorStyle.Render("mode: " + err.Error()))
		return
	}
	fmt.Println(statusStyle.Render("[mode: " + string(mode) + "]"))
}

// lastFailedID returns the id of the most recent failed assistant message.
func lastFailedID(store *usecase.Store) string {
	msgs := store.Snapshot()
	for i := len(msgs) - 1; i >= 0; i-- {
		if _, failed := msgs[i].Status.(domain.StatusFailed); failed {
			return msgs[i].ID
		}
	}
	return ""
}

func printOutcome(reply domain.Message, err error) {
	if err != nil {
		if reply.ID == "" {
			// Rejected before any message was recorded.
			fmt.Println(errorStyle.Render(err.Error()))
			return
		}
		fmt.Println(errorStyle.Render(reply.Content))
		if failed, ok := reply.Status.(domain.StatusFailed); ok && failed.Retryable {
			fmt.Println(statusStyle.Render("[retryable: /retry " + reply.ID + "]"))
		}
		return
	}
	fmt.Println(aiStyle.Render("ai> ") + reply.Content)
}
