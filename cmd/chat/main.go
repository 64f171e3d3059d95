package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aman-zulfiqar/chattrade/internal/bootstrap"
	"github.com/aman-zulfiqar/chattrade/internal/chat"
	"github.com/aman-zulfiqar/chattrade/internal/config"
	"github.com/aman-zulfiqar/chattrade/internal/models"
	"github.com/aman-zulfiqar/chattrade/internal/swapengine"
	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	oneShot string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "chattrade",
	Short: "Chat with an Arbitrum wallet: check balances, send ETH, swap ETH and USDC",
	Long: `chattrade reads plain-text commands and runs them against Arbitrum (Sepolia unless ARBITRUM_RPC_URL says otherwise).

Examples:
  check balance
  check balance for 0x2c7536E3605D9C16a7a3D7b1898e529396a65c23
  send 0.01 eth to 0x2c7536E3605D9C16a7a3D7b1898e529396a65c23
  swap 0.05 eth to usdc
  confirm swap`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&oneShot, "command", "c", "", "run a single command and exit")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log engine activity")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	level := "warn"
	if verbose {
		level = "debug"
	}
	logger := bootstrap.NewLogger(level)
	bootstrap.LoadEnv(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	engine, err := swapengine.NewEngine(ctx, swapengine.EngineConfigFromConfig(cfg, logger))
	if err != nil {
		return fmt.Errorf("failed to initialize swap engine: %w", err)
	}
	defer engine.Close()

	sessionCfg, optional := bootstrap.SessionConfig(ctx, cfg, engine, logger)
	defer optional.Close()

	session := chat.NewSession(sessionCfg)

	if oneShot != "" {
		render(withSpinner(func() []models.ChatMessage {
			return session.HandleCommand(ctx, oneShot)
		}))
		return nil
	}

	if engine.WalletAddress() != "" {
		withSpinner(func() []models.ChatMessage {
			_, _ = session.LoadBalance(ctx, "")
			return nil
		})
	}
	render(session.Messages())
	return repl(ctx, session)
}

func repl(ctx context.Context, session *chat.Session) error {
	prompt := color.New(color.FgCyan, color.Bold)
	in := bufio.NewScanner(os.Stdin)

	for {
		prompt.Print("> ")
		if !in.Scan() {
			fmt.Println()
			return in.Err()
		}
		line := strings.TrimSpace(in.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}

		msgs := withSpinner(func() []models.ChatMessage {
			return session.HandleCommand(ctx, line)
		})
		// The user's own line is already on screen.
		if len(msgs) > 0 && msgs[0].Origin == models.OriginUser {
			msgs = msgs[1:]
		}
		render(msgs)
	}
}

func withSpinner(fn func() []models.ChatMessage) []models.ChatMessage {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " working..."
	s.Writer = os.Stderr
	s.Start()
	defer s.Stop()
	return fn()
}

func render(msgs []models.ChatMessage) {
	errLine := color.New(color.FgRed)
	okLine := color.New(color.FgGreen)
	for _, m := range msgs {
		switch {
		case m.Origin == models.OriginUser:
			color.New(color.Faint).Printf("you: %s\n", m.Content)
		case strings.HasPrefix(m.Content, "Error:"):
			errLine.Println(m.Content)
		case strings.Contains(m.Content, "Transaction: 0x"):
			okLine.Println(m.Content)
		default:
			fmt.Println(m.Content)
		}
		fmt.Println()
	}
}
