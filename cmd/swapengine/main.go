package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aman-zulfiqar/chattrade/internal/bootstrap"
	"github.com/aman-zulfiqar/chattrade/internal/config"
	"github.com/aman-zulfiqar/chattrade/internal/models"
	"github.com/aman-zulfiqar/chattrade/internal/swapengine"
	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	jsonOutput bool
	assumeYes  bool
	tokenFlag  string
)

var rootCmd = &cobra.Command{
	Use:          "swapengine",
	Short:        "Quote and execute ETH/USDC swaps on Arbitrum without the chat layer",
	SilenceUsage: true,
}

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> <from> <to>",
	Short: "Print a quote without sending anything",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, e *swapengine.Engine) error {
			q, err := quote(ctx, e, args)
			if err != nil {
				return err
			}
			return show(q)
		})
	},
}

var executeCmd = &cobra.Command{
	Use:   "execute <amount> <from> <to>",
	Short: "Quote, confirm, then approve if needed and swap",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, e *swapengine.Engine) error {
			q, err := quote(ctx, e, args)
			if err != nil {
				return err
			}
			if err := show(q); err != nil {
				return err
			}
			if !assumeYes && !confirm("Execute this swap?") {
				fmt.Println("cancelled")
				return nil
			}

			var exec *swapengine.SwapExecution
			err = spin(" waiting for receipts...", func() error {
				exec, err = e.Execute(ctx, q)
				return err
			})
			if err != nil {
				return err
			}
			color.Green("swap %s completed", exec.TxHash)
			if exec.ApprovalTxHash != "" {
				fmt.Printf("approval %s\n", exec.ApprovalTxHash)
			}
			return nil
		})
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance [address]",
	Short: "Print the ETH or token balance of an address, the configured wallet by default",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, e *swapengine.Engine) error {
			addr := e.WalletAddress()
			if len(args) == 1 {
				addr = args[0]
			}
			var bal models.TokenBalance
			err := spin(" reading balance...", func() (err error) {
				bal, err = e.Balance(ctx, addr, tokenFlag)
				return err
			})
			if err != nil {
				return err
			}
			return show(bal)
		})
	},
}

var riskCmd = &cobra.Command{
	Use:   "risk",
	Short: "Print the risk limits and today's usage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, e *swapengine.Engine) error {
			return show(e.GetRiskStatus())
		})
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "print JSON")
	executeCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "skip the confirmation prompt")
	balanceCmd.Flags().StringVar(&tokenFlag, "token", "", "token symbol or contract address, ETH when empty")

	rootCmd.AddCommand(quoteCmd, executeCmd, balanceCmd, riskCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func withEngine(fn func(ctx context.Context, e *swapengine.Engine) error) error {
	logger := bootstrap.NewLogger("warn")
	bootstrap.LoadEnv(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	engine, err := swapengine.NewEngine(ctx, swapengine.EngineConfigFromConfig(cfg, logger))
	if err != nil {
		return err
	}
	defer engine.Close()

	return fn(ctx, engine)
}

func quote(ctx context.Context, e *swapengine.Engine, args []string) (*models.SwapQuote, error) {
	intent := &swapengine.SwapIntent{
		Amount:      args[0],
		InputToken:  strings.ToUpper(args[1]),
		OutputToken: strings.ToUpper(args[2]),
		RequestedAt: time.Now(),
	}
	var q *models.SwapQuote
	err := spin(" fetching quote...", func() (err error) {
		q, err = e.Quote(ctx, intent)
		return err
	})
	return q, err
}

func spin(suffix string, fn func() error) error {
	if jsonOutput {
		return fn()
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = suffix
	s.Writer = os.Stderr
	s.Start()
	defer s.Stop()
	return fn()
}

func show(v any) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	switch x := v.(type) {
	case *models.SwapQuote:
		fmt.Printf("input     %s %s\n", x.InputAmount, x.FromSymbol)
		fmt.Printf("output    %s %s\n", x.OutputAmount, x.ToSymbol)
		fmt.Printf("price     %s\n", x.ExecutionPrice)
		fmt.Printf("impact    %s%%\n", x.PriceImpact)
		fmt.Printf("minimum   %s %s\n", x.MinimumReceived, x.ToSymbol)
		if x.Fallback {
			color.Yellow("router unavailable, quote uses the fallback price")
		}
	case models.TokenBalance:
		if x.IsUnknown() {
			color.Yellow("balance unknown")
			return nil
		}
		fmt.Printf("%s %s\n", x.Balance, x.Symbol)
	case *swapengine.RiskStatus:
		fmt.Printf("max swap         %.6f ETH\n", x.MaxSwapAmountETH)
		fmt.Printf("daily limit      %.6f ETH\n", x.DailyLimitETH)
		fmt.Printf("used today       %.6f ETH\n", x.DailyUsedETH)
		fmt.Printf("remaining today  %.6f ETH\n", x.DailyRemainingETH)
	default:
		fmt.Printf("%+v\n", v)
	}
	return nil
}

func confirm(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
