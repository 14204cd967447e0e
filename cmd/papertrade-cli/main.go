package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"papertrade/pkg/papertrade"
)

const version = "0.1.0"

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: papertrade-cli <command> [options]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  version                    Print the CLI version\n")
	fmt.Fprintf(os.Stderr, "  market                     Show the quote board\n")
	fmt.Fprintf(os.Stderr, "  portfolio                  Show the session portfolio\n")
	fmt.Fprintf(os.Stderr, "  buy <symbol> <shares>      Buy shares at market\n")
	fmt.Fprintf(os.Stderr, "  sell <symbol> <shares>     Sell shares at market\n")
	fmt.Fprintf(os.Stderr, "  history                    Show recent trades\n")
	fmt.Fprintf(os.Stderr, "\nOptions:\n")
	fmt.Fprintf(os.Stderr, "  -server <url>              Server URL (default http://localhost:8080,\n")
	fmt.Fprintf(os.Stderr, "                             or PAPERTRADE_SERVER)\n\n")
}

func main() {
	flag.Usage = usage
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	cmd, args := os.Args[1], os.Args[2:]

	if cmd == "version" {
		fmt.Printf("papertrade-cli %s\n", version)
		return
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	serverURL := fs.String("server", defaultServer(), "server URL")
	fs.Parse(args)

	client, err := papertrade.NewClient(*serverURL)
	if err != nil {
		fatalf("creating client: %v", err)
	}
	ctx := context.Background()

	switch cmd {
	case "market":
		quotes, err := client.Market(ctx)
		if err != nil {
			fatalf("market: %v", err)
		}
		for _, q := range quotes {
			fmt.Printf("%-6s %-28s %10.2f %+8.2f (%+.2f%%)\n",
				q.Symbol, q.Name, q.Price, q.Change, q.Percent)
		}

	case "portfolio":
		p, err := client.Portfolio(ctx)
		if err != nil {
			fatalf("portfolio: %v", err)
		}
		fmt.Printf("Cash:       %12.2f\n", p.Cash)
		fmt.Printf("Holdings:   %12.2f\n", p.HoldingsValue)
		fmt.Printf("Total:      %12.2f\n", p.TotalValue)
		for _, h := range p.Holdings {
			fmt.Printf("  %-6s %6d @ %10.2f  now %10.2f  %+10.2f (%+.2f%%)\n",
				h.Symbol, h.Shares, h.AvgPrice, h.CurrentPrice, h.GainLoss, h.GainLossPct)
		}

	case "buy", "sell":
		rest := fs.Args()
		if len(rest) != 2 {
			fatalf("usage: papertrade-cli %s <symbol> <shares>", cmd)
		}
		shares, err := strconv.ParseInt(rest[1], 10, 64)
		if err != nil {
			fatalf("shares must be an integer: %v", err)
		}
		res, err := client.Trade(ctx, rest[0], cmd, shares)
		if err != nil {
			fatalf("%s: %v", cmd, err)
		}
		if !res.Success {
			fatalf("rejected: %s", res.Message)
		}
		fmt.Printf("%s (cash: %.2f)\n", res.Message, res.Cash)
		if res.AchievementUnlocked != "" {
			fmt.Printf("Achievement unlocked: %s\n", res.AchievementUnlocked)
		}

	case "history":
		trades, err := client.History(ctx, 10)
		if err != nil {
			fatalf("history: %v", err)
		}
		for _, t := range trades {
			fmt.Printf("%s  %-4s %-6s %6d @ %10.2f = %12.2f\n",
				t.ExecutedAt, t.Side, t.Symbol, t.Shares, t.Price, t.Total)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func defaultServer() string {
	if v := os.Getenv("PAPERTRADE_SERVER"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
