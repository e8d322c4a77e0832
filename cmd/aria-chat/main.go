// Command aria-chat is an interactive REPL over an ARIA instance: each
// line you type is learned from, then echoed back with a generated
// response.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/ariacore/aria/pkg/aria"
	"github.com/ariacore/aria/pkg/aria/config"
	"github.com/ariacore/aria/pkg/aria/store/memstore"
	"github.com/ariacore/aria/pkg/aria/store/sqlite"
)

func main() {
	var (
		dbPath     = flag.String("db", "", "SQLite database path (empty uses an in-memory store)")
		configPath = flag.String("config", "", "YAML tunables file (empty uses defaults)")
		userID     = flag.String("user", "repl-user", "user id attributed to every line typed")
	)
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	engine, err := buildEngine(ctx, *dbPath, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer engine.Close()

	fmt.Println("===========================================")
	fmt.Println("  ARIA Chat")
	fmt.Println("  unsupervised text learning")
	fmt.Println("===========================================")
	fmt.Println()
	fmt.Println("Type anything (Ctrl+D to exit):")
	fmt.Println()

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

		report, err := engine.ProcessMessage(ctx, line, ulid.Make().String(), *userID)
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		if !report.Processed {
			fmt.Println("(not processed:", report.Reason, ")")
			continue
		}

		fmt.Printf("aria: %s\n", engine.GenerateResponse(ctx, line, cfg.Generator.MaxLengthChars))
		fmt.Printf("  [tick %d] tokens=%d categorized=%d new_pairs=%d reinforced=%d promoted=%d decayed=%d removed=%d\n",
			report.MessageIndex, report.TokensProcessed, report.Categorized, report.NewPairs,
			report.Reinforced, report.Promoted, report.Decayed, report.Removed)
	}

	fmt.Println("\nGoodbye!")
}

func buildEngine(ctx context.Context, dbPath string, cfg config.Config) (*aria.Aria, error) {
	if dbPath == "" {
		return aria.New(aria.Options{Store: memstore.New(), Config: &cfg}), nil
	}

	st, err := sqlite.Open(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return aria.New(aria.Options{Store: st, Config: &cfg}), nil
}
