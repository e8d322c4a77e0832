// Command aria-seed batch-ingests a corpus of newline-delimited
// messages into an ARIA store, printing a running tally as it goes.
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
	"github.com/ariacore/aria/pkg/aria/tokenize"
)

// seedStep tracks progress of each batch of messages processed, for
// the periodic log line below.
type seedStep struct {
	MessagesProcessed int
	MessagesSkipped   int
	PairsCreated      int
	PairsReinforced   int
	PairsPromoted     int
}

func main() {
	var (
		dbPath     = flag.String("db", "", "SQLite database path (empty uses an in-memory store, discarded on exit)")
		inputPath  = flag.String("input", "", "Newline-delimited text file to ingest (required)")
		configPath = flag.String("config", "", "YAML tunables file (empty uses defaults)")
		userID     = flag.String("user", "seed-corpus", "user id attributed to every seeded line")
		reportEach = flag.Int("report-every", 500, "print a progress line every N messages")
		ageEvery   = flag.Int("age-every", 0, "every N processed messages, decay the category scores of tokens not seen in that window (0 disables)")
	)
	flag.Parse()

	if *inputPath == "" {
		log.Fatal("--input required")
	}

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

	f, err := os.Open(*inputPath)
	if err != nil {
		log.Fatalf("open input: %v", err)
	}
	defer f.Close()

	var step seedStep
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lastSeenAt := make(map[string]int)

	seq := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		seq++

		if *ageEvery > 0 {
			for _, tok := range tokenize.Tokenize(line) {
				lastSeenAt[tok] = seq
			}
		}

		report, err := engine.ProcessMessage(ctx, line, ulid.Make().String(), *userID)
		if err != nil {
			log.Fatalf("process message %d: %v", seq, err)
		}
		if !report.Processed {
			step.MessagesSkipped++
			continue
		}

		step.MessagesProcessed++
		step.PairsCreated += report.NewPairs
		step.PairsReinforced += report.Reinforced
		step.PairsPromoted += report.Promoted

		if *reportEach > 0 && step.MessagesProcessed%*reportEach == 0 {
			log.Printf("processed=%d skipped=%d pairs_created=%d pairs_reinforced=%d pairs_promoted=%d",
				step.MessagesProcessed, step.MessagesSkipped, step.PairsCreated, step.PairsReinforced, step.PairsPromoted)
		}

		if *ageEvery > 0 && seq%*ageEvery == 0 {
			stale := staleTokens(lastSeenAt, seq, *ageEvery)
			if len(stale) > 0 {
				if err := engine.AgeStaleTokens(ctx, stale); err != nil {
					log.Printf("age stale tokens: %v", err)
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("read input: %v", err)
	}

	mem, err := engine.MemoryStats(ctx)
	if err != nil {
		log.Fatalf("memory stats: %v", err)
	}

	fmt.Println("\ndone.")
	fmt.Printf("messages processed: %d\n", step.MessagesProcessed)
	fmt.Printf("messages skipped:   %d\n", step.MessagesSkipped)
	fmt.Printf("pairs created:      %d\n", step.PairsCreated)
	fmt.Printf("pairs reinforced:   %d\n", step.PairsReinforced)
	fmt.Printf("pairs promoted:     %d\n", step.PairsPromoted)
	fmt.Printf("tokens seen total:  %d\n", mem.TotalTokensSeen)
}

// staleTokens returns every token whose last-seen sequence number falls
// outside the trailing window of size windowSize ending at seq.
func staleTokens(lastSeenAt map[string]int, seq, windowSize int) []string {
	var out []string
	for tok, last := range lastSeenAt {
		if last <= seq-windowSize {
			out = append(out, tok)
		}
	}
	return out
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
