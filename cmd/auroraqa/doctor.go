package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"auroraqa/internal/config"
	"auroraqa/internal/corpus"
	"auroraqa/internal/store"
	"auroraqa/internal/vocab"

	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your AuroraQA installation",
		Long: `Verifies that the configuration, message source, database and
listening port are usable. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("AuroraQA Doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed := 0
			failed := 0
			warned := 0

			if _, err := os.Stat(cfgPath); err != nil {
				printFail("Config file", fmt.Sprintf("not found at %s", cfgPath))
				fmt.Printf("\nRun 'auroraqa init' to create a default configuration.\n")
				return nil
			}
			printPass("Config file", cfgPath)
			passed++

			cfg, err := config.Load(cfgPath)
			if err != nil {
				printFail("Config validation", err.Error())
				fmt.Printf("\n%d passed, 1 failed\n", passed)
				return err
			}
			printPass("Config validation", "valid")
			passed++

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			switch cfg.Corpus.Source {
			case "http":
				if err := checkUpstream(ctx, cfg.Corpus); err != nil {
					printFail("Message API", err.Error())
					failed++
				} else {
					printPass("Message API", cfg.Corpus.BaseURL)
					passed++
				}
			case "file":
				if _, err := corpus.NewFileSource(cfg.Corpus.FilePath, logger).Load(ctx); err != nil {
					printFail("Message file", err.Error())
					failed++
				} else {
					printPass("Message file", cfg.Corpus.FilePath)
					passed++
				}
			}

			if cfg.Store.Enabled {
				if detail, err := checkStore(ctx, cfg.Store.DBPath, cfg.Corpus.Source == "store"); err != nil {
					printFail("Database", err.Error())
					failed++
				} else {
					printPass("Database", detail)
					passed++
				}
			} else {
				printWarn("Database", "disabled (no question log, no snapshots)")
				warned++
			}

			if cfg.Vocab.Path != "" {
				if _, err := vocab.Load(cfg.Vocab.Path, logger); err != nil {
					printFail("Vocabulary", err.Error())
					failed++
				} else {
					printPass("Vocabulary", cfg.Vocab.Path)
					passed++
				}
			}

			if cfg.API.Enabled {
				if err := checkPort(cfg.API.Host, cfg.API.Port); err != nil {
					printWarn("API port", fmt.Sprintf("%s may be in use: %v", cfg.API.Addr(), err))
					warned++
				} else {
					printPass("API port", cfg.API.Addr()+" available")
					passed++
				}
			}

			if cfg.Telegram.Enabled {
				if len(cfg.Telegram.AllowFrom) == 0 {
					printWarn("Telegram", "no allowFrom list, every user can ask questions")
					warned++
				} else {
					printPass("Telegram", fmt.Sprintf("%d allowed user(s)", len(cfg.Telegram.AllowFrom)))
					passed++
				}
			}

			if cfg.General.LogFile != "" {
				if err := os.MkdirAll(filepath.Dir(cfg.General.LogFile), 0o755); err != nil {
					printWarn("Log file", fmt.Sprintf("cannot create log directory: %v", err))
					warned++
				} else {
					printPass("Log file", cfg.General.LogFile)
					passed++
				}
			}

			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running AuroraQA.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned > 0 {
				fmt.Printf("\nAuroraQA should work but consider fixing the warnings.\n")
			} else {
				fmt.Printf("\nAll checks passed! AuroraQA is ready to run.\n")
			}
			return nil
		},
	}
}

// checkUpstream requests a single message page.
func checkUpstream(ctx context.Context, c config.CorpusConfig) error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set("limit", "1")
	q.Set("offset", "0")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := corpus.NewHTTPClient(c.Timeout()).Do(req)
	if err != nil {
		return fmt.Errorf("unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

// checkStore opens the database, which also applies pending migrations.
func checkStore(ctx context.Context, dbPath string, mustHaveMessages bool) (string, error) {
	st, err := store.Open(dbPath, logger)
	if err != nil {
		return "", err
	}
	defer st.Close()

	ver, err := st.SchemaVersion()
	if err != nil {
		return "", fmt.Errorf("schema version: %w", err)
	}
	n, err := st.MessageCount(ctx)
	if err != nil {
		return "", err
	}
	if mustHaveMessages && n == 0 {
		return "", fmt.Errorf("no stored messages, run 'auroraqa sync' first")
	}
	return fmt.Sprintf("%s (schema v%d, %d messages)", dbPath, ver, n), nil
}

func checkPort(host string, port int) error {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}
