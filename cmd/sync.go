package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/tasksync/internal/credential"
	"github.com/teemow/tasksync/internal/provider"
	"github.com/teemow/tasksync/internal/provider/googletasks"
	"github.com/teemow/tasksync/internal/provider/mstodo"
	"github.com/teemow/tasksync/internal/sync"
	"github.com/teemow/tasksync/internal/task"
)

// readAccessToken resolves the access token for a one-shot run: the
// TASKSYNC_ACCESS_TOKEN env var wins, otherwise it is read from
// ~/keys/tasksync-<provider>.token.
func readAccessToken(providerName string) (string, error) {
	if tok := os.Getenv("TASKSYNC_ACCESS_TOKEN"); tok != "" {
		return tok, nil
	}

	file := filepath.Join(homeDir(), "keys", "tasksync-"+providerName+".token")
	slurp, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("no access token: set TASKSYNC_ACCESS_TOKEN or create %s: %w", file, err)
	}

	tok := strings.TrimSpace(string(slurp))
	if tok == "" {
		return "", fmt.Errorf("token file %s is empty", file)
	}
	return tok, nil
}

func newSyncCmd() *cobra.Command {
	var (
		userID       string
		providerName string
		timeout      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one reconciliation pass from the command line",
		Long: `Pull the remote task collection for one provider once and print the
result. Intended for cron jobs and debugging; the serve command is the
long-running variant.

The access token is taken from the TASKSYNC_ACCESS_TOKEN environment
variable, or from ~/keys/tasksync-<provider>.token.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !provider.Known(providerName) {
				return fmt.Errorf("unknown provider %q (supported: %s, %s)",
					providerName, provider.GoogleTasks, provider.MicrosoftTodo)
			}

			accessToken, err := readAccessToken(providerName)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

			creds := credential.NewMemoryStore()
			tasks := task.NewMemoryStore()

			// One-shot runs carry a pre-obtained token, so the credential
			// never needs refreshing within the pass.
			_, err = creds.Upsert(ctx, credential.Credential{
				UserID:      userID,
				Provider:    providerName,
				AccessToken: accessToken,
				Expiry:      time.Now().Add(time.Hour),
			})
			if err != nil {
				return fmt.Errorf("failed to seed credential: %w", err)
			}

			engine := sync.NewEngine(creds, tasks, logger)
			switch providerName {
			case provider.GoogleTasks:
				engine.Register(googletasks.NewAdapter(), staticToken{})
			case provider.MicrosoftTodo:
				engine.Register(mstodo.NewAdapter(), staticToken{})
			}

			res, err := engine.Reconcile(ctx, userID, providerName)
			if err != nil {
				return fmt.Errorf("reconciliation failed: %w", err)
			}

			fmt.Printf("Provider:  %s\n", res.Provider)
			fmt.Printf("Created:   %d\n", res.Created)
			fmt.Printf("Updated:   %d\n", res.Updated)
			fmt.Printf("Skipped:   %d\n", res.Skipped)
			fmt.Printf("Errors:    %d\n", res.Errors)
			fmt.Printf("Duration:  %s\n", res.Duration.Truncate(time.Millisecond))
			if !res.Success {
				return fmt.Errorf("pass finished with errors: %s", res.Err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "default", "User identifier the synced tasks belong to")
	cmd.Flags().StringVar(&providerName, "provider", provider.GoogleTasks, "Provider to sync: googletasks or mstodo")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Deadline for the whole pass; on expiry the partial result stands")

	return cmd
}

// staticToken hands the stored access token straight through; one-shot runs
// have no refresh token to work with.
type staticToken struct{}

func (staticToken) ValidAccessToken(_ context.Context, cred credential.Credential, _ func(credential.Credential) error) (string, error) {
	return cred.AccessToken, nil
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	// Windows fallback
	return os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
}
