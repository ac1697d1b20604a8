// Package main implements newsctl, a command-line client for the newsd API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/newsd/pkg/client"
)

var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

const requestTimeout = 15 * time.Second

// options holds persistent flag values.
type options struct {
	server    string
	token     string
	tokenFile string
}

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "newsctl",
		Short: "Command-line client for the newsd API",
		Long: `newsctl talks to a newsd server. Sign in once (signin, signup, guest or
developer) and the token is kept in the token file for later commands.

Examples:
  # Start a guest session and read headlines in the terminal reader
  newsctl guest
  newsctl read

  # Search without the reader
  newsctl search "quantum computing"

  # Use a different server
  newsctl --server http://localhost:8080 headlines`,
		Version:      version,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.server, "server", envOr("NEWSD_SERVER", "http://localhost:3000"), "newsd server URL")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("NEWSD_TOKEN"), "bearer token (overrides the token file)")
	root.PersistentFlags().StringVar(&opts.tokenFile, "token-file", defaultTokenFile(), "file the session token is kept in")

	root.AddCommand(
		healthCmd(opts),
		signupCmd(opts),
		signinCmd(opts),
		guestCmd(opts),
		developerCmd(opts),
		whoamiCmd(opts),
		profileCmd(opts),
		preferencesCmd(opts),
		passwdCmd(opts),
		signoutCmd(opts),
		headlinesCmd(opts),
		searchCmd(opts),
		categoryCmd(opts),
		sourceCmd(opts),
		categoriesCmd(opts),
		sourcesCmd(opts),
		saveCmd(opts),
		unsaveCmd(opts),
		savedCmd(opts),
		historyCmd(opts),
		readCmd(opts),
		versionCmd(),
	)
	return root
}

// client builds an API client carrying the current token, if any.
func (o *options) client() (*client.Client, error) {
	token := o.token
	if token == "" {
		t, err := readToken(o.tokenFile)
		if err != nil {
			return nil, err
		}
		token = t
	}
	return client.New(o.server, client.WithToken(token)), nil
}

// authedClient is client() but fails early when no token is available.
func (o *options) authedClient() (*client.Client, error) {
	c, err := o.client()
	if err != nil {
		return nil, err
	}
	if c.Token() == "" {
		return nil, errors.New("not signed in: run newsctl signin, guest or developer first")
	}
	return c, nil
}

func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, requestTimeout)
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".newsctl-token"
	}
	return filepath.Join(dir, "newsctl", "token")
}

// readToken returns the stored token. A missing file yields "".
func readToken(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading token file: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func writeToken(path, token string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	return nil
}

func removeToken(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing token file: %w", err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "newsctl %s (commit: %s, built: %s)\n", version, gitCommit, buildDate)
		},
	}
}

// truncate shortens s to n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
