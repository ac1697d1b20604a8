package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/newsd/internal/reader"
	"github.com/fyrsmithlabs/newsd/internal/tui"
	v1 "github.com/fyrsmithlabs/newsd/pkg/api/v1"
)

func healthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check newsd server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			status, err := c.Health(ctx)
			if err != nil {
				return fmt.Errorf("failed to reach %s: %w", opts.server, err)
			}
			printf(cmd.OutOrStdout(), "Server Status: %s\n", status)
			return nil
		},
	}
}

// signedIn stores the session token and greets the user.
func signedIn(cmd *cobra.Command, opts *options, resp *v1.AuthResponse) error {
	if err := writeToken(opts.tokenFile, resp.Token); err != nil {
		return err
	}
	printf(cmd.OutOrStdout(), "Signed in as %s <%s> (%d credits)\n", resp.User.Name, resp.User.Email, resp.User.Credits)
	return nil
}

// readPassword takes the password from the flag or the first line of stdin.
func readPassword(in io.Reader, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", errors.New("password is required (use --password or pipe it on stdin)")
	}
	return pw, nil
}

func signupCmd(opts *options) *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd.InOrStdin(), password)
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			resp, err := c.Signup(ctx, v1.SignupRequest{Email: email, Password: pw, Name: name})
			if err != nil {
				return err
			}
			return signedIn(cmd, opts, resp)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (read from stdin when empty)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func signinCmd(opts *options) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd.InOrStdin(), password)
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			resp, err := c.Signin(ctx, email, pw)
			if err != nil {
				return err
			}
			return signedIn(cmd, opts, resp)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (read from stdin when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func guestCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "guest",
		Short: "Start a guest session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			resp, err := c.Guest(ctx)
			if err != nil {
				return err
			}
			return signedIn(cmd, opts, resp)
		},
	}
}

func developerCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "developer",
		Short: "Sign in as the shared developer account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			resp, err := c.Developer(ctx)
			if err != nil {
				return err
			}
			return signedIn(cmd, opts, resp)
		},
	}
}

func whoamiCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.authedClient()
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			u, err := c.Verify(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printf(out, "%s <%s>\n", u.Name, u.Email)
			printf(out, "credits:    %d\n", u.Credits)
			printf(out, "categories: %s\n", strings.Join(u.Preferences.Categories, ", "))
			printf(out, "sources:    %s\n", strings.Join(u.Preferences.Sources, ", "))
			return nil
		},
	}
}

func signoutCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Forget the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return removeToken(opts.tokenFile)
		},
	}
}

// feedClient is the part of the API client that lists articles.
type feedClient interface {
	Headlines(ctx context.Context) ([]v1.Article, error)
	Search(ctx context.Context, q string) ([]v1.Article, error)
	Category(ctx context.Context, category string) ([]v1.Article, error)
	Source(ctx context.Context, source string) ([]v1.Article, error)
	SavedArticles(ctx context.Context) ([]v1.Article, error)
}

// printArticles writes one article per row.
func printArticles(w io.Writer, articles []v1.Article) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	printf(tw, "ID\tCATEGORY\tSOURCE\tTITLE\n")
	for _, a := range articles {
		printf(tw, "%s\t%s\t%s\t%s\n", a.ID, a.Category, truncate(a.Source.Name, 20), truncate(a.Title, 70))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	printf(w, "%d articles\n", len(articles))
	return nil
}

// feedCmd builds a command that lists one feed.
func feedCmd(opts *options, use, short string, args cobra.PositionalArgs, fetch func(cmd *cobra.Command, c feedClient, args []string) ([]v1.Article, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, a []string) error {
			c, err := opts.authedClient()
			if err != nil {
				return err
			}
			articles, err := fetch(cmd, c, a)
			if err != nil {
				return err
			}
			return printArticles(cmd.OutOrStdout(), articles)
		},
	}
}

func headlinesCmd(opts *options) *cobra.Command {
	return feedCmd(opts, "headlines", "List personalised top headlines", cobra.NoArgs,
		func(cmd *cobra.Command, c feedClient, _ []string) ([]v1.Article, error) {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			return c.Headlines(ctx)
		})
}

func searchCmd(opts *options) *cobra.Command {
	return feedCmd(opts, "search <query>", "Search articles", cobra.MinimumNArgs(1),
		func(cmd *cobra.Command, c feedClient, args []string) ([]v1.Article, error) {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			return c.Search(ctx, strings.Join(args, " "))
		})
}

func categoryCmd(opts *options) *cobra.Command {
	return feedCmd(opts, "category <name>", "List headlines in a category", cobra.ExactArgs(1),
		func(cmd *cobra.Command, c feedClient, args []string) ([]v1.Article, error) {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			return c.Category(ctx, args[0])
		})
}

func sourceCmd(opts *options) *cobra.Command {
	return feedCmd(opts, "source <id>", "List headlines from a source", cobra.ExactArgs(1),
		func(cmd *cobra.Command, c feedClient, args []string) ([]v1.Article, error) {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			return c.Source(ctx, args[0])
		})
}

func savedCmd(opts *options) *cobra.Command {
	return feedCmd(opts, "saved", "List saved articles", cobra.NoArgs,
		func(cmd *cobra.Command, c feedClient, _ []string) ([]v1.Article, error) {
			ctx, cancel := requestContext(cmd)
			defer cancel()
			return c.SavedArticles(ctx)
		})
}

func categoriesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the selectable categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			names, err := c.Categories(ctx)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\n", strings.Join(names, "\n"))
			return nil
		},
	}
}

func sourcesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the well-known sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			names, err := c.Sources(ctx)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\n", strings.Join(names, "\n"))
			return nil
		},
	}
}

func saveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "save <article-id>",
		Short: "Save an article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.authedClient()
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			saved, err := c.SaveArticle(ctx, args[0])
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Saved (%d articles saved)\n", len(saved))
			return nil
		},
	}
}

func unsaveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "unsave <article-id>",
		Short: "Remove an article from the saved list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.authedClient()
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			saved, err := c.RemoveSaved(ctx, args[0])
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Removed (%d articles saved)\n", len(saved))
			return nil
		},
	}
}

func historyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show the reading history, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.authedClient()
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			entries, err := c.History(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			printf(tw, "READ AT\tARTICLE\n")
			for _, e := range entries {
				printf(tw, "%s\t%s\n", e.ReadAt.Local().Format("2006-01-02 15:04"), e.ArticleID)
			}
			return tw.Flush()
		},
	}
}

func readCmd(opts *options) *cobra.Command {
	var silent bool
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Open the terminal reader",
		Long: `Open the interactive reader on your personalised headlines.

Read-aloud uses espeak-ng, espeak or say when one is installed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.authedClient()
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			u, err := c.Verify(ctx)
			cancel()
			if err != nil {
				return err
			}

			var speaker reader.Speaker = reader.Silent{}
			if !silent {
				if s, err := reader.NewExecSpeaker(); err == nil {
					speaker = s
				}
			}

			return tui.Run(tui.Options{
				Reader:   reader.New(c, u.Credits),
				Player:   reader.NewPlayer(speaker),
				UserName: u.Name,
			})
		},
	}
	cmd.Flags().BoolVar(&silent, "silent", false, "disable read-aloud")
	return cmd
}
