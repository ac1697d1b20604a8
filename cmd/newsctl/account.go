package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	v1 "github.com/fyrsmithlabs/newsd/pkg/api/v1"
)

func printPreferences(w io.Writer, p v1.Preferences) {
	printf(w, "categories: %s\n", strings.Join(p.Categories, ", "))
	printf(w, "sources:    %s\n", strings.Join(p.Sources, ", "))
	printf(w, "languages:  %s\n", strings.Join(p.Languages, ", "))
	printf(w, "countries:  %s\n", strings.Join(p.Countries, ", "))
}

func preferencesCmd(opts *options) *cobra.Command {
	var req v1.PreferencesRequest
	cmd := &cobra.Command{
		Use:   "preferences",
		Short: "Show or change feed preferences",
		Long: `Show the feed preferences, or change the lists named by flags.

Lists that are not given keep their current value.`,
		Example: "  newsctl preferences --categories technology,science --countries gb",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.authedClient()
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()

			flags := cmd.Flags()
			changed := false
			for _, name := range []string{"categories", "sources", "languages", "countries"} {
				changed = changed || flags.Changed(name)
			}

			var u *v1.User
			if changed {
				u, err = c.UpdatePreferences(ctx, req)
			} else {
				u, err = c.Verify(ctx)
			}
			if err != nil {
				return err
			}
			printPreferences(cmd.OutOrStdout(), u.Preferences)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&req.Categories, "categories", nil, "preferred categories, first wins")
	cmd.Flags().StringSliceVar(&req.Sources, "sources", nil, "preferred source ids, first wins")
	cmd.Flags().StringSliceVar(&req.Languages, "languages", nil, "preferred languages, first wins")
	cmd.Flags().StringSliceVar(&req.Countries, "countries", nil, "preferred countries, first wins")
	return cmd
}

func profileCmd(opts *options) *cobra.Command {
	var name, avatar string
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the profile, or change name and avatar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.authedClient()
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()

			var upd v1.ProfileUpdateRequest
			if cmd.Flags().Changed("name") {
				upd.Name = &name
			}
			if cmd.Flags().Changed("avatar") {
				upd.Avatar = &avatar
			}
			if upd.Name != nil || upd.Avatar != nil {
				if _, err := c.UpdateProfile(ctx, upd); err != nil {
					return err
				}
			}

			p, err := c.Profile(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printf(out, "%s <%s>\n", p.Name, p.Email)
			printf(out, "credits:    %d\n", p.Credits)
			if p.Avatar != "" {
				printf(out, "avatar:     %s\n", p.Avatar)
			}
			printPreferences(out, p.Preferences)

			printf(out, "\nsaved (%d):\n", len(p.SavedArticles))
			for _, id := range p.SavedArticles {
				printf(out, "  %s\n", id)
			}
			printf(out, "\nhistory (%d):\n", len(p.ReadingHistory))
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, e := range p.ReadingHistory {
				printf(tw, "  %s\t%s\n", e.ReadAt.Local().Format("2006-01-02 15:04"), e.ArticleID)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new display name")
	cmd.Flags().StringVar(&avatar, "avatar", "", "new avatar URL (empty clears it)")
	return cmd
}

// readPasswordPair returns the current and new passwords from flags, reading
// any missing one from successive stdin lines.
func readPasswordPair(in io.Reader, current, next string) (string, string, error) {
	r := bufio.NewReader(in)
	line := func(v, what string) (string, error) {
		if v != "" {
			return v, nil
		}
		s, err := r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("reading %s password: %w", what, err)
		}
		if s = strings.TrimRight(s, "\r\n"); s == "" {
			return "", fmt.Errorf("%s password is required (use --%s or pipe it on stdin)", what, what)
		}
		return s, nil
	}
	cur, err := line(current, "current")
	if err != nil {
		return "", "", err
	}
	nxt, err := line(next, "new")
	if err != nil {
		return "", "", err
	}
	return cur, nxt, nil
}

func passwdCmd(opts *options) *cobra.Command {
	var current, next string
	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change the account password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cur, nxt, err := readPasswordPair(cmd.InOrStdin(), current, next)
			if err != nil {
				return err
			}
			c, err := opts.authedClient()
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			if err := c.ChangePassword(ctx, cur, nxt); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Password changed\n")
			return nil
		},
	}
	cmd.Flags().StringVar(&current, "current", "", "current password (read from stdin when empty)")
	cmd.Flags().StringVar(&next, "new", "", "new password (read from stdin when empty)")
	return cmd
}
