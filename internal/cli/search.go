package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/linkhoard/linkhoard/internal/rank"
)

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		scope     string
		limit     int
		answer    string
		sessionID string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Rank bookmarks for a query",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.engine.Search(cmd.Context(), rank.Request{
				Query:               strings.Join(args, " "),
				Scope:               rank.Scope(scope),
				Limit:               limit,
				ClarificationAnswer: answer,
				SessionID:           sessionID,
			})
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}

			out := cmd.OutOrStdout()
			if resp.Mode == "clarify" {
				fmt.Fprintln(out, resp.ClarifyingQuestion)
				for _, opt := range resp.ClarifyOptions {
					fmt.Fprintf(out, "  - %s\n", opt)
				}
				fmt.Fprintf(out, "(answer with: search --session %s --answer <option> %s)\n",
					resp.SessionID, strings.Join(args, " "))
				return nil
			}

			if len(resp.Items) == 0 {
				fmt.Fprintln(out, "No results")
			}
			for i, item := range resp.Items {
				fmt.Fprintf(out, "%d. %s\n   %s\n   score=%.3f tier=%d  %s\n",
					i+1, item.Item.Title, item.Item.URL, item.Score, item.Tier, item.Why)
			}
			fmt.Fprintf(out, "\nconfidence=%.2f  %s\n", resp.Confidence, resp.Explain)
			for _, hint := range resp.Hints {
				fmt.Fprintf(out, "hint: %s\n", hint)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "all", "search scope (all|inbox|library|trash)")
	cmd.Flags().IntVar(&limit, "limit", 0, "max results (1-200)")
	cmd.Flags().StringVar(&answer, "answer", "", "answer to a clarifying question")
	cmd.Flags().StringVar(&sessionID, "session", "", "clarify session id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the full JSON response")
	return cmd
}
