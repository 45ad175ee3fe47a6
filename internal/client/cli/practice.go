package cli

import (
	"fmt"

	"flashcards/internal/client/tui"

	"github.com/spf13/cobra"
)

func (c *cli) newPracticeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "practice <deckId>",
		Short: "Practice a deck: flip, step through and shuffle its cards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load up front so a bad id or expired session fails before the screen opens.
			_, cards, err := c.app.loadDeck(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(cards) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No cards to practice.")
				return nil
			}
			return tui.RunPractice(c.tuiDeps(), args[0])
		},
	}
}

func (c *cli) newBrowseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse decks and cards interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.Run(c.tuiDeps())
		},
	}
}
