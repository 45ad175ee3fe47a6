package cli

import (
	"fmt"

	"flashcards/internal/client/query"
	"flashcards/pkg/protocol"

	"github.com/spf13/cobra"
)

func (c *cli) newCardsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cards",
		Aliases: []string{"card"},
		Short:   "Manage the cards of a deck",
	}
	cmd.AddCommand(
		c.newCardsListCmd(),
		c.newCardsShowCmd(),
		c.newCardsCreateCmd(),
		c.newCardsUpdateCmd(),
		c.newCardsDeleteCmd(),
	)
	return cmd
}

func (c *cli) newCardsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list <deckId>",
		Aliases: []string{"ls"},
		Short:   "List the cards of a deck",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cards, err := query.Cards(cmd.Context(), c.app.cache, args[0])
			if err != nil {
				return err
			}
			printCards(cmd.OutOrStdout(), cards)
			return nil
		},
	}
}

func (c *cli) newCardsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <deckId> <cardId>",
		Short: "Show one card",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			card, err := query.Card(cmd.Context(), c.app.cache, args[0], args[1])
			if err != nil {
				return err
			}
			printCard(cmd.OutOrStdout(), card)
			return nil
		},
	}
}

func (c *cli) newCardsCreateCmd() *cobra.Command {
	var req protocol.CreateCardRequest
	cmd := &cobra.Command{
		Use:   "create <deckId>",
		Short: "Add a card to a deck",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			card, err := c.app.mutations.CreateCard(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created card %s\n", card.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&req.Front, "front", "f", "", "question side")
	cmd.Flags().StringVarP(&req.Back, "back", "b", "", "answer side")
	return cmd
}

func (c *cli) newCardsUpdateCmd() *cobra.Command {
	var front, back string
	cmd := &cobra.Command{
		Use:   "update <deckId> <cardId>",
		Short: "Edit a card",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req protocol.UpdateCardRequest
			if cmd.Flags().Changed("front") {
				req.Front = &front
			}
			if cmd.Flags().Changed("back") {
				req.Back = &back
			}
			card, err := c.app.mutations.UpdateCard(cmd.Context(), args[0], args[1], req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated card %s\n", card.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&front, "front", "f", "", "new question side")
	cmd.Flags().StringVarP(&back, "back", "b", "", "new answer side")
	return cmd
}

func (c *cli) newCardsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <deckId> <cardId>",
		Aliases: []string{"rm"},
		Short:   "Delete a card",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.mutations.DeleteCard(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted card %s\n", args[1])
			return nil
		},
	}
}
