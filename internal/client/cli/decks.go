package cli

import (
	"fmt"

	"flashcards/internal/client/query"
	"flashcards/pkg/protocol"

	"github.com/spf13/cobra"
)

func (c *cli) newDecksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "decks",
		Aliases: []string{"deck"},
		Short:   "Manage decks",
	}
	cmd.AddCommand(
		c.newDecksListCmd(),
		c.newDecksShowCmd(),
		c.newDecksCreateCmd(),
		c.newDecksUpdateCmd(),
		c.newDecksDeleteCmd(),
	)
	return cmd
}

func (c *cli) newDecksListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your decks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			decks, err := query.Decks(cmd.Context(), c.app.cache)
			if err != nil {
				return err
			}
			printDecks(cmd.OutOrStdout(), decks)
			return nil
		},
	}
}

func (c *cli) newDecksShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <deckId>",
		Short: "Show a deck and its cards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deck, cards, err := c.app.loadDeck(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printDeck(cmd.OutOrStdout(), deck, cards)
			return nil
		},
	}
}

func (c *cli) newDecksCreateCmd() *cobra.Command {
	var req protocol.CreateDeckRequest
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a deck",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deck, err := c.app.mutations.CreateDeck(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created deck %q (%s)\n", deck.Name, deck.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&req.Name, "name", "n", "", "deck name")
	cmd.Flags().StringVarP(&req.Description, "description", "d", "", "optional description")
	return cmd
}

func (c *cli) newDecksUpdateCmd() *cobra.Command {
	var name, description string
	cmd := &cobra.Command{
		Use:   "update <deckId>",
		Short: "Rename a deck or change its description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req protocol.UpdateDeckRequest
			if cmd.Flags().Changed("name") {
				req.Name = &name
			}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}
			deck, err := c.app.mutations.UpdateDeck(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated deck %q (%s)\n", deck.Name, deck.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "new name")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	return cmd
}

func (c *cli) newDecksDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <deckId>",
		Aliases: []string{"rm"},
		Short:   "Delete a deck and all its cards",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.mutations.DeleteDeck(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted deck %s\n", args[0])
			return nil
		},
	}
}
