package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"flashcards/pkg/protocol"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	titleStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

func renderTable(w io.Writer, headers []string, rows [][]string) {
	t := table.New().
		Headers(headers...).
		Rows(rows...).
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(w, t.String())
}

func printDecks(w io.Writer, decks []protocol.Deck) {
	if len(decks) == 0 {
		fmt.Fprintln(w, "No decks yet. Create one with 'flashcards decks create --name <name>'.")
		return
	}
	rows := make([][]string, 0, len(decks))
	for _, d := range decks {
		count := "-"
		if d.CardCount != nil {
			count = strconv.Itoa(*d.CardCount)
		}
		rows = append(rows, []string{d.ID, d.Name, count, formatTime(d.UpdatedAt)})
	}
	renderTable(w, []string{"ID", "NAME", "CARDS", "UPDATED"}, rows)
}

func printDeck(w io.Writer, d *protocol.Deck, cards []protocol.Card) {
	fmt.Fprintln(w, titleStyle.Render(d.Name))
	if d.Description != "" {
		fmt.Fprintln(w, dimStyle.Render(d.Description))
	}
	fmt.Fprintf(w, "%s  %d cards\n", dimStyle.Render(d.ID), len(cards))
	if cards == nil {
		return
	}
	fmt.Fprintln(w)
	printCards(w, cards)
}

func printCards(w io.Writer, cards []protocol.Card) {
	if len(cards) == 0 {
		fmt.Fprintln(w, "No cards yet.")
		return
	}
	rows := make([][]string, 0, len(cards))
	for _, c := range cards {
		rows = append(rows, []string{c.ID, oneLine(c.Front), oneLine(c.Back)})
	}
	renderTable(w, []string{"ID", "FRONT", "BACK"}, rows)
}

func printCard(w io.Writer, c *protocol.Card) {
	fmt.Fprintf(w, "%s %s\n", dimStyle.Render("Question:"), c.Front)
	fmt.Fprintf(w, "%s   %s\n", dimStyle.Render("Answer:"), c.Back)
	fmt.Fprintf(w, "%s %s  updated %s\n", dimStyle.Render("ID:"), c.ID, formatTime(c.UpdatedAt))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if r := []rune(s); len(r) > 48 {
		return string(r[:45]) + "..."
	}
	return s
}

// readSecret prompts for a value without echo on a terminal, or reads one
// line from the command's input otherwise.
func readSecret(cmd *cobra.Command, prompt string) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
