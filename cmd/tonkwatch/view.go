package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true).MarginLeft(1)
	potStyle   = lipgloss.NewStyle().
			Background(lipgloss.Color("22")).
			Foreground(lipgloss.Color("46")).
			Padding(0, 2).
			Bold(true)
	currentPlayerStyle = lipgloss.NewStyle().
				Border(lipgloss.ThickBorder()).
				BorderForeground(lipgloss.Color("46")).
				Padding(0, 1)
	playerBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	logStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
)

func (m *model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("tonkwatch — table %s", m.tableID)))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errStyle.Render("connection closed: "+m.err.Error()) + "\n")
	}

	if m.state == nil {
		b.WriteString("waiting for game state...\n")
	} else {
		b.WriteString(potStyle.Render(fmt.Sprintf("pot %d  stake %d  status %s", m.state.Pot, m.state.BaseStake, m.state.Status)) + "\n\n")

		for i, p := range m.state.Players {
			style := playerBoxStyle
			if i == m.state.CurrentPlayerIndex {
				style = currentPlayerStyle
			}
			label := fmt.Sprintf("%s  cards:%d  spreads:%d", p.Username, len(p.Hand), len(p.Spreads))
			if p.IsAI {
				label += "  [bot]"
			}
			if p.IsHitLocked {
				label += "  [locked]"
			}
			b.WriteString(style.Render(label) + "\n")
		}

		if m.state.RoundEndedBy != "" {
			b.WriteString(fmt.Sprintf("\nround ended: %s, winner %s\n", m.state.RoundEndedBy, m.state.RoundWinnerID))
		}
	}

	b.WriteString("\n")
	start := 0
	if len(m.log) > 15 {
		start = len(m.log) - 15
	}
	for _, line := range m.log[start:] {
		b.WriteString(logStyle.Render(line.at.Format("15:04:05") + "  " + line.message) + "\n")
	}

	b.WriteString(helpStyle.Render("q to quit"))
	return b.String()
}
