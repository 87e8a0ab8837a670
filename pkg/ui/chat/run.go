package chat

import (
	"context"
	"fmt"

	"carebot/pkg/care"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// RouteFunc resolves one typed message into a care response.
type RouteFunc func(ctx context.Context, text string, lang care.Lang) care.Response

// Info describes the routing setup shown in the chat header.
type Info struct {
	Lang       care.Lang
	TopicCount int
	Knowledge  bool
	Translate  bool
}

func RunInteractive(ctx context.Context, routeFn RouteFunc, info Info) error {
	model := newModel(ctx, routeFn, modeInteractive, "", info)
	program := tea.NewProgram(model, tea.WithMouseCellMotion())
	_, err := program.Run()
	if err != nil {
		return err
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(renderGoodbyeBanner())
	return nil
}

func RunOneShot(ctx context.Context, routeFn RouteFunc, info Info, text string) error {
	model := newModel(ctx, routeFn, modeOneShot, text, info)
	program := tea.NewProgram(model)
	_, err := program.Run()
	return err
}

func renderGoodbyeBanner() string {
	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("231")).
		Background(lipgloss.Color("25")).
		Padding(1, 2)

	return style.Render("💙 Take care of yourself")
}
