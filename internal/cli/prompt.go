package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/nhle/mxctl/internal/model"
)

// Prompter asks the user for setup decisions.
type Prompter interface {
	SelectAccount(ctx context.Context, accounts []model.Account) (string, error)
	Confirm(ctx context.Context, title string) (bool, error)
	Secret(ctx context.Context, title, description string) (string, error)
}

// HuhPrompter runs each question as a one-field huh form.
type HuhPrompter struct{}

func (HuhPrompter) SelectAccount(ctx context.Context, accounts []model.Account) (string, error) {
	opts := make([]huh.Option[string], 0, len(accounts))
	for _, a := range accounts {
		label := a.Name
		if a.Email != "" {
			label = fmt.Sprintf("%s <%s>", a.Name, a.Email)
		}
		opts = append(opts, huh.NewOption(label, a.Name))
	}

	var choice string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Default account").
				Description("Used when -a is not given").
				Options(opts...).
				Value(&choice),
		),
	)
	if err := form.RunWithContext(ctx); err != nil {
		return "", err
	}
	return choice, nil
}

func (HuhPrompter) Confirm(ctx context.Context, title string) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	)
	if err := form.RunWithContext(ctx); err != nil {
		return false, err
	}
	return ok, nil
}

func (HuhPrompter) Secret(ctx context.Context, title, description string) (string, error) {
	var value string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				Description(description).
				EchoMode(huh.EchoModePassword).
				Value(&value),
		),
	)
	if err := form.RunWithContext(ctx); err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}
