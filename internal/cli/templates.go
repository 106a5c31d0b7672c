package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/mxctl/internal/model"
)

// template looks up a saved draft template by name.
func (a *App) template(name string) (model.Template, error) {
	templates, err := model.LoadTemplates(a.Paths)
	if err != nil {
		return model.Template{}, fail("%s", err)
	}
	tmpl, ok := model.FindTemplate(templates, name)
	if !ok {
		return model.Template{}, fail("Template %q not found in %s", name, a.Paths.Templates())
	}
	return tmpl, nil
}

// loadTemplatesOrEmpty treats a missing templates file as no templates.
func (a *App) loadTemplatesOrEmpty() ([]model.Template, error) {
	templates, err := model.LoadTemplates(a.Paths)
	if errors.Is(err, model.ErrNoTemplates) {
		return nil, nil
	}
	if err != nil {
		return nil, fail("%s", err)
	}
	return templates, nil
}

func newTemplatesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List saved draft templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			templates, err := app.loadTemplatesOrEmpty()
			if err != nil {
				return err
			}
			if len(templates) == 0 {
				return app.emit("No templates saved.", []model.Template{})
			}
			var b strings.Builder
			fmt.Fprintf(&b, "Templates (%d):", len(templates))
			for _, t := range templates {
				fmt.Fprintf(&b, "\n  %s: %s", t.Name, t.Subject)
			}
			return app.emit(b.String(), templates)
		},
	}
	cmd.AddCommand(newTemplatesSaveCmd(app), newTemplatesDeleteCmd(app))
	return cmd
}

func newTemplatesSaveCmd(app *App) *cobra.Command {
	var subject, body string
	cmd := &cobra.Command{
		Use:   "save NAME",
		Short: "Create or replace a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := model.TemplateKey(args[0])
			if !model.ValidTemplateName(name) {
				return fail("invalid template name %q: use letters, digits, '-' or '_'", args[0])
			}
			if strings.TrimSpace(subject) == "" {
				return fail("--subject is required")
			}
			templates, err := app.loadTemplatesOrEmpty()
			if err != nil {
				return err
			}
			kept := templates[:0]
			for _, t := range templates {
				if t.Name != name {
					kept = append(kept, t)
				}
			}
			kept = append(kept, model.Template{Name: name, Subject: subject, Body: body})
			if err := model.SaveTemplates(app.Paths, kept); err != nil {
				return err
			}
			return app.emit(fmt.Sprintf("Saved template '%s'.", name),
				map[string]any{"status": "saved", "name": name, "subject": subject})
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Template subject")
	cmd.Flags().StringVar(&body, "body", "", "Template body")
	return cmd
}

func newTemplatesDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Remove a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			templates, err := app.loadTemplatesOrEmpty()
			if err != nil {
				return err
			}
			name := model.TemplateKey(args[0])
			kept := templates[:0]
			for _, t := range templates {
				if t.Name != name {
					kept = append(kept, t)
				}
			}
			if len(kept) == len(templates) {
				return fail("Template %q not found", args[0])
			}
			if err := model.SaveTemplates(app.Paths, kept); err != nil {
				return err
			}
			return app.emit(fmt.Sprintf("Deleted template '%s'.", name),
				map[string]any{"status": "deleted", "name": name})
		},
	}
}
