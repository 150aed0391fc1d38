package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/2ykwang/mac-maintain-go/internal/styles"
	"github.com/2ykwang/mac-maintain-go/internal/types"
)

func newCategoriesCmd(app *App) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List the cleanup categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cats := app.engine.Catalog()
			if asJSON {
				return writeJSON(app.Out, buildCategoriesJSON(cats))
			}

			groups := app.engine.Groups()
			for _, g := range groups {
				printed := false
				for _, c := range cats {
					if c.Group != g.ID {
						continue
					}
					if !printed {
						fmt.Fprintf(app.Out, "\n%s\n", styles.SectionStyle.Render(g.Name))
						printed = true
					}
					flags := ""
					if c.RequiresElevatedAccess {
						flags += " " + styles.WarningStyle.Render("[admin]")
					}
					if c.RequiresConsent {
						flags += " " + styles.MutedStyle.Render("[full disk access]")
					}
					fmt.Fprintf(app.Out, "%s %-22s %s%s\n", styles.SafetyDot(c.Safety), c.ID, c.Name, flags)
				}
			}
			for _, c := range cats {
				if !hasGroup(groups, c.Group) {
					fmt.Fprintf(app.Out, "%s %-22s %s\n", styles.SafetyDot(c.Safety), c.ID, c.Name)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

func hasGroup(groups []types.Group, id string) bool {
	for _, g := range groups {
		if g.ID == id {
			return true
		}
	}
	return false
}
