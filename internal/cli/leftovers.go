package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/2ykwang/mac-maintain-go/internal/styles"
	"github.com/2ykwang/mac-maintain-go/internal/types"
	"github.com/2ykwang/mac-maintain-go/internal/utils"
)

type leftoverOptions struct {
	appPath       string
	bundleID      string
	name          string
	minConfidence string
	remove        bool
	yes           bool
	asJSON        bool
}

func newLeftoversCmd(app *App) *cobra.Command {
	var opts leftoverOptions
	cmd := &cobra.Command{
		Use:   "leftovers",
		Short: "Find files an application left behind in ~/Library",
		Example: "  mac-maintain leftovers --app /Applications/Slack.app\n" +
			"  mac-maintain leftovers --bundle-id com.tinyspeck.slackmacgap --name Slack --remove",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.leftovers(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.appPath, "app", "", "Path to the application bundle")
	f.StringVar(&opts.bundleID, "bundle-id", "", "Bundle identifier of an app that is no longer installed")
	f.StringVar(&opts.name, "name", "", "Display name of an app that is no longer installed")
	f.StringVar(&opts.minConfidence, "confidence", "medium", "Lowest confidence selected for removal (high or medium)")
	f.BoolVar(&opts.remove, "remove", false, "Move the selected leftovers to the Trash")
	f.BoolVarP(&opts.yes, "yes", "y", false, "Skip the confirmation prompt")
	f.BoolVar(&opts.asJSON, "json", false, "Output in JSON format")
	cmd.MarkFlagsMutuallyExclusive("app", "bundle-id")
	cmd.MarkFlagsMutuallyExclusive("app", "name")
	cmd.MarkFlagsOneRequired("app", "bundle-id", "name")
	return cmd
}

func parseConfidence(s string) (types.Confidence, error) {
	switch s {
	case "high":
		return types.ConfidenceHigh, nil
	case "medium", "":
		return types.ConfidenceMedium, nil
	}
	return 0, fmt.Errorf("invalid confidence %q (want high or medium)", s)
}

func (a *App) leftovers(cmd *cobra.Command, opts leftoverOptions) error {
	threshold, err := parseConfidence(opts.minConfidence)
	if err != nil {
		return err
	}

	var (
		identity types.AppIdentity
		files    []types.LeftoverFile
	)
	if opts.appPath != "" {
		if _, err := os.Stat(opts.appPath); err != nil {
			return fmt.Errorf("cannot read app: %w", err)
		}
		identity, files, err = a.engine.DiscoverLeftoversForApp(cmd.Context(), opts.appPath)
	} else {
		identity = types.AppIdentity{BundleID: opts.bundleID, Name: opts.name, Size: types.SizeNotComputed}
		files, err = a.engine.DiscoverLeftovers(cmd.Context(), identity)
	}
	if err != nil {
		return fmt.Errorf("leftover search failed: %w", err)
	}

	var total int64
	for i := range files {
		// Confidence grows weaker as the value increases.
		files[i].Selected = files[i].Confidence <= threshold
		total += files[i].Size
	}

	if opts.asJSON && !opts.remove {
		return writeJSON(a.Out, leftoversJSON{
			App:   appJSON{BundleID: identity.BundleID, Name: identity.Name, InstallPath: identity.InstallPath},
			Files: files,
			Size:  total,
		})
	}

	printLeftovers(a, identity, files, total)
	if !opts.remove || len(files) == 0 {
		return nil
	}

	var paths []string
	labels := make(map[string]string)
	for _, f := range files {
		if f.Selected {
			paths = append(paths, f.Path)
			labels[f.Path] = f.Category
		}
	}
	if len(paths) == 0 {
		fmt.Fprintln(a.Out, styles.MutedStyle.Render("No leftovers meet the confidence threshold."))
		return nil
	}
	if !opts.yes && !a.confirm(fmt.Sprintf("Move %d items to the Trash?", len(paths))) {
		fmt.Fprintln(a.Out, styles.MutedStyle.Render("Cancelled."))
		return nil
	}

	start := timeNow()
	summary := a.engine.DeleteWithElevation(cmd.Context(), paths)
	report := NewReport(summary, func(path string) string { return labels[path] })
	report.Duration = timeNow().Sub(start)
	if opts.asJSON {
		return writeJSON(a.Out, summary)
	}
	fmt.Fprintln(a.Out)
	fmt.Fprint(a.Out, FormatReport(report, false))
	if summary.State() == types.SummaryTotalFailure {
		return ErrNothingRemoved
	}
	return nil
}

func printLeftovers(a *App, app types.AppIdentity, files []types.LeftoverFile, total int64) {
	label := app.Name
	if app.BundleID != "" {
		label = fmt.Sprintf("%s (%s)", app.Name, app.BundleID)
	}
	fmt.Fprintf(a.Out, "%s\n", styles.TitleStyle.Render("Leftovers for "+label))
	if app.SizeComputed() {
		fmt.Fprintf(a.Out, "%s\n", styles.MutedStyle.Render("App size: "+utils.FormatSize(app.Size)))
	}

	if len(files) == 0 {
		fmt.Fprintln(a.Out, styles.MutedStyle.Render("No leftovers found."))
		return
	}
	confidenceCol := lipgloss.NewStyle().Width(8)
	for _, f := range files {
		mark := " "
		if f.Selected {
			mark = "*"
		}
		fmt.Fprintf(a.Out, "%s %s %-26s %10s  %s\n", mark, confidenceCol.Render(styles.ConfidenceLabel(f.Confidence)),
			f.Category, utils.FormatSize(f.Size), truncatePath(f.Path, 60))
	}
	fmt.Fprintln(a.Out, styles.Divider(50))
	fmt.Fprintf(a.Out, "Total: %s (%d items, * = selected)\n", styles.SizeStyle.Render(utils.FormatSize(total)), len(files))
}
