package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/2ykwang/mac-maintain-go/internal/logger"
	"github.com/2ykwang/mac-maintain-go/internal/scanner"
	"github.com/2ykwang/mac-maintain-go/internal/styles"
	"github.com/2ykwang/mac-maintain-go/internal/types"
)

var (
	ErrNoSelection    = errors.New("no categories selected. Pass category IDs or run `mac-maintain categories` to list them")
	ErrNothingRemoved = errors.New("no items were removed")
)

func newCleanCmd(app *App) *cobra.Command {
	var (
		dryRun bool
		yes    bool
	)
	cmd := &cobra.Command{
		Use:   "clean [category-id...]",
		Short: "Move the contents of the selected categories to the Trash",
		Long: "Move the contents of the selected categories to the Trash.\n" +
			"Without arguments the categories of the previous run are cleaned.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.clean(cmd, args, dryRun, yes)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be cleaned without deleting anything")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func (a *App) clean(cmd *cobra.Command, ids []string, dryRun, yes bool) error {
	if len(ids) == 0 {
		ids = a.user.GetLastSelection()
	}
	if len(ids) == 0 {
		return ErrNoSelection
	}

	var progress io.Writer
	if a.Interactive {
		progress = a.ErrOut
	}
	results, err := a.scan(cmd.Context(), ids, scanner.ModeFull, progress)
	if err != nil {
		return err
	}

	var (
		paths      []string
		categoryOf = make(map[string]string)
		permanent  bool
	)
	for _, r := range results {
		for _, p := range r.SelectedPaths() {
			paths = append(paths, p)
			categoryOf[p] = r.Category.Name
		}
		if len(r.Items) > 0 && r.Category.Method == types.MethodPermanent {
			permanent = true
		}
	}
	nameOf := func(path string) string { return categoryOf[path] }

	fmt.Fprintf(a.Out, "%s\n\n", styles.TitleStyle.Render("Preview:"))
	printScanResults(a.Out, results, false)
	if len(paths) == 0 {
		return nil
	}
	fmt.Fprintln(a.Out)

	if dryRun {
		fmt.Fprint(a.Out, FormatReport(NewReport(previewSummary(results), nameOf), true))
		fmt.Fprintln(a.Out, styles.MutedStyle.Render("Dry run - no files were deleted."))
		return nil
	}

	fmt.Fprintln(a.Out, "Delete method: Trash")
	if permanent {
		fmt.Fprintln(a.Out, styles.DangerStyle.Render("Items already in the Trash are deleted permanently."))
	}
	if a.engine.NeedsElevation(paths) {
		fmt.Fprintln(a.Out, styles.WarningStyle.Render("Some items need administrator rights; you will be asked once."))
	}
	if !yes && !a.confirm("Proceed?") {
		fmt.Fprintln(a.Out, styles.MutedStyle.Render("Cancelled."))
		return nil
	}

	start := timeNow()
	summary := a.engine.DeleteWithElevation(cmd.Context(), paths)
	report := NewReport(summary, nameOf)
	report.Duration = timeNow().Sub(start)

	a.user.SetLastSelection(ids)
	if err := a.user.Save(); err != nil {
		logger.Warn("failed to save last selection", "error", err)
	}

	fmt.Fprintln(a.Out)
	fmt.Fprint(a.Out, FormatReport(report, false))
	if summary.State() == types.SummaryTotalFailure {
		return ErrNothingRemoved
	}
	return nil
}

// previewSummary counts every selected item as removed.
func previewSummary(results []*types.ScanResult) types.DeletionSummary {
	var s types.DeletionSummary
	for _, r := range results {
		for _, item := range r.Items {
			if item.Selected {
				s.Add(types.DeletionOutcome{Path: item.Path, Size: item.Size, Status: types.DeletionSucceeded})
			}
		}
	}
	return s
}
