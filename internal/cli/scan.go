package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/2ykwang/mac-maintain-go/internal/scanner"
	"github.com/2ykwang/mac-maintain-go/internal/styles"
	"github.com/2ykwang/mac-maintain-go/internal/types"
	"github.com/2ykwang/mac-maintain-go/internal/utils"
)

var timeNow = time.Now

func newScanCmd(app *App) *cobra.Command {
	var (
		full    bool
		asJSON  bool
		details bool
	)
	cmd := &cobra.Command{
		Use:   "scan [category-id...]",
		Short: "Measure reclaimable space per category",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := scanner.ModeFast
			if full {
				mode = scanner.ModeFull
			}

			var progress io.Writer
			if !asJSON && app.Interactive {
				progress = app.ErrOut
			}
			results, err := app.scan(cmd.Context(), args, mode, progress)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(app.Out, buildScanJSON(results, mode.String(), timeNow()))
			}
			printScanResults(app.Out, results, details)
			return nil
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "Walk every entry instead of a capped estimate")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	cmd.Flags().BoolVarP(&details, "details", "d", false, "List every item")
	return cmd
}

// scan measures ids, or every available category when ids is empty.
func (a *App) scan(ctx context.Context, ids []string, mode scanner.Mode, progress io.Writer) ([]*types.ScanResult, error) {
	report := func(f float64) {
		if progress != nil {
			fmt.Fprintf(progress, "\rScanning... %3.0f%%", f*100)
		}
	}
	defer func() {
		if progress != nil {
			fmt.Fprintf(progress, "\r%s\r", strings.Repeat(" ", 20))
		}
	}()

	if len(ids) == 0 {
		results, err := a.engine.ScanAll(ctx, mode, report)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		a.warnConsent(results)
		return results, nil
	}

	results := make([]*types.ScanResult, 0, len(ids))
	for i, id := range ids {
		r, err := a.engine.ScanCategory(ctx, id, mode)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		results = append(results, r)
		report(float64(i+1) / float64(len(ids)))
	}
	a.warnConsent(results)
	return results, nil
}

// warnConsent points at Full Disk Access when a category that needs it came back empty-handed.
func (a *App) warnConsent(results []*types.ScanResult) {
	for _, r := range results {
		if r.Category.RequiresConsent && !utils.CheckFullDiskAccess() {
			fmt.Fprintf(a.ErrOut, "%s %s needs Full Disk Access for this terminal (System Settings > Privacy & Security).\n",
				styles.WarningStyle.Render("!"), r.Category.Name)
			return
		}
	}
}

func printScanResults(w io.Writer, results []*types.ScanResult, details bool) {
	var (
		totalSize  int64
		totalItems int
		estimated  bool
		denied     int
	)
	for _, r := range results {
		if r.Error != nil {
			fmt.Fprintf(w, "%s %-30s %s\n", styles.MutedStyle.Render("!"), r.Category.Name, styles.WarningStyle.Render(r.Error.Error()))
		}
		if len(r.Items) == 0 {
			continue
		}
		size := r.TotalSize()
		totalSize += size
		totalItems += len(r.Items)
		estimated = estimated || r.Truncated
		denied += r.Denied

		marker := ""
		if r.Truncated {
			marker = styles.MutedStyle.Render(" ~")
		}
		fmt.Fprintf(w, "%s %-30s %s%s\n", styles.SafetyDot(r.Category.Safety), r.Category.Name,
			styles.SizeStyle.Render(fmt.Sprintf("%10s", utils.FormatSize(size))), marker)

		if details {
			for _, item := range r.Items {
				size := utils.FormatSize(item.Size)
				if item.Unreadable {
					size = "?"
				}
				fmt.Fprintf(w, "    %-50s %10s  %s\n", truncatePath(item.Path, 50), size,
					styles.MutedStyle.Render(utils.FormatAge(item.ModifiedAt)))
			}
		}
	}

	if totalItems == 0 {
		fmt.Fprintln(w, styles.MutedStyle.Render("Nothing to clean."))
		return
	}
	fmt.Fprintln(w, styles.Divider(50))
	fmt.Fprintf(w, "Total: %s (%d items)\n", styles.SizeStyle.Render(utils.FormatSize(totalSize)), totalItems)
	if estimated {
		fmt.Fprintln(w, styles.MutedStyle.Render("~ estimated; run with --full for exact sizes"))
	}
	if denied > 0 {
		fmt.Fprintln(w, styles.MutedStyle.Render(fmt.Sprintf("%d entries could not be read and were not measured", denied)))
	}
}
