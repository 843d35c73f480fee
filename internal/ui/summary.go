package ui

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"gitsink/internal/sync"
)

var (
	okLabel   = color.New(color.FgGreen).SprintFunc()
	failLabel = color.New(color.FgRed).SprintFunc()
)

// RenderSummary prints the end-of-run branch table and totals.
func RenderSummary(summary *sync.Summary) {
	fmt.Printf("\nRepository: %s\n\n", ColorBold(summary.RepoID))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Branch", "Status", "Commits", "File Changes", "Current Files", "Excluded", "Duration"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)

	for _, b := range summary.Branches {
		status := okLabel("synced")
		if b.Err != nil {
			status = failLabel("failed: " + string(b.Stage))
		}
		table.Append([]string{
			b.Branch,
			status,
			strconv.Itoa(b.Commits),
			strconv.Itoa(b.FileChanges),
			strconv.Itoa(b.CurrentFiles),
			formatExclusions(b.ExcludedBinary, b.ExcludedOversize),
			b.Duration.Round(time.Millisecond).String(),
		})
	}
	table.Render()

	fmt.Printf("\n%d/%d branches synced, %d commits, %d file changes in %s\n",
		summary.Synced(), len(summary.Branches),
		summary.TotalCommits(), summary.TotalFileChanges(),
		summary.Duration.Round(time.Millisecond),
	)

	for _, b := range summary.Branches {
		if b.Err != nil {
			fmt.Println()
			ShowError(fmt.Errorf("branch %s: %w", b.Branch, b.Err))
		}
	}
}

func formatExclusions(binary, oversize int) string {
	if binary == 0 && oversize == 0 {
		return "-"
	}
	return fmt.Sprintf("%d binary, %d oversize", binary, oversize)
}
