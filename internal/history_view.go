package internal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/starford/sitegen/internal/history"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	failStyle   = cellStyle.Foreground(lipgloss.Color("9"))
)

// printHistory writes the most recent runs recorded at path as a table.
// A database that does not exist yet is not an error.
func printHistory(path string, limit int, w io.Writer) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(w, "No builds recorded.")
		return nil
	}
	db, err := history.Open(path)
	if err != nil {
		return fmt.Errorf("init history: %w", err)
	}
	defer db.Close()

	runs, err := db.Recent(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No builds recorded.")
		return nil
	}
	fmt.Fprintln(w, renderRuns(runs))
	return nil
}

func renderRuns(runs []history.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		result := "ok"
		if r.Error != "" {
			result = r.Error
		}
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.StartedAt.Local().Format(time.DateTime),
			r.Mode,
			strconv.Itoa(r.Written),
			strconv.Itoa(r.Skipped),
			strconv.Itoa(r.Warnings),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
			result,
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "STARTED", "MODE", "WRITTEN", "SKIPPED", "WARNINGS", "TOOK", "RESULT").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 7 && runs[row].Error != "":
				return failStyle
			default:
				return cellStyle
			}
		}).
		String()
}
