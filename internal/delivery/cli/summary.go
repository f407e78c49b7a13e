package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/user/product-harvester/internal/entity"
)

const maxCellWidth = 40

// PrintSummary writes the run counters followed by a table of sample
// products. Column widths are measured in terminal cells so CJK names and
// currency symbols stay aligned.
func PrintSummary(w io.Writer, s *entity.RunSummary) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Query:              %s\n", s.Query)
	fmt.Fprintf(&sb, "Sites found:        %d\n", s.SitesFound)
	fmt.Fprintf(&sb, "Sites attempted:    %d\n", s.SitesAttempted)
	fmt.Fprintf(&sb, "Sites succeeded:    %d\n", s.SitesSucceeded)
	if s.SitesSkipped > 0 {
		fmt.Fprintf(&sb, "Sites skipped:      %d\n", s.SitesSkipped)
	}
	fmt.Fprintf(&sb, "Products found:     %d\n", s.ProductsFound)
	fmt.Fprintf(&sb, "Products persisted: %d\n", s.ProductsPersisted)
	if !s.StartedAt.IsZero() && !s.FinishedAt.IsZero() {
		fmt.Fprintf(&sb, "Duration:           %s\n", s.FinishedAt.Sub(s.StartedAt).Round(100*time.Millisecond))
	}
	if s.Message != "" {
		fmt.Fprintf(&sb, "\n%s\n", s.Message)
	}

	if len(s.SampleProducts) > 0 {
		sb.WriteString("\nSample products:\n")
		rows := [][]string{{"Name", "Price", "Company", "Images", "Source"}}
		for _, p := range s.SampleProducts {
			rows = append(rows, []string{
				p.Name,
				formatPrice(p),
				p.CompanyName,
				fmt.Sprintf("%d", len(p.ImagePaths)),
				p.SourceURL,
			})
		}
		writeTable(&sb, rows)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func formatPrice(p *entity.Product) string {
	if p.Price == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f %s", *p.Price, p.Currency)
}

func writeTable(sb *strings.Builder, rows [][]string) {
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i := range row {
			row[i] = runewidth.Truncate(row[i], maxCellWidth, "…")
			if width := runewidth.StringWidth(row[i]); width > widths[i] {
				widths[i] = width
			}
		}
	}

	for r, row := range rows {
		for i, cell := range row {
			if i > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(cell)
			if i < len(row)-1 {
				sb.WriteString(strings.Repeat(" ", widths[i]-runewidth.StringWidth(cell)))
			}
		}
		sb.WriteString("\n")
		if r == 0 {
			for i, width := range widths {
				if i > 0 {
					sb.WriteString("  ")
				}
				sb.WriteString(strings.Repeat("-", width))
			}
			sb.WriteString("\n")
		}
	}
}
