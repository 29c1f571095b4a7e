package collector

import (
	"fmt"
	"time"
)

// Stats summarizes one collection run
type Stats struct {
	BracketsWalked   int
	BracketsSkipped  int
	PlayersProcessed int
	PlayersSkipped   int
	MatchesFetched   int
	MatchesFailed    int
	MatchesDeduped   int
	Records          int
	RecordsDropped   int

	TierFiles  []string // written, in walk order
	EmptyTiers []string // walked but nothing to write

	Interrupted bool
	Elapsed     time.Duration
}

func (c *Collector) printSummary() {
	s := c.stats

	fmt.Fprintf(c.out, "\n=== Collection Complete ===\n")
	if s.Interrupted {
		fmt.Fprintf(c.out, "Interrupted: tier in progress discarded\n")
	}
	fmt.Fprintf(c.out, "Total time: %s\n", formatDuration(s.Elapsed))
	fmt.Fprintf(c.out, "Brackets walked: %d (skipped: %d)\n", s.BracketsWalked, s.BracketsSkipped)
	fmt.Fprintf(c.out, "Players processed: %d (skipped: %d)\n", s.PlayersProcessed, s.PlayersSkipped)
	fmt.Fprintf(c.out, "Matches fetched: %d (failed: %d)\n", s.MatchesFetched, s.MatchesFailed)
	if s.MatchesDeduped > 0 {
		fmt.Fprintf(c.out, "Duplicate matches skipped: %d\n", s.MatchesDeduped)
	}
	fmt.Fprintf(c.out, "Total records (participants): %d\n", s.Records)
	if s.RecordsDropped > 0 {
		fmt.Fprintf(c.out, "Records dropped (buffer full): %d\n", s.RecordsDropped)
	}
	fmt.Fprintf(c.out, "Tier files written: %d\n", len(s.TierFiles))

	if s.MatchesFetched > 0 {
		avgPerMatch := s.Elapsed / time.Duration(s.MatchesFetched)
		fmt.Fprintf(c.out, "Avg time per match: %s\n", formatDuration(avgPerMatch))
	}
}

// FormatDuration renders d as 12.3s, 4m05s or 1h02m03s
func FormatDuration(d time.Duration) string {
	return formatDuration(d)
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else if d < time.Hour {
		mins := int(d.Minutes())
		secs := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%02ds", mins, secs)
	}
	hours := int(d.Hours())
	mins := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%02dm%02ds", hours, mins, secs)
}
