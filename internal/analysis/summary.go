package analysis

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"meta-analyzer/internal/riot"
	"meta-analyzer/internal/storage"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// TierSummary counts classified matches of one tier
type TierSummary struct {
	Tier     string
	Matches  int
	MetaWins int
	BlueWins int
}

// MetaWinRate is the share of matches the higher-scored side won, in percent
func (t TierSummary) MetaWinRate() float64 {
	if t.Matches == 0 {
		return 0
	}
	return float64(t.MetaWins) / float64(t.Matches) * 100
}

// Summary is the per-tier and overall view of a classification
type Summary struct {
	Tiers      []TierSummary // ladder order
	Overall    TierSummary
	Ties       int
	Incomplete int
}

// Summarize groups classified rows by tier
func Summarize(c Classification) Summary {
	byTier := make(map[string]*TierSummary)
	s := Summary{
		Overall:    TierSummary{Tier: "ALL"},
		Ties:       c.Ties,
		Incomplete: c.Incomplete,
	}

	for _, row := range c.Rows {
		ts, ok := byTier[row.Tier]
		if !ok {
			ts = &TierSummary{Tier: row.Tier}
			byTier[row.Tier] = ts
		}
		for _, t := range []*TierSummary{ts, &s.Overall} {
			t.Matches++
			if row.DidMetaTeamWin {
				t.MetaWins++
			}
			if row.DidBlueTeamWin {
				t.BlueWins++
			}
		}
	}

	for _, ts := range byTier {
		s.Tiers = append(s.Tiers, *ts)
	}
	sort.Slice(s.Tiers, func(i, j int) bool {
		oi, iok := riot.TierOrder[s.Tiers[i].Tier]
		oj, jok := riot.TierOrder[s.Tiers[j].Tier]
		if iok && jok && oi != oj {
			return oi < oj
		}
		if iok != jok {
			return iok
		}
		return s.Tiers[i].Tier < s.Tiers[j].Tier
	})
	return s
}

// PrintSummary renders the summary as a table
func PrintSummary(w io.Writer, s Summary) {
	table := tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))

	table.Header("TIER", "MATCHES", "META_WINS", "META_WIN%", "BLUE_WIN%")
	for _, t := range s.Tiers {
		table.Append(summaryRow(t)...)
	}
	table.Append(summaryRow(s.Overall)...)
	table.Render()

	fmt.Fprintf(w, "Excluded: %d ties, %d incomplete\n", s.Ties, s.Incomplete)
}

func summaryRow(t TierSummary) []any {
	blueRate := 0.0
	if t.Matches > 0 {
		blueRate = float64(t.BlueWins) / float64(t.Matches) * 100
	}
	return []any{
		t.Tier,
		strconv.Itoa(t.Matches),
		strconv.Itoa(t.MetaWins),
		fmt.Sprintf("%.1f%%", t.MetaWinRate()),
		fmt.Sprintf("%.1f%%", blueRate),
	}
}

// Report is the result of one analysis run
type Report struct {
	Files     int
	Records   int
	FinalPath string
	Result    Classification
	Summary   Summary
}

// Run loads the tier tables, classifies every match and writes the final
// table. ErrNoInputData is returned untouched when there is nothing to load.
func Run(store *storage.CSVStore, out io.Writer) (*Report, error) {
	table, err := LoadMasterTable(store)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "[Analyzer] Loaded %d records from %d tier files\n", len(table.Records), len(table.Files))

	result := Analyze(table.Records)

	path, err := store.WriteFinal(result.Rows)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "[Analyzer] Wrote %d matches to %s\n", len(result.Rows), path)

	summary := Summarize(result)
	PrintSummary(out, summary)

	return &Report{
		Files:     len(table.Files),
		Records:   len(table.Records),
		FinalPath: path,
		Result:    result,
		Summary:   summary,
	}, nil
}
