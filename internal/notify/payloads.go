package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Embed colors
const (
	colorRed    = 0xE74C3C
	colorGreen  = 0x57F287
	colorYellow = 0xFEE75C
)

// WebhookPayload is the body Discord expects on a webhook POST
type WebhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type EmbedFooter struct {
	Text string `json:"text"`
}

// CollectionReport is what the collection embed shows
type CollectionReport struct {
	BracketsWalked  int
	BracketsSkipped int
	Matches         int
	Records         int
	TierFiles       int
	Runtime         time.Duration
	Interrupted     bool
}

// AnalysisReport is what the analysis embed shows
type AnalysisReport struct {
	Records     int
	RowsWritten int
	MetaWinRate float64 // percent
	Ties        int
	Incomplete  int
}

func inline(name, value string) EmbedField {
	return EmbedField{Name: name, Value: value, Inline: true}
}

func single(e Embed) WebhookPayload {
	e.Timestamp = time.Now().UTC().Format(time.RFC3339)
	return WebhookPayload{Embeds: []Embed{e}}
}

// NewCollectionFinishedPayload reports a finished or interrupted ladder walk
func NewCollectionFinishedPayload(r CollectionReport) WebhookPayload {
	e := Embed{
		Title:  "✅ Collection Finished",
		Color:  colorGreen,
		Footer: &EmbedFooter{Text: "Tier tables written, analysis can run"},
		Fields: []EmbedField{
			inline("Brackets", fmt.Sprintf("%d walked, %d skipped", r.BracketsWalked, r.BracketsSkipped)),
			inline("Matches Collected", formatNumber(r.Matches)),
			inline("Records", formatNumber(r.Records)),
			inline("Tier Files", strconv.Itoa(r.TierFiles)),
			inline("Runtime", formatDuration(r.Runtime)),
		},
	}
	if r.Interrupted {
		e.Title = "⏸️ Collection Interrupted"
		e.Color = colorYellow
		e.Footer.Text = "Tier in progress was discarded"
	}
	return single(e)
}

// NewAnalysisFinishedPayload reports a written final table
func NewAnalysisFinishedPayload(r AnalysisReport) WebhookPayload {
	return single(Embed{
		Title: "📊 Analysis Finished",
		Color: colorGreen,
		Fields: []EmbedField{
			inline("Records Loaded", formatNumber(r.Records)),
			inline("Matches Classified", formatNumber(r.RowsWritten)),
			inline("Meta Team Win Rate", fmt.Sprintf("%.1f%%", r.MetaWinRate)),
			inline("Excluded", fmt.Sprintf("%d ties, %d incomplete", r.Ties, r.Incomplete)),
		},
	})
}

// NewKeyRejectedPayload pings the channel when Riot refuses the key.
// Only the masked key is ever sent.
func NewKeyRejectedPayload(maskedKey string) WebhookPayload {
	p := single(Embed{
		Title:  "🔑 API Key Rejected",
		Color:  colorRed,
		Fields: []EmbedField{inline("Key", maskedKey)},
		Footer: &EmbedFooter{Text: "Set a fresh RIOT_API_KEY and run collect again"},
	})
	p.Content = "@here API Key Rejected!"
	return p
}

// formatNumber groups thousands: 47832 -> "47,832"
func formatNumber(n int) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	s := strconv.Itoa(n)
	var b strings.Builder
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// formatDuration renders whole hours and minutes, "6h 45m"
func formatDuration(d time.Duration) string {
	d = d.Truncate(time.Minute)
	return fmt.Sprintf("%dh %dm", int(d/time.Hour), int(d%time.Hour/time.Minute))
}
