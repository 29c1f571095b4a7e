package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"meta-analyzer/internal/riot"
	"meta-analyzer/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves canned league entries, match lists and matches
type fakeSource struct {
	entries map[string][]riot.LeagueEntryResponse // keyed by "GOLD I"
	history map[string][]string                    // keyed by puuid
	matches map[string]*riot.MatchResponse

	failBrackets map[string]bool
	failHistory  map[string]bool
	failMatches  map[string]bool

	onMatch func(matchID string)

	historyCalls []string
	matchCalls   []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		entries:      map[string][]riot.LeagueEntryResponse{},
		history:      map[string][]string{},
		matches:      map[string]*riot.MatchResponse{},
		failBrackets: map[string]bool{},
		failHistory:  map[string]bool{},
		failMatches:  map[string]bool{},
	}
}

func (f *fakeSource) GetLeagueEntries(ctx context.Context, tier, division string, page int) ([]riot.LeagueEntryResponse, error) {
	key := tier + " " + division
	if f.failBrackets[key] {
		return nil, &riot.StatusError{StatusCode: 503, Path: "/lol/league/v4/entries"}
	}
	return f.entries[key], nil
}

func (f *fakeSource) GetMatchHistory(ctx context.Context, puuid string, count, queue int) ([]string, error) {
	f.historyCalls = append(f.historyCalls, puuid)
	if f.failHistory[puuid] {
		return nil, errors.New("connection reset")
	}
	return f.history[puuid], nil
}

func (f *fakeSource) GetMatch(ctx context.Context, matchID string) (*riot.MatchResponse, error) {
	f.matchCalls = append(f.matchCalls, matchID)
	if f.onMatch != nil {
		f.onMatch(matchID)
	}
	if f.failMatches[matchID] {
		return nil, &riot.StatusError{StatusCode: 404, Path: "/lol/match/v5/matches/" + matchID}
	}
	m, ok := f.matches[matchID]
	if !ok {
		return nil, fmt.Errorf("no match %s", matchID)
	}
	return m, nil
}

// addPlayer registers one player in a bracket with the given matches
func (f *fakeSource) addPlayer(bracket, puuid string, matchIDs ...string) {
	f.entries[bracket] = append(f.entries[bracket], riot.LeagueEntryResponse{PUUID: puuid})
	f.history[puuid] = matchIDs
	for _, id := range matchIDs {
		f.matches[id] = tenPlayerMatch(id)
	}
}

func tenPlayerMatch(matchID string) *riot.MatchResponse {
	m := &riot.MatchResponse{}
	m.Metadata.MatchID = matchID
	for i := 0; i < 10; i++ {
		team := riot.TeamBlue
		if i >= 5 {
			team = riot.TeamRed
		}
		m.Info.Participants = append(m.Info.Participants, riot.MatchParticipant{
			ParticipantID: i + 1,
			ChampionName:  fmt.Sprintf("Champ%d", i),
			TeamID:        team,
			Win:           team == riot.TeamBlue,
		})
	}
	return m
}

// countingLimiter records how often each pacing hook ran
type countingLimiter struct {
	waits    int
	backoffs int
}

func (l *countingLimiter) Wait(ctx context.Context) error {
	l.waits++
	return ctx.Err()
}

func (l *countingLimiter) Backoff(ctx context.Context) error {
	l.backoffs++
	return ctx.Err()
}

// memoryWriter keeps written tiers in memory
type memoryWriter struct {
	tiers   map[string][]storage.ParticipantRecord
	order   []string
	failFor string
}

func newMemoryWriter() *memoryWriter {
	return &memoryWriter{tiers: map[string][]storage.ParticipantRecord{}}
}

func (w *memoryWriter) WriteTier(tier string, records []storage.ParticipantRecord) (string, error) {
	if tier == w.failFor {
		return "", errors.New("disk full")
	}
	w.tiers[tier] = append([]storage.ParticipantRecord(nil), records...)
	w.order = append(w.order, tier)
	return storage.TierFileName(tier), nil
}

func newTestCollector(src MatchSource, w TierWriter, l *countingLimiter, cfg Config, opts ...Option) *Collector {
	opts = append([]Option{
		WithLogger(log.New(io.Discard, "", 0)),
		WithOutput(io.Discard),
	}, opts...)
	return New(src, w, l, cfg, opts...)
}

// TestRun_HappyPath tests that each tier gets one table tagged with its bracket
func TestRun_HappyPath(t *testing.T) {
	src := newFakeSource()
	src.addPlayer("GOLD I", "p-gold", "NA1_1")
	src.addPlayer("SILVER I", "p-silver", "NA1_2")

	w := newMemoryWriter()
	l := &countingLimiter{}
	c := newTestCollector(src, w, l, Config{
		Tiers:     []string{"GOLD", "SILVER"},
		Divisions: []string{"I"},
	})

	stats, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"GOLD", "SILVER"}, w.order)
	require.Len(t, w.tiers["GOLD"], 10)
	require.Len(t, w.tiers["SILVER"], 10)
	for _, rec := range w.tiers["GOLD"] {
		assert.Equal(t, "NA1_1", rec.MatchID)
		assert.Equal(t, "GOLD", rec.Tier)
		assert.Equal(t, "GOLD I", rec.Rank)
	}

	// players + match list + match detail, per bracket
	assert.Equal(t, 6, l.waits)
	assert.Zero(t, l.backoffs)

	assert.Equal(t, 2, stats.BracketsWalked)
	assert.Equal(t, 2, stats.MatchesFetched)
	assert.Equal(t, 20, stats.Records)
	assert.Equal(t, []string{"lol_match_data_GOLD.csv", "lol_match_data_SILVER.csv"}, stats.TierFiles)
	assert.False(t, stats.Interrupted)
}

// TestRun_BracketFailureBacksOff tests that a failed league request skips
// only that bracket and uses the error back-off instead of the normal wait
func TestRun_BracketFailureBacksOff(t *testing.T) {
	src := newFakeSource()
	src.failBrackets["GOLD I"] = true
	src.addPlayer("GOLD II", "p1", "NA1_1")

	w := newMemoryWriter()
	l := &countingLimiter{}
	c := newTestCollector(src, w, l, Config{
		Tiers:     []string{"GOLD"},
		Divisions: []string{"I", "II"},
	})

	stats, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, l.backoffs)
	assert.Equal(t, 3, l.waits)
	assert.Equal(t, 1, stats.BracketsSkipped)
	assert.Equal(t, 1, stats.BracketsWalked)
	require.Len(t, w.tiers["GOLD"], 10)
	assert.Equal(t, "GOLD II", w.tiers["GOLD"][0].Rank)
}

// TestRun_MatchListFailureSkipsPlayer tests that the next player still runs
func TestRun_MatchListFailureSkipsPlayer(t *testing.T) {
	src := newFakeSource()
	src.addPlayer("IRON I", "bad", "NA1_X")
	src.addPlayer("IRON I", "good", "NA1_1")
	src.failHistory["bad"] = true

	w := newMemoryWriter()
	l := &countingLimiter{}
	c := newTestCollector(src, w, l, Config{
		Tiers:     []string{"IRON"},
		Divisions: []string{"I"},
	})

	stats, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"bad", "good"}, src.historyCalls)
	assert.Equal(t, []string{"NA1_1"}, src.matchCalls)
	// players + two match lists (one failed) + one match
	assert.Equal(t, 4, l.waits)
	assert.Equal(t, 1, stats.PlayersSkipped)
	assert.Equal(t, 1, stats.PlayersProcessed)
	assert.Len(t, w.tiers["IRON"], 10)
}

// TestRun_MatchFailureStillWaits tests that the wait runs after a failed match
func TestRun_MatchFailureStillWaits(t *testing.T) {
	src := newFakeSource()
	src.addPlayer("IRON I", "p1", "NA1_1", "NA1_2", "NA1_3")
	src.failMatches["NA1_2"] = true

	w := newMemoryWriter()
	l := &countingLimiter{}
	c := newTestCollector(src, w, l, Config{
		Tiers:     []string{"IRON"},
		Divisions: []string{"I"},
	})

	stats, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, l.waits)
	assert.Equal(t, 2, stats.MatchesFetched)
	assert.Equal(t, 1, stats.MatchesFailed)
	assert.Len(t, w.tiers["IRON"], 20)
}

// TestRun_EmptyTierWritesNoFile tests the empty-table branch
func TestRun_EmptyTierWritesNoFile(t *testing.T) {
	src := newFakeSource()
	src.addPlayer("BRONZE I", "p1") // no matches
	src.addPlayer("GOLD I", "p2", "NA1_1")

	w := newMemoryWriter()
	c := newTestCollector(src, w, &countingLimiter{}, Config{
		Tiers:     []string{"BRONZE", "GOLD"},
		Divisions: []string{"I"},
	})

	stats, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"GOLD"}, w.order)
	assert.Equal(t, []string{"BRONZE"}, stats.EmptyTiers)
	assert.Equal(t, 2, stats.PlayersProcessed)
}

// TestRun_TruncatesPlayers tests that only the first PlayersPerBracket are walked
func TestRun_TruncatesPlayers(t *testing.T) {
	src := newFakeSource()
	src.addPlayer("GOLD IV", "p1", "NA1_1")
	src.addPlayer("GOLD IV", "p2", "NA1_2")
	src.addPlayer("GOLD IV", "p3", "NA1_3")

	c := newTestCollector(src, newMemoryWriter(), &countingLimiter{}, Config{
		Tiers:             []string{"GOLD"},
		Divisions:         []string{"IV"},
		PlayersPerBracket: 2,
	})

	_, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, src.historyCalls)
}

// TestRun_DuplicateMatches tests that a shared match is kept twice by
// default and once with dedupe
func TestRun_DuplicateMatches(t *testing.T) {
	build := func() *fakeSource {
		src := newFakeSource()
		src.addPlayer("GOLD I", "p1", "NA1_1")
		src.addPlayer("GOLD I", "p2", "NA1_1")
		return src
	}
	cfg := Config{Tiers: []string{"GOLD"}, Divisions: []string{"I"}}

	w := newMemoryWriter()
	_, err := newTestCollector(build(), w, &countingLimiter{}, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, w.tiers["GOLD"], 20)

	w = newMemoryWriter()
	src := build()
	stats, err := newTestCollector(src, w, &countingLimiter{}, cfg, WithDedupe()).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, w.tiers["GOLD"], 10)
	assert.Equal(t, 1, stats.MatchesDeduped)
	assert.Equal(t, []string{"NA1_1"}, src.matchCalls)
}

// TestRun_InterruptDiscardsTierInProgress tests that earlier tier files stay
// and the interrupted tier is never written
func TestRun_InterruptDiscardsTierInProgress(t *testing.T) {
	src := newFakeSource()
	src.addPlayer("GOLD I", "p1", "NA1_1")
	src.addPlayer("SILVER I", "p2", "NA1_2", "NA1_3")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src.onMatch = func(matchID string) {
		if matchID == "NA1_2" {
			cancel()
		}
	}

	w := newMemoryWriter()
	c := newTestCollector(src, w, &countingLimiter{}, Config{
		Tiers:     []string{"GOLD", "SILVER"},
		Divisions: []string{"I"},
	})

	stats, err := c.Run(ctx)
	require.NoError(t, err)

	assert.True(t, stats.Interrupted)
	assert.Equal(t, []string{"GOLD"}, w.order)
	assert.NotContains(t, src.matchCalls, "NA1_3")
}

// TestRun_CancelledBeforeStart tests that nothing is fetched or written
func TestRun_CancelledBeforeStart(t *testing.T) {
	src := newFakeSource()
	src.addPlayer("GOLD I", "p1", "NA1_1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := newMemoryWriter()
	stats, err := newTestCollector(src, w, &countingLimiter{}, Config{
		Tiers:     []string{"GOLD"},
		Divisions: []string{"I"},
	}).Run(ctx)
	require.NoError(t, err)

	assert.True(t, stats.Interrupted)
	assert.Empty(t, w.order)
	assert.Empty(t, src.historyCalls)
}

// TestRun_WriteFailureAborts tests that a failed tier write stops the walk
func TestRun_WriteFailureAborts(t *testing.T) {
	src := newFakeSource()
	src.addPlayer("GOLD I", "p1", "NA1_1")
	src.addPlayer("SILVER I", "p2", "NA1_2")

	w := newMemoryWriter()
	w.failFor = "GOLD"
	c := newTestCollector(src, w, &countingLimiter{}, Config{
		Tiers:     []string{"GOLD", "SILVER"},
		Divisions: []string{"I"},
	})

	_, err := c.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NotContains(t, src.historyCalls, "p2")
}

// TestRun_BufferBound tests that records past the tier bound are dropped
func TestRun_BufferBound(t *testing.T) {
	src := newFakeSource()
	src.addPlayer("GOLD I", "p1", "NA1_1")
	// A malformed match with more participants than a match can have
	big := tenPlayerMatch("NA1_1")
	big.Info.Participants = append(big.Info.Participants, big.Info.Participants...)
	src.matches["NA1_1"] = big

	w := newMemoryWriter()
	stats, err := newTestCollector(src, w, &countingLimiter{}, Config{
		Tiers:             []string{"GOLD"},
		Divisions:         []string{"I"},
		PlayersPerBracket: 1,
		MatchesPerPlayer:  1,
	}).Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, w.tiers["GOLD"], 10)
	assert.Equal(t, 10, stats.RecordsDropped)
}

// TestExtractRecords tests that tier and rank come from the walked bracket
func TestExtractRecords(t *testing.T) {
	m := tenPlayerMatch("NA1_9")
	recs := ExtractRecords("NA1_9", riot.Bracket{Tier: "EMERALD", Division: "III"}, m)

	require.Len(t, recs, 10)
	assert.Equal(t, storage.ParticipantRecord{
		MatchID:      "NA1_9",
		Tier:         "EMERALD",
		Rank:         "EMERALD III",
		ChampionName: "Champ0",
		TeamID:       100,
		Win:          true,
	}, recs[0])
	assert.Equal(t, 200, recs[9].TeamID)
	assert.False(t, recs[9].Win)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		secs int
		want string
	}{
		{5, "5.0s"},
		{65, "1m05s"},
		{3723, "1h02m03s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(time.Duration(tt.secs)*time.Second))
	}
}
