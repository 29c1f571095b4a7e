package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"meta-analyzer/internal/ratelimit"
	"meta-analyzer/internal/riot"
	"meta-analyzer/internal/storage"

	"github.com/bits-and-blooms/bloom/v3"
)

const (
	DefaultPlayersPerBracket = 50
	DefaultMatchesPerPlayer  = 15

	// Only the first page of league entries is walked
	leaguePage = 1

	dedupeFalsePositiveRate = 0.001
)

// MatchSource is the slice of the Riot API the walk needs
type MatchSource interface {
	GetLeagueEntries(ctx context.Context, tier, division string, page int) ([]riot.LeagueEntryResponse, error)
	GetMatchHistory(ctx context.Context, puuid string, count, queue int) ([]string, error)
	GetMatch(ctx context.Context, matchID string) (*riot.MatchResponse, error)
}

// TierWriter persists a finished tier's table
type TierWriter interface {
	WriteTier(tier string, records []storage.ParticipantRecord) (string, error)
}

// Config holds the walk parameters
type Config struct {
	Tiers             []string
	Divisions         []string
	PlayersPerBracket int
	MatchesPerPlayer  int
	QueueID           int
}

// Collector walks tier -> division -> player -> match list -> match detail,
// one request at a time, and writes one table per tier
type Collector struct {
	source  MatchSource
	writer  TierWriter
	limiter ratelimit.Limiter
	cfg     Config

	logger *log.Logger
	out    io.Writer // progress lines

	// Deduplication (off unless WithDedupe)
	visitedMatches *bloom.BloomFilter

	stats     Stats
	startTime time.Time
}

// Option configures a Collector
type Option func(*Collector)

// WithLogger sets the logger used for errors and skips
func WithLogger(l *log.Logger) Option {
	return func(c *Collector) {
		c.logger = l
	}
}

// WithOutput sets where progress lines and the summary are printed
func WithOutput(w io.Writer) Option {
	return func(c *Collector) {
		c.out = w
	}
}

// WithDedupe skips match IDs already fetched earlier in the run. The check
// is a bloom filter, so about one unseen match in a thousand is skipped too.
func WithDedupe() Option {
	return func(c *Collector) {
		expected := len(c.cfg.Tiers) * len(c.cfg.Divisions) * c.cfg.PlayersPerBracket * c.cfg.MatchesPerPlayer
		if expected <= 0 {
			expected = 1
		}
		c.visitedMatches = bloom.NewWithEstimates(uint(expected), dedupeFalsePositiveRate)
	}
}

// New creates a collector. A nil limiter means no pacing.
func New(source MatchSource, writer TierWriter, limiter ratelimit.Limiter, cfg Config, opts ...Option) *Collector {
	if cfg.PlayersPerBracket <= 0 {
		cfg.PlayersPerBracket = DefaultPlayersPerBracket
	}
	if cfg.MatchesPerPlayer <= 0 {
		cfg.MatchesPerPlayer = DefaultMatchesPerPlayer
	}
	if cfg.QueueID == 0 {
		cfg.QueueID = riot.RankedSoloQueueID
	}
	if limiter == nil {
		limiter = ratelimit.Noop{}
	}

	c := &Collector{
		source:  source,
		writer:  writer,
		limiter: limiter,
		cfg:     cfg,
		logger:  log.Default(),
		out:     os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run walks every configured bracket. Cancelling ctx stops the walk between
// requests; the tier in progress is discarded and earlier tier files stay.
// The returned error is non-nil only when a tier file could not be written.
func (c *Collector) Run(ctx context.Context) (Stats, error) {
	c.startTime = time.Now()
	c.stats = Stats{}

	brackets := riot.Brackets(c.cfg.Tiers, c.cfg.Divisions)
	capacity := storage.BufferCapacity(len(c.cfg.Divisions), c.cfg.PlayersPerBracket, c.cfg.MatchesPerPlayer)
	buf := storage.NewTierBuffer("", capacity)

	interrupted := false
	for i, b := range brackets {
		// A finished tier is flushed even if ctx is already done
		if b.Tier != buf.Tier() {
			if i > 0 {
				if err := c.flushTier(buf); err != nil {
					return c.finish(), err
				}
			}
			buf.Reset(b.Tier)
		}

		if ctx.Err() != nil {
			interrupted = true
			break
		}

		fmt.Fprintf(c.out, "\n[Bracket %d/%d] [%s] %s\n",
			i+1, len(brackets), formatDuration(time.Since(c.startTime)), b)

		if err := c.walkBracket(ctx, b, buf); err != nil {
			interrupted = true
			break
		}
	}

	if interrupted {
		c.stats.Interrupted = true
		if buf.Len() > 0 {
			c.logger.Printf("[Collector] Interrupted during %s, discarding %d unsaved records", buf.Tier(), buf.Len())
		}
		return c.finish(), nil
	}

	if len(brackets) > 0 {
		if err := c.flushTier(buf); err != nil {
			return c.finish(), err
		}
	}
	return c.finish(), nil
}

// walkBracket fetches one bracket's players and their matches into buf.
// It returns an error only when ctx is done.
func (c *Collector) walkBracket(ctx context.Context, b riot.Bracket, buf *storage.TierBuffer) error {
	players, err := c.fetchPlayers(ctx, b)
	if err != nil {
		return err
	}

	for i, puuid := range players {
		if err := ctx.Err(); err != nil {
			return err
		}

		matchIDs, err := c.fetchMatchIDs(ctx, puuid)
		if err != nil {
			return err
		}
		if matchIDs == nil {
			continue
		}
		c.stats.PlayersProcessed++

		fmt.Fprintf(c.out, "  [Player %d/%d] %s... (%d matches)\n",
			i+1, len(players), shortID(puuid), len(matchIDs))

		for _, matchID := range matchIDs {
			if err := ctx.Err(); err != nil {
				return err
			}

			if c.visitedMatches != nil {
				if c.visitedMatches.TestString(matchID) {
					c.stats.MatchesDeduped++
					continue
				}
				c.visitedMatches.AddString(matchID)
			}

			match, err := c.fetchMatch(ctx, matchID)
			if match != nil {
				c.addRecords(buf, ExtractRecords(matchID, b, match))
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// fetchPlayers returns up to PlayersPerBracket puuids. A failed request
// backs off and yields no players, skipping the bracket.
func (c *Collector) fetchPlayers(ctx context.Context, b riot.Bracket) ([]string, error) {
	entries, err := c.source.GetLeagueEntries(ctx, b.Tier, b.Division, leaguePage)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.stats.BracketsSkipped++
		c.logger.Printf("[Collector] Failed to fetch players for %s: %v (skipping bracket)", b, err)
		return nil, c.limiter.Backoff(ctx)
	}
	c.stats.BracketsWalked++

	if len(entries) > c.cfg.PlayersPerBracket {
		entries = entries[:c.cfg.PlayersPerBracket]
	}
	players := make([]string, 0, len(entries))
	for _, e := range entries {
		players = append(players, e.PUUID)
	}
	return players, c.limiter.Wait(ctx)
}

// fetchMatchIDs returns the player's recent ranked match IDs, or nil when
// the request failed and the player is skipped
func (c *Collector) fetchMatchIDs(ctx context.Context, puuid string) ([]string, error) {
	ids, err := c.source.GetMatchHistory(ctx, puuid, c.cfg.MatchesPerPlayer, c.cfg.QueueID)
	waitErr := c.limiter.Wait(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.stats.PlayersSkipped++
			c.logger.Printf("[Collector] Failed to fetch match history for %s: %v (skipping player)", shortID(puuid), err)
		}
		return nil, waitErr
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, waitErr
}

// fetchMatch fetches one match. The limiter wait runs whether or not the
// request succeeded; a nil match means the match is skipped.
func (c *Collector) fetchMatch(ctx context.Context, matchID string) (*riot.MatchResponse, error) {
	match, err := c.source.GetMatch(ctx, matchID)
	waitErr := c.limiter.Wait(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.stats.MatchesFailed++
			c.logger.Printf("[Collector] Failed to fetch %s: %v", matchID, err)
		}
		return nil, waitErr
	}
	c.stats.MatchesFetched++
	return match, waitErr
}

func (c *Collector) addRecords(buf *storage.TierBuffer, records []storage.ParticipantRecord) {
	for _, rec := range records {
		if err := buf.Add(rec); err != nil {
			if errors.Is(err, storage.ErrBufferFull) && buf.Dropped() == 1 {
				c.logger.Printf("[Collector] Tier %s buffer full at %d records, dropping further records", buf.Tier(), buf.Len())
			}
			c.stats.RecordsDropped++
			continue
		}
		c.stats.Records++
	}
}

// flushTier writes the finished tier, or skips it when nothing was collected
func (c *Collector) flushTier(buf *storage.TierBuffer) error {
	if buf.Len() == 0 {
		c.stats.EmptyTiers = append(c.stats.EmptyTiers, buf.Tier())
		c.logger.Printf("[Collector] No data collected for %s, skipping file", buf.Tier())
		return nil
	}

	path, err := c.writer.WriteTier(buf.Tier(), buf.Records())
	if err != nil {
		return fmt.Errorf("collection aborted: %w", err)
	}
	c.stats.TierFiles = append(c.stats.TierFiles, path)
	fmt.Fprintf(c.out, "[Collector] Saved %d records for %s to %s\n", buf.Len(), buf.Tier(), path)
	return nil
}

func (c *Collector) finish() Stats {
	c.stats.Elapsed = time.Since(c.startTime)
	c.printSummary()
	return c.stats
}

// ExtractRecords flattens a match into one record per participant, tagged
// with the bracket being walked
func ExtractRecords(matchID string, b riot.Bracket, match *riot.MatchResponse) []storage.ParticipantRecord {
	records := make([]storage.ParticipantRecord, 0, len(match.Info.Participants))
	for _, p := range match.Info.Participants {
		records = append(records, storage.ParticipantRecord{
			MatchID:      matchID,
			Tier:         b.Tier,
			Rank:         b.String(),
			ChampionName: p.ChampionName,
			TeamID:       p.TeamID,
			Win:          p.Win,
		})
	}
	return records
}

func shortID(puuid string) string {
	return puuid[:min(16, len(puuid))]
}
