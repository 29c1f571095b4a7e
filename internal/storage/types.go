package storage

import "strconv"

// Column headers of the per-tier tables
var TierColumns = []string{
	"matchId",
	"tier_scraped_from",
	"rank_scraped_from",
	"championName",
	"teamId",
	"win",
}

// Column headers of the final analysis table
var FinalColumns = []string{
	"matchId",
	"tier_scraped_from",
	"rank_scraped_from",
	"did_meta_team_win",
}

// ParticipantRecord is one participant of one fetched match.
// Ten rows per match; Tier and Rank are the bracket being walked when the
// match was fetched, not a property of the match itself.
type ParticipantRecord struct {
	MatchID      string
	Tier         string // GOLD
	Rank         string // GOLD I
	ChampionName string
	TeamID       int // 100 blue, 200 red
	Win          bool
}

func (r ParticipantRecord) row() []string {
	return []string{
		r.MatchID,
		r.Tier,
		r.Rank,
		r.ChampionName,
		strconv.Itoa(r.TeamID),
		strconv.FormatBool(r.Win),
	}
}

// OutcomeRow is one classified match of the final analysis
type OutcomeRow struct {
	MatchID        string
	Tier           string
	Rank           string
	DidBlueTeamWin bool
	DidMetaTeamWin bool
}

// Only the meta outcome is exported; the blue outcome is an intermediate
func (o OutcomeRow) row() []string {
	return []string{
		o.MatchID,
		o.Tier,
		o.Rank,
		strconv.FormatBool(o.DidMetaTeamWin),
	}
}
