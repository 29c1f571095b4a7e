package analysis

import (
	"math"
	"sort"

	"meta-analyzer/internal/riot"
	"meta-analyzer/internal/storage"
)

// Team sums closer than this are a tie. Sums of the same win rates added
// in a different order can differ in the last bits.
const scoreTolerance = 1e-9

// TeamKey identifies one match as observed from one bracket. The same match
// fetched from two brackets yields two keys.
type TeamKey struct {
	MatchID string
	Tier    string
	Rank    string
}

// TeamScores holds the summed champion meta scores of each side.
// A side with no rows is missing, not zero.
type TeamScores struct {
	Blue    float64
	Red     float64
	HasBlue bool
	HasRed  bool
}

// Classification is the outcome table plus what was excluded from it
type Classification struct {
	Rows       []storage.OutcomeRow
	Ties       int // equal team scores
	Incomplete int // one side missing
}

// ChampionMetaScores returns each champion's observed win rate in [0, 1]
func ChampionMetaScores(records []storage.ParticipantRecord) map[string]float64 {
	type tally struct{ wins, games int }
	tallies := make(map[string]*tally)

	for _, r := range records {
		t, ok := tallies[r.ChampionName]
		if !ok {
			t = &tally{}
			tallies[r.ChampionName] = t
		}
		t.games++
		if r.Win {
			t.wins++
		}
	}

	scores := make(map[string]float64, len(tallies))
	for champ, t := range tallies {
		scores[champ] = float64(t.wins) / float64(t.games)
	}
	return scores
}

// TeamMetaScores sums meta scores per side of each (match, tier, rank).
// Rows on a team other than blue or red are ignored.
func TeamMetaScores(records []storage.ParticipantRecord, scores map[string]float64) map[TeamKey]TeamScores {
	teams := make(map[TeamKey]TeamScores)
	for _, r := range records {
		key := TeamKey{MatchID: r.MatchID, Tier: r.Tier, Rank: r.Rank}
		ts := teams[key]
		switch r.TeamID {
		case riot.TeamBlue:
			ts.Blue += scores[r.ChampionName]
			ts.HasBlue = true
		case riot.TeamRed:
			ts.Red += scores[r.ChampionName]
			ts.HasRed = true
		default:
			continue
		}
		teams[key] = ts
	}
	return teams
}

// BlueTeamWins maps each match to the win flag of its first blue-side row
func BlueTeamWins(records []storage.ParticipantRecord) map[string]bool {
	wins := make(map[string]bool)
	for _, r := range records {
		if r.TeamID != riot.TeamBlue {
			continue
		}
		if _, ok := wins[r.MatchID]; !ok {
			wins[r.MatchID] = r.Win
		}
	}
	return wins
}

// Classify decides for every complete, untied match whether the side with
// the higher meta score won. Rows come back sorted by match, tier, rank.
func Classify(teams map[TeamKey]TeamScores, blueWins map[string]bool) Classification {
	var c Classification

	for key, ts := range teams {
		if !ts.HasBlue || !ts.HasRed {
			c.Incomplete++
			continue
		}
		diff := ts.Blue - ts.Red
		if math.Abs(diff) <= scoreTolerance {
			c.Ties++
			continue
		}

		blueWon := blueWins[key.MatchID]
		metaWon := blueWon
		if diff < 0 {
			metaWon = !blueWon
		}

		c.Rows = append(c.Rows, storage.OutcomeRow{
			MatchID:        key.MatchID,
			Tier:           key.Tier,
			Rank:           key.Rank,
			DidBlueTeamWin: blueWon,
			DidMetaTeamWin: metaWon,
		})
	}

	sort.Slice(c.Rows, func(i, j int) bool {
		a, b := c.Rows[i], c.Rows[j]
		if a.MatchID != b.MatchID {
			return a.MatchID < b.MatchID
		}
		if a.Tier != b.Tier {
			return a.Tier < b.Tier
		}
		return a.Rank < b.Rank
	})
	return c
}

// Analyze runs the estimator, aggregator and classifier over a master table
func Analyze(records []storage.ParticipantRecord) Classification {
	scores := ChampionMetaScores(records)
	teams := TeamMetaScores(records, scores)
	return Classify(teams, BlueTeamWins(records))
}
