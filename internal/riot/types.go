package riot

// LeagueEntryResponse represents one ladder entry from /lol/league/v4/entries/{queue}/{tier}/{division}
type LeagueEntryResponse struct {
	LeagueID     string `json:"leagueId"`
	PUUID        string `json:"puuid"`
	QueueType    string `json:"queueType"` // RANKED_SOLO_5x5, RANKED_FLEX_SR
	Tier         string `json:"tier"`      // IRON ... DIAMOND
	Rank         string `json:"rank"`      // I, II, III, IV
	LeaguePoints int    `json:"leaguePoints"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
}

// MatchResponse represents the response from /lol/match/v5/matches/{matchId}
type MatchResponse struct {
	Metadata MatchMetadata `json:"metadata"`
	Info     MatchInfo     `json:"info"`
}

type MatchMetadata struct {
	MatchID      string   `json:"matchId"`
	Participants []string `json:"participants"` // PUUIDs
}

type MatchInfo struct {
	GameCreation int64              `json:"gameCreation"`
	GameDuration int                `json:"gameDuration"`
	GameVersion  string             `json:"gameVersion"`
	QueueID      int                `json:"queueId"`
	Participants []MatchParticipant `json:"participants"`
}

type MatchParticipant struct {
	ParticipantID int    `json:"participantId"`
	PUUID         string `json:"puuid"`
	ChampionID    int    `json:"championId"`
	ChampionName  string `json:"championName"`
	TeamID        int    `json:"teamId"` // 100 = blue, 200 = red
	TeamPosition  string `json:"teamPosition"`
	Win           bool   `json:"win"`
}

// Team IDs used by match-v5
const (
	TeamBlue = 100
	TeamRed  = 200
)
