package protocol

// LoginResponse is the authentication bundle that seeds a session.
type LoginResponse struct {
	Username        string           `json:"username"`
	ActionPoints    int              `json:"action_points"`
	MaxActionPoints int              `json:"max_action_points"`
	RechargePerHour int              `json:"recharge_per_hour"`
	Hero            Hero             `json:"hero"`
	Profile         Profile          `json:"profile"`
	StartPosition   *Position        `json:"start_position,omitempty"`
	Guild           string           `json:"guild,omitempty"`
	GuildChat       []ChatMessage    `json:"guild_chat"`
	GlobalChat      []ChatMessage    `json:"global_chat"`
	DuelStats       DuelStats        `json:"duel_stats"`
	DuelLeaderboard []DuelRank       `json:"duel_leaderboard"`
	PartyBoard      []PartyEntry     `json:"party_board"`
	Events          []CommunityEvent `json:"events"`
	Social          SocialState      `json:"social"`
	Presence        Presence         `json:"presence"`
	Daily           *DailyChallenge  `json:"daily,omitempty"`
	Poll            *Poll            `json:"poll,omitempty"`
	Commendations   *Commendations   `json:"commendations,omitempty"`
	Moderation      *Moderation      `json:"moderation,omitempty"`
	SessionToken    string           `json:"session_token,omitempty"`
}

type ActionResponse struct {
	Username        string `json:"username"`
	ActionPoints    int    `json:"action_points"`
	MaxActionPoints int    `json:"max_action_points"`
}

type AdventureOutcome struct {
	Summary   string `json:"summary"`
	XPGain    int    `json:"xp_gain"`
	GoldGain  int    `json:"gold_gain"`
	HPDelta   int    `json:"hp_delta"`
	ItemFound string `json:"item_found,omitempty"`
	LevelUps  int    `json:"level_ups"`
}

type AdventureResponse struct {
	Username        string           `json:"username"`
	ActionPoints    int              `json:"action_points"`
	MaxActionPoints int              `json:"max_action_points"`
	Hero            Hero             `json:"hero"`
	Outcome         AdventureOutcome `json:"outcome"`
}

type EquipResponse struct {
	Hero Hero `json:"hero"`
}

// GuildResponse answers create/join/leave/chat. Guild is empty after a leave.
type GuildResponse struct {
	Guild       string        `json:"guild,omitempty"`
	MemberCount int           `json:"member_count,omitempty"`
	Chat        []ChatMessage `json:"chat"`
}

type GuildListResponse struct {
	Guilds []GuildRank `json:"guilds"`
}

type BossRef struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
}

type RaidAttackResponse struct {
	Damage       int       `json:"damage"`
	ActionPoints int       `json:"action_points"`
	Defeated     bool      `json:"defeated"`
	DefeatedBoss *BossRef  `json:"defeated_boss,omitempty"`
	Raid         RaidState `json:"raid"`
}

type ContractReward struct {
	Gold     int    `json:"gold"`
	XP       int    `json:"xp"`
	Contract string `json:"contract"`
}

type ContributeResponse struct {
	ActionPoints int             `json:"action_points"`
	Contribution int             `json:"contribution"`
	Completed    bool            `json:"completed"`
	Reward       *ContractReward `json:"reward,omitempty"`
	Contract     ContractState   `json:"contract"`
	Hero         Hero            `json:"hero"`
}

type DuelCombat struct {
	Winner              string   `json:"winner"`
	Log                 []string `json:"log"`
	AttackerRemainingHP int      `json:"attacker_remaining_hp"`
	DefenderRemainingHP int      `json:"defender_remaining_hp"`
	AttackerStats       Stats    `json:"attacker_stats"`
	DefenderStats       Stats    `json:"defender_stats"`
	AttackerBurst       int      `json:"attacker_burst"`
	DefenderBurst       int      `json:"defender_burst"`
}

type DuelResponse struct {
	ActionPoints    int          `json:"action_points"`
	Summary         string       `json:"summary"`
	Winner          string       `json:"winner"`
	Combat          DuelCombat   `json:"combat"`
	DuelStats       DuelStats    `json:"duel_stats"`
	DuelLeaderboard []DuelRank   `json:"duel_leaderboard"`
	Social          *SocialState `json:"social,omitempty"`
}

type LeaderboardResponse struct {
	Leaderboard []DuelRank `json:"leaderboard"`
}

type FriendResponse struct {
	Status string      `json:"status,omitempty"`
	Social SocialState `json:"social"`
}

type BoardResponse struct {
	Action  string       `json:"action,omitempty"`
	Entries []PartyEntry `json:"entries"`
}

type ChatResponse struct {
	Chat []ChatMessage `json:"chat"`
}

type PresenceResponse struct {
	Username string      `json:"username"`
	Presence Presence    `json:"presence"`
	Social   SocialState `json:"social"`
}

type EventsResponse struct {
	Events []CommunityEvent `json:"events"`
}

type Reward struct {
	Gold         int `json:"gold"`
	XP           int `json:"xp,omitempty"`
	ActionPoints int `json:"action_points,omitempty"`
}

type DailyClaimResponse struct {
	Reward       Reward         `json:"reward"`
	Hero         Hero           `json:"hero"`
	ActionPoints int            `json:"action_points"`
	Daily        DailyChallenge `json:"daily"`
}

type PollVoteResponse struct {
	Reward        Reward      `json:"reward"`
	Hero          Hero        `json:"hero"`
	Rotated       bool        `json:"rotated"`
	WinningOption *PollOption `json:"winning_option,omitempty"`
	Poll          Poll        `json:"poll"`
}

type CommendResponse struct {
	Target        string        `json:"target"`
	Received      int           `json:"received"`
	Commendations Commendations `json:"commendations"`
}

type ReportResponse struct {
	Target     string     `json:"target"`
	Reports    int        `json:"reports"`
	Threshold  int        `json:"threshold"`
	Muted      bool       `json:"muted"`
	Moderation Moderation `json:"moderation"`
}
