package protocol

// World geometry (GET /api/world).
type World struct {
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	StartingVillages []Point `json:"starting_villages"`
	Villages         []Point `json:"villages"`
	Battlefields     []Point `json:"battlefields"`
	Merchants        []Point `json:"merchants"`
	UpdatedAt        string  `json:"updated_at,omitempty"`
}

type Point struct {
	Name string `json:"name"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Stats struct {
	Atk int `json:"atk"`
	Def int `json:"def"`
	Vit int `json:"vit"`
	Int int `json:"int"`
}

// Hero is the authoritative hero record. Equipment maps slot -> item name;
// an empty slot decodes as "".
type Hero struct {
	Level     int               `json:"level"`
	XP        int               `json:"xp"`
	Gold      int               `json:"gold"`
	HP        int               `json:"hp"`
	MaxHP     int               `json:"max_hp"`
	Inventory []string          `json:"inventory"`
	Equipment map[string]string `json:"equipment,omitempty"`
	Stats     Stats             `json:"stats"`
}

type Profile struct {
	Hair            string `json:"hair"`
	Eyes            string `json:"eyes"`
	Mouth           string `json:"mouth"`
	Nose            string `json:"nose"`
	Ears            string `json:"ears"`
	SkinTone        string `json:"skin_tone"`
	StartingVillage string `json:"starting_village"`
}

type ChatMessage struct {
	Author    string `json:"author"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

type Presence struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

type PlayerPresence struct {
	ActionPoints int      `json:"action_points"`
	Presence     Presence `json:"presence"`
}

type GuildRank struct {
	Name        string `json:"name"`
	MemberCount int    `json:"member_count"`
}

type RaidRank struct {
	Guild  string `json:"guild"`
	Damage int    `json:"damage"`
}

type RaidState struct {
	Name        string     `json:"name"`
	Level       int        `json:"level"`
	MaxHP       int        `json:"max_hp"`
	HP          int        `json:"hp"`
	Ranking     []RaidRank `json:"ranking"`
	LastResetAt string     `json:"last_reset_at,omitempty"`
}

type Contributor struct {
	Username string `json:"username"`
	Points   int    `json:"points"`
}

type ContractState struct {
	Season         int           `json:"season"`
	Goal           int           `json:"goal"`
	Progress       int           `json:"progress"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Contributors   []Contributor `json:"contributors"`
	LastRotationAt string        `json:"last_rotation_at,omitempty"`
}

type DuelStats struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
}

type DuelRank struct {
	Username string `json:"username"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
	Total    int    `json:"total"`
}

type PartyEntry struct {
	ID                int      `json:"id"`
	Author            string   `json:"author"`
	Activity          string   `json:"activity"`
	Message           string   `json:"message"`
	Roles             string   `json:"roles,omitempty"`
	MinLevel          int      `json:"min_level,omitempty"`
	MaxMembers        int      `json:"max_members,omitempty"`
	CreatedAt         string   `json:"created_at"`
	InterestedPlayers []string `json:"interested_players"`
	ReadyPlayers      []string `json:"ready_players,omitempty"`
	IsFull            bool     `json:"is_full,omitempty"`
	IsLaunched        bool     `json:"is_launched,omitempty"`
	LaunchedAt        string   `json:"launched_at,omitempty"`
}

type CommunityEvent struct {
	Category  string `json:"category"`
	Message   string `json:"message"`
	Actor     string `json:"actor,omitempty"`
	CreatedAt string `json:"created_at"`
}

type Friend struct {
	Username string   `json:"username"`
	Online   bool     `json:"online"`
	Presence Presence `json:"presence"`
}

type SocialState struct {
	Friends          []Friend `json:"friends"`
	IncomingRequests []string `json:"incoming_requests"`
	OutgoingRequests []string `json:"outgoing_requests"`
}

type ItemDef struct {
	Name   string `json:"name"`
	Slot   string `json:"slot"`
	Image  string `json:"image,omitempty"`
	Rarity string `json:"rarity,omitempty"`
}

// Options is the item and character catalog (GET /api/options).
type Options struct {
	Character        map[string][]string `json:"character"`
	StartingVillages []Point             `json:"starting_villages"`
	Items            []ItemDef           `json:"items"`
}

// DailyChallenge is the shared daily board. Personal is only present when
// the request named a player.
type DailyChallenge struct {
	Date        string         `json:"date"`
	Targets     DailyTargets   `json:"targets"`
	Ranking     []DailyRank    `json:"ranking"`
	LastResetAt string         `json:"last_reset_at,omitempty"`
	Personal    *DailyProgress `json:"personal,omitempty"`
}

type DailyTargets struct {
	Explore int `json:"explore"`
	Social  int `json:"social"`
	Combat  int `json:"combat"`
}

type DailyRank struct {
	Username    string `json:"username"`
	Completions int    `json:"completions"`
}

type DailyProgress struct {
	Explore   int  `json:"explore"`
	Social    int  `json:"social"`
	Combat    int  `json:"combat"`
	Claimed   bool `json:"claimed"`
	Completed bool `json:"completed"`
}

// Poll is the community vote of the current season. PersonalVote is nil when
// the player has not voted or was not named.
type Poll struct {
	Season         int          `json:"season"`
	Question       string       `json:"question"`
	Goal           int          `json:"goal"`
	TotalVotes     int          `json:"total_votes"`
	Options        []PollOption `json:"options"`
	LastRotationAt string       `json:"last_rotation_at,omitempty"`
	PersonalVote   *int         `json:"personal_vote,omitempty"`
}

type PollOption struct {
	OptionID int     `json:"option_id"`
	Label    string  `json:"label"`
	Votes    int     `json:"votes"`
	Percent  float64 `json:"percent"`
}

type Commendations struct {
	DailyLimit  int                   `json:"daily_limit"`
	Leaderboard []CommendRank         `json:"leaderboard"`
	Personal    *CommendationPersonal `json:"personal,omitempty"`
}

type CommendRank struct {
	Username string `json:"username"`
	Received int    `json:"received"`
}

type CommendationPersonal struct {
	Remaining        int      `json:"remaining"`
	AlreadyCommended []string `json:"already_commended"`
	Received         int      `json:"received"`
}

// Moderation carries the chat report policy and, for a named player, the
// current mute.
type Moderation struct {
	ReportThreshold     int                 `json:"report_threshold"`
	MuteDurationMinutes int                 `json:"mute_duration_minutes"`
	Personal            *ModerationPersonal `json:"personal,omitempty"`
}

type ModerationPersonal struct {
	IsMuted    bool   `json:"is_muted"`
	MutedUntil string `json:"muted_until,omitempty"`
}
