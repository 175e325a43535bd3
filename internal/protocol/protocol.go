package protocol

import "encoding/json"

// Push message types.
const (
	TypeSnapshot = "snapshot"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type string `json:"type"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

// SnapshotMsg is the consolidated push broadcast. Every category is optional:
// a nil field means the message did not report it. Nil fields encode as null,
// which decodes back to nil, so an empty list is distinct from an absent one.
type SnapshotMsg struct {
	Type       string                    `json:"type"`
	Players    map[string]PlayerPresence `json:"players"`
	Guilds     []GuildRank               `json:"guilds"`
	Raid       *RaidState                `json:"raid"`
	Contracts  *ContractState            `json:"contracts"`
	Duels      []DuelRank                `json:"duels"`
	GlobalChat []ChatMessage             `json:"global_chat"`
	PartyBoard []PartyEntry              `json:"party_board"`
	Events     []CommunityEvent          `json:"events"`

	Daily         *DailyChallenge `json:"daily"`
	Poll          *Poll           `json:"poll"`
	Commendations *Commendations  `json:"commendations"`
	Moderation    *Moderation     `json:"moderation"`
}

func DecodeSnapshot(b []byte) (SnapshotMsg, error) {
	var m SnapshotMsg
	err := json.Unmarshal(b, &m)
	return m, err
}
