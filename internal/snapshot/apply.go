package snapshot

import (
	"aetheria.game/internal/protocol"
	"aetheria.game/internal/session"
)

// Apply replaces every category the snapshot reports and leaves the others
// untouched. It returns the slices it replaced, in a fixed order.
func Apply(sess *session.Session, msg protocol.SnapshotMsg) []session.Slice {
	o := session.Push()
	var out []session.Slice
	if msg.Players != nil {
		sess.ReplacePlayers(msg.Players, o)
		out = append(out, session.SlicePlayers)
	}
	if msg.Guilds != nil {
		sess.ReplaceGuildRanking(msg.Guilds, o)
		out = append(out, session.SliceGuildRanking)
	}
	if msg.Raid != nil {
		sess.ReplaceRaid(*msg.Raid, o)
		out = append(out, session.SliceRaid)
	}
	if msg.Contracts != nil {
		sess.ReplaceContract(*msg.Contracts, o)
		out = append(out, session.SliceContract)
	}
	if msg.Duels != nil {
		sess.ReplaceLeaderboard(msg.Duels, o)
		out = append(out, session.SliceLeaderboard)
	}
	if msg.GlobalChat != nil {
		sess.ReplaceGlobalChat(msg.GlobalChat, o)
		out = append(out, session.SliceGlobalChat)
	}
	if msg.PartyBoard != nil {
		sess.ReplaceBoard(msg.PartyBoard, o)
		out = append(out, session.SliceBoard)
	}
	if msg.Events != nil {
		sess.ReplaceEvents(msg.Events, o)
		out = append(out, session.SliceEvents)
	}
	if msg.Daily != nil {
		sess.ReplaceDaily(*msg.Daily, o)
		out = append(out, session.SliceDaily)
	}
	if msg.Poll != nil {
		sess.ReplacePoll(*msg.Poll, o)
		out = append(out, session.SlicePoll)
	}
	if msg.Commendations != nil {
		sess.ReplaceCommendations(*msg.Commendations, o)
		out = append(out, session.SliceCommendations)
	}
	if msg.Moderation != nil {
		sess.ReplaceModeration(*msg.Moderation, o)
		out = append(out, session.SliceModeration)
	}
	return out
}
