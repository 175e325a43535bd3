package view

import (
	"fmt"
	"time"

	"aetheria.game/internal/protocol"
	"aetheria.game/internal/session"
)

type DailyLine struct {
	Date      string
	Explore   string
	Social    string
	Combat    string
	Claimable bool
	Claimed   bool
	Ranking   []protocol.DailyRank
}

type PollLine struct {
	Season   int
	Question string
	Votes    string
	Voted    bool
	Options  []PollChoice
}

type PollChoice struct {
	ID      int
	Label   string
	Votes   int
	Percent string
	Mine    bool
}

type CommendLine struct {
	Remaining   int
	Limit       int
	Received    int
	Given       []string
	Leaderboard []protocol.CommendRank
}

func community(v *View, st session.State, now time.Time) {
	if d := st.Daily; d != nil {
		line := &DailyLine{Date: d.Date, Ranking: append([]protocol.DailyRank(nil), d.Ranking...)}
		var p protocol.DailyProgress
		if d.Personal != nil {
			p = *d.Personal
		}
		line.Explore = fmt.Sprintf("%d/%d", p.Explore, d.Targets.Explore)
		line.Social = fmt.Sprintf("%d/%d", p.Social, d.Targets.Social)
		line.Combat = fmt.Sprintf("%d/%d", p.Combat, d.Targets.Combat)
		line.Claimed = p.Claimed
		line.Claimable = p.Completed && !p.Claimed
		v.Daily = line
	}
	if p := st.Poll; p != nil {
		line := &PollLine{
			Season:   p.Season,
			Question: p.Question,
			Votes:    fmt.Sprintf("%d/%d", p.TotalVotes, p.Goal),
			Voted:    p.PersonalVote != nil,
		}
		for _, o := range p.Options {
			line.Options = append(line.Options, PollChoice{
				ID:      o.OptionID,
				Label:   o.Label,
				Votes:   o.Votes,
				Percent: fmt.Sprintf("%.1f%%", o.Percent),
				Mine:    p.PersonalVote != nil && *p.PersonalVote == o.OptionID,
			})
		}
		v.Poll = line
	}
	if c := st.Commendations; c != nil {
		line := &CommendLine{
			Remaining:   c.DailyLimit,
			Limit:       c.DailyLimit,
			Leaderboard: append([]protocol.CommendRank(nil), c.Leaderboard...),
		}
		if c.Personal != nil {
			line.Remaining = c.Personal.Remaining
			line.Received = c.Personal.Received
			line.Given = append([]string(nil), c.Personal.AlreadyCommended...)
		}
		v.Commend = line
	}
	v.Muted = mutedFor(st.Moderation, now)
}

// mutedFor renders a running mute as a relative end time.
func mutedFor(m *protocol.Moderation, now time.Time) string {
	if m == nil || m.Personal == nil || !m.Personal.IsMuted {
		return ""
	}
	for _, layout := range stampLayouts {
		if t, err := time.Parse(layout, m.Personal.MutedUntil); err == nil {
			if !now.Before(t) {
				return ""
			}
			return ago(m.Personal.MutedUntil, now)
		}
	}
	return ""
}
