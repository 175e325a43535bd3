package session

import "aetheria.game/internal/protocol"

// The community slices come in two shapes: the shared board every snapshot
// broadcasts, and the same board with a personal part when a request named
// this player. A replacement without the personal part keeps the one already
// cached, unless the board moved on to a new day or season.

func (s *Session) ReplaceDaily(d protocol.DailyChallenge, o Origin) {
	in := cloneDaily(&d)
	s.write(SliceDaily, o, *in, func(st *State) {
		if in.Personal == nil && st.Daily != nil && st.Daily.Date == in.Date {
			in.Personal = st.Daily.Personal
		}
		st.Daily = in
	})
}

func (s *Session) ReplacePoll(p protocol.Poll, o Origin) {
	in := clonePoll(&p)
	s.write(SlicePoll, o, *in, func(st *State) {
		if in.PersonalVote == nil && st.Poll != nil && st.Poll.Season == in.Season {
			in.PersonalVote = st.Poll.PersonalVote
		}
		st.Poll = in
	})
}

func (s *Session) ReplaceCommendations(c protocol.Commendations, o Origin) {
	in := cloneCommendations(&c)
	s.write(SliceCommendations, o, *in, func(st *State) {
		if in.Personal == nil && st.Commendations != nil {
			in.Personal = st.Commendations.Personal
		}
		st.Commendations = in
	})
}

func (s *Session) ReplaceModeration(m protocol.Moderation, o Origin) {
	in := cloneModeration(&m)
	s.write(SliceModeration, o, *in, func(st *State) {
		if in.Personal == nil && st.Moderation != nil {
			in.Personal = st.Moderation.Personal
		}
		st.Moderation = in
	})
}

func (s *Session) Daily() *protocol.DailyChallenge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneDaily(s.st.Daily)
}

func (s *Session) Poll() *protocol.Poll {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clonePoll(s.st.Poll)
}

func (s *Session) Commendations() *protocol.Commendations {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneCommendations(s.st.Commendations)
}

func (s *Session) Moderation() *protocol.Moderation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneModeration(s.st.Moderation)
}

func cloneDaily(d *protocol.DailyChallenge) *protocol.DailyChallenge {
	if d == nil {
		return nil
	}
	out := *d
	out.Ranking = append([]protocol.DailyRank(nil), d.Ranking...)
	if d.Personal != nil {
		p := *d.Personal
		out.Personal = &p
	}
	return &out
}

func clonePoll(p *protocol.Poll) *protocol.Poll {
	if p == nil {
		return nil
	}
	out := *p
	out.Options = append([]protocol.PollOption(nil), p.Options...)
	if p.PersonalVote != nil {
		v := *p.PersonalVote
		out.PersonalVote = &v
	}
	return &out
}

func cloneCommendations(c *protocol.Commendations) *protocol.Commendations {
	if c == nil {
		return nil
	}
	out := *c
	out.Leaderboard = append([]protocol.CommendRank(nil), c.Leaderboard...)
	if c.Personal != nil {
		p := *c.Personal
		p.AlreadyCommended = append([]string(nil), c.Personal.AlreadyCommended...)
		out.Personal = &p
	}
	return &out
}

func cloneModeration(m *protocol.Moderation) *protocol.Moderation {
	if m == nil {
		return nil
	}
	out := *m
	if m.Personal != nil {
		p := *m.Personal
		out.Personal = &p
	}
	return &out
}
