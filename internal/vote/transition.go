package vote

import "github.com/pscheid92/threadpulse/internal/domain"

// Resolve applies the toggle policy: requesting the vote already held
// retracts it.
func Resolve(current, requested domain.Vote) domain.Vote {
	if requested == current {
		return domain.VoteNone
	}
	return requested
}

// Delta returns the counter changes for moving from one vote to another.
func Delta(from, to domain.Vote) (up, down int) {
	if from == to {
		return 0, 0
	}
	switch from {
	case domain.VoteUp:
		up--
	case domain.VoteDown:
		down--
	}
	switch to {
	case domain.VoteUp:
		up++
	case domain.VoteDown:
		down++
	}
	return up, down
}

// Apply moves t to target in one step. Counters never drop below zero.
func Apply(t domain.Tally, target domain.Vote) domain.Tally {
	up, down := Delta(t.Mine, target)
	return domain.Tally{
		Up:   max(t.Up+up, 0),
		Down: max(t.Down+down, 0),
		Mine: target,
	}
}

// Correct overlays the authoritative parts of a vote response on t. Fields
// missing from the response leave the local values untouched.
func Correct(t domain.Tally, res domain.VoteResult) domain.Tally {
	if res.TotalUpVotes != nil {
		t.Up = max(*res.TotalUpVotes, 0)
	}
	if res.TotalDownVotes != nil {
		t.Down = max(*res.TotalDownVotes, 0)
	}
	if mine, ok := res.Mine(); ok {
		t.Mine = mine
	}
	return t
}
