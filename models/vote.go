package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// VoteType is the direction of a vote
type VoteType string

// Vote directions
const (
	VoteUp   VoteType = "up"
	VoteDown VoteType = "down"
)

// Valid reports whether v is up or down
func (v VoteType) Valid() bool {
	return v == VoteUp || v == VoteDown
}

// Voter records one user's active vote on an issue
type Voter struct {
	User     primitive.ObjectID `json:"user" bson:"user"`
	VoteType VoteType           `json:"voteType" bson:"voteType"`
}

// VoteInput is the body of a vote request
type VoteInput struct {
	VoteType VoteType `json:"voteType" validate:"required,votetype"`
}

// VoteAction is the branch a vote takes
type VoteAction int

// Vote branches
const (
	// VoteAdded means the user had no vote and now has one
	VoteAdded VoteAction = iota
	// VoteRemoved means the user resubmitted the same direction and the vote was toggled off
	VoteRemoved
	// VoteChanged means the user flipped direction
	VoteChanged
)

func (a VoteAction) String() string {
	switch a {
	case VoteAdded:
		return "added"
	case VoteRemoved:
		return "removed"
	case VoteChanged:
		return "changed"
	}
	return "unknown"
}

// VotePlan describes the atomic mutation a vote needs. Previous is the direction the
// stored voter entry must still have for the update to apply (empty for VoteAdded).
type VotePlan struct {
	Action   VoteAction
	User     primitive.ObjectID
	Previous VoteType
	Next     VoteType
}

// Current is the caller's vote after the plan applies, empty when toggled off
func (p VotePlan) Current() VoteType {
	if p.Action == VoteRemoved {
		return ""
	}
	return p.Next
}

// PlanVote decides how a vote by user changes issue and returns the next state along
// with the plan the store applies atomically.
func PlanVote(issue Issue, user primitive.ObjectID, voteType VoteType) (Issue, VotePlan) {
	plan := VotePlan{Action: VoteAdded, User: user, Next: voteType}
	idx := -1
	for i, v := range issue.Voters {
		if v.User == user {
			idx = i
			plan.Previous = v.VoteType
			break
		}
	}
	if idx >= 0 {
		if plan.Previous == voteType {
			plan.Action = VoteRemoved
		} else {
			plan.Action = VoteChanged
		}
	}
	return plan.Apply(issue), plan
}

// Apply returns issue with the plan applied. The voters slice is copied.
func (p VotePlan) Apply(issue Issue) Issue {
	voters := make([]Voter, 0, len(issue.Voters)+1)
	switch p.Action {
	case VoteAdded:
		voters = append(voters, issue.Voters...)
		voters = append(voters, Voter{User: p.User, VoteType: p.Next})
		issue.adjust(p.Next, 1)
	case VoteRemoved:
		for _, v := range issue.Voters {
			if v.User != p.User {
				voters = append(voters, v)
			}
		}
		issue.adjust(p.Previous, -1)
	case VoteChanged:
		for _, v := range issue.Voters {
			if v.User == p.User {
				v.VoteType = p.Next
			}
			voters = append(voters, v)
		}
		issue.adjust(p.Previous, -1)
		issue.adjust(p.Next, 1)
	}
	issue.Voters = voters
	return issue
}

func (i *Issue) adjust(t VoteType, delta int) {
	if t == VoteUp {
		i.Upvotes += delta
	} else {
		i.Downvotes += delta
	}
}

// CounterField is the issue field that counts votes of type t
func CounterField(t VoteType) string {
	if t == VoteUp {
		return "upvotes"
	}
	return "downvotes"
}

// VoteResult is returned to the voter
type VoteResult struct {
	Upvotes   int      `json:"upvotes"`
	Downvotes int      `json:"downvotes"`
	VoteCount int      `json:"voteCount"`
	UserVote  VoteType `json:"userVote"`
	HasVoted  bool     `json:"hasVoted"`
}

// NewVoteResult summarizes issue for the user who just voted
func NewVoteResult(issue Issue, user primitive.ObjectID) VoteResult {
	r := VoteResult{Upvotes: issue.Upvotes, Downvotes: issue.Downvotes, VoteCount: issue.Score()}
	for _, v := range issue.Voters {
		if v.User == user {
			r.UserVote = v.VoteType
			r.HasVoted = true
			break
		}
	}
	return r
}
