package models

import (
	"encoding/json"
	"time"
)

// The records below are owned by the VoteFlow API. This service only
// relays them.

type Election struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Status      string      `json:"status"`
	StartDate   time.Time   `json:"startDate"`
	EndDate     time.Time   `json:"endDate"`
	Positions   []string    `json:"positions,omitempty"`
	Candidates  []Candidate `json:"candidates,omitempty"`
	TotalVoters int         `json:"totalVoters,omitempty"`
	TotalVotes  int         `json:"totalVotes,omitempty"`
}

type Candidate struct {
	ID         string `json:"id"`
	ElectionID string `json:"electionId"`
	Name       string `json:"name"`
	Position   string `json:"position"`
	Bio        string `json:"bio,omitempty"`
	Photo      string `json:"photo,omitempty"`
	VoteCount  int    `json:"voteCount,omitempty"`
}

type Vote struct {
	ElectionID  string `json:"electionId"`
	CandidateID string `json:"candidateId"`
	Position    string `json:"position,omitempty"`
}

// VoteStatus reports whether the current user has voted in an election.
type VoteStatus struct {
	HasVoted bool       `json:"hasVoted"`
	VotedAt  *time.Time `json:"votedAt,omitempty"`
}

type Analytics struct {
	ElectionID    string          `json:"electionId"`
	TotalVotes    int             `json:"totalVotes"`
	TotalVoters   int             `json:"totalVoters"`
	TurnoutRate   float64         `json:"turnoutRate"`
	Results       json.RawMessage `json:"results,omitempty"`
	VotesOverTime json.RawMessage `json:"votesOverTime,omitempty"`
}

type Organization struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Logo    string `json:"logo,omitempty"`
	Website string `json:"website,omitempty"`
	Address string `json:"address,omitempty"`
}

type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}
