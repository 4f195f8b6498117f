package models

import "time"

// Request types

type DelegateRequest struct {
	Kind      string `json:"kind"` // self, steward or custom
	StewardID string `json:"steward_id,omitempty"`
	Address   string `json:"address,omitempty"`
}

type CreatePollRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Options     []string `json:"options"`
	Duration    string   `json:"duration"`
}

type CastVoteRequest struct {
	OptionIndex *int `json:"option_index"`
}

// Response types

type ConnectResponse struct {
	Address   Address   `json:"address"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type DelegateResponse struct {
	Delegatee Address `json:"delegatee"`
	TxHash    string  `json:"tx_hash"`
}

type HistoryResponse struct {
	Identity Address            `json:"identity"`
	Records  []DelegationRecord `json:"records"`
}

type CurrentDelegateResponse struct {
	Identity Address `json:"identity"`
	Delegate Address `json:"delegate"`
	IsSelf   bool    `json:"is_self"`
}

type StewardsResponse struct {
	Stewards []StewardWithPower `json:"stewards"`
}

type RevocationEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
}

type RevocationsResponse struct {
	Count  int               `json:"count"`
	Events []RevocationEvent `json:"events"`
}

type PollView struct {
	Poll
	EndsAt          time.Time `json:"ends_at"`
	DurationLabel   string    `json:"duration_label"`
	TimeLeftSeconds int64     `json:"time_left_seconds"`
}

type ListPollsResponse struct {
	Polls []PollView `json:"polls"`
}

type CastVoteResponse struct {
	PollID      string `json:"poll_id"`
	OptionIndex int    `json:"option_index"`
}

type TallyResponse struct {
	Tally
	Options []string `json:"options"`
	Shares  []int    `json:"shares"`
}

type StatsResponse struct {
	Identity         Address `json:"identity"`
	VotingPower      string  `json:"voting_power"`
	ProposalsVoted   int     `json:"proposals_voted"`
	DelegatorsCount  int     `json:"delegators_count"`
	CurrentDelegate  Address `json:"current_delegate"`
	RevocationsCount int     `json:"revocations_count"`
}

// Error response

type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}
