package registry

import (
	"github.com/ethereum/go-ethereum/common"
)

// Rating bounds. A rating of 0 marks a rater that has not rated yet.
const (
	MinRating uint8 = 1
	MaxRating uint8 = 5
)

// Content represents a published, monetized content record.
//
// ID, Creator, ContentHash, Title, Tags and Price never change after
// publication. Views, TotalRating and TotalReviews are the only mutable
// counters; per-rater ratings are kept by the Repository alongside the record.
type Content struct {
	ID           uint64         `json:"id"`
	Creator      common.Address `json:"creator"`
	ContentHash  string         `json:"content_hash"`
	Title        string         `json:"title"`
	Tags         []string       `json:"tags"`
	Price        uint64         `json:"price"`
	Views        uint64         `json:"views"`
	TotalRating  uint64         `json:"total_rating"`
	TotalReviews uint64         `json:"total_reviews"`
}

// AverageRating returns floor(TotalRating / TotalReviews), or 0 without reviews.
func (c *Content) AverageRating() uint64 {
	if c.TotalReviews == 0 {
		return 0
	}
	return c.TotalRating / c.TotalReviews
}

// Proposal represents a governance proposal.
//
// Executed flips from false to true at most once. Votes only grows; who voted
// is kept by the Repository alongside the record.
type Proposal struct {
	ID          uint64         `json:"id"`
	Proposer    common.Address `json:"proposer"`
	Description string         `json:"description"`
	Votes       uint64         `json:"votes"`
	Executed    bool           `json:"executed"`
}

// Quorum returns the number of votes a proposal needs to execute given the
// current membership count: floor(memberCount / 2). For an even membership a
// tie is enough.
func Quorum(memberCount int) uint64 {
	return uint64(memberCount / 2)
}

// ContentPublished is emitted after a content is published.
type ContentPublished struct {
	ContentID uint64         `json:"content_id"`
	Creator   common.Address `json:"creator"`
	Title     string         `json:"title"`
}

// ContentRated is emitted after a rating is recorded.
type ContentRated struct {
	ContentID uint64         `json:"content_id"`
	Rater     common.Address `json:"rater"`
	Rating    uint8          `json:"rating"`
}

// ProposalCreated is emitted after a proposal is created.
type ProposalCreated struct {
	ProposalID  uint64         `json:"proposal_id"`
	Proposer    common.Address `json:"proposer"`
	Description string         `json:"description"`
}

// Voted is emitted after a vote is recorded.
type Voted struct {
	ProposalID uint64         `json:"proposal_id"`
	Voter      common.Address `json:"voter"`
}

// ProposalExecuted is emitted when a proposal reaches quorum at execution time.
type ProposalExecuted struct {
	ProposalID uint64 `json:"proposal_id"`
}
