package registry

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Repository defines the interface for registry persistence.
//
// Implementations are expected to be durable key-value style stores; the
// Service serializes all mutating calls, so a Repository only has to make each
// individual call atomic.
type Repository interface {
	// Content operations
	CreateContent(ctx context.Context, content *Content) error
	GetContent(ctx context.Context, id uint64) (*Content, error)
	ListContents(ctx context.Context, params ListContentsParams) ([]*Content, error)
	CountContents(ctx context.Context) (uint64, error)
	IncrementViews(ctx context.Context, id uint64) error

	// Rating operations
	// GetUserRating returns 0 when the rater has not rated the content.
	GetUserRating(ctx context.Context, contentID uint64, rater common.Address) (uint8, error)
	// AddRating records the rater's rating and adds it to the content totals.
	// It returns ErrAlreadyRated if the rater already has a rating.
	AddRating(ctx context.Context, contentID uint64, rater common.Address, rating uint8) error

	// Proposal operations
	CreateProposal(ctx context.Context, proposal *Proposal) error
	GetProposal(ctx context.Context, id uint64) (*Proposal, error)
	ListProposals(ctx context.Context) ([]*Proposal, error)
	CountProposals(ctx context.Context) (uint64, error)
	HasVoted(ctx context.Context, proposalID uint64, voter common.Address) (bool, error)
	// AddVote marks the voter and increments the vote count.
	// It returns ErrAlreadyVoted if the voter is already marked.
	AddVote(ctx context.Context, proposalID uint64, voter common.Address) error
	MarkExecuted(ctx context.Context, proposalID uint64) error

	// Governance membership, in insertion order, duplicates kept
	AddMember(ctx context.Context, member common.Address) error
	ListMembers(ctx context.Context) ([]common.Address, error)

	// Pause flag
	IsPaused(ctx context.Context) (bool, error)
	SetPaused(ctx context.Context, paused bool) error
}

// Ledger moves value between identities.
type Ledger interface {
	// Transfer moves amount from one identity to another atomically, or fails
	// without moving anything. It runs while the Service holds its writer
	// lock; calls back into the Service should use ctx.
	Transfer(ctx context.Context, from, to common.Address, amount uint64) error
}

// BalanceReader is implemented by ledgers that can report balances.
type BalanceReader interface {
	Balance(ctx context.Context, owner common.Address) (uint64, error)
}

// EventSink defines the interface for registry notifications. Events are
// delivered after the producing operation has committed and released the
// Service's writer lock.
type EventSink interface {
	// ContentPublished is fired when content is published
	ContentPublished(ctx context.Context, event ContentPublished) error

	// ContentRated is fired when content is rated
	ContentRated(ctx context.Context, event ContentRated) error

	// ProposalCreated is fired when a proposal is created
	ProposalCreated(ctx context.Context, event ProposalCreated) error

	// Voted is fired when a vote is recorded
	Voted(ctx context.Context, event Voted) error

	// ProposalExecuted is fired when a proposal is executed
	ProposalExecuted(ctx context.Context, event ProposalExecuted) error
}

// ListContentsParams contains repository filters for listing content
type ListContentsParams struct {
	Creator *common.Address
	Tag     *string
	Limit   int
	Offset  int
}
