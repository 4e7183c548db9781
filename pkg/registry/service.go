package registry

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Service defines the main interface for the registry.
//
// Every mutating operation takes the caller identity explicitly. Read
// operations never take the writer lock exclusively and are always available,
// including while the registry is paused.
type Service interface {
	// Access control
	Owner() common.Address
	IsGovernanceMember(ctx context.Context, member common.Address) (bool, error)
	ListGovernanceMembers(ctx context.Context) ([]common.Address, error)
	AddGovernanceMember(ctx context.Context, caller, member common.Address) error
	TogglePause(ctx context.Context, caller common.Address) (bool, error)
	Paused(ctx context.Context) (bool, error)

	// Content operations
	PublishContent(ctx context.Context, caller common.Address, req PublishContentRequest) (*Content, error)
	GetContent(ctx context.Context, id uint64) (*Content, error)
	ListContents(ctx context.Context, req ListContentsRequest) ([]*Content, error)
	ViewContent(ctx context.Context, caller common.Address, id uint64, paidAmount uint64) error
	RateContent(ctx context.Context, caller common.Address, id uint64, rating uint8) error
	GetUserRating(ctx context.Context, id uint64, rater common.Address) (uint8, error)
	GetAverageRating(ctx context.Context, id uint64) (uint64, error)

	// Governance operations
	CreateProposal(ctx context.Context, caller common.Address, description string) (*Proposal, error)
	GetProposal(ctx context.Context, id uint64) (*Proposal, error)
	ListProposals(ctx context.Context) ([]*Proposal, error)
	HasVoted(ctx context.Context, id uint64, voter common.Address) (bool, error)
	Vote(ctx context.Context, caller common.Address, id uint64) error
	// ExecuteProposal reports whether the proposal was executed. Falling short
	// of quorum is not an error.
	ExecuteProposal(ctx context.Context, caller common.Address, id uint64) (bool, error)
}
