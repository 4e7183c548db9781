package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tendant/simple-registry/pkg/registry"
)

type contentRecord struct {
	content registry.Content
	ratings map[common.Address]uint8
}

type proposalRecord struct {
	proposal registry.Proposal
	voters   map[common.Address]bool
}

// Repository implements registry.Repository using in-memory storage
type Repository struct {
	mu        sync.RWMutex
	contents  []*contentRecord  // index = id - 1
	proposals []*proposalRecord // index = id - 1
	members   []common.Address
	paused    bool
}

// New creates a new in-memory repository
func New() registry.Repository {
	return &Repository{}
}

func copyContent(c *registry.Content) *registry.Content {
	contentCopy := *c
	contentCopy.Tags = append([]string{}, c.Tags...)
	return &contentCopy
}

// content returns the record for id; callers must hold mu.
func (r *Repository) content(id uint64) (*contentRecord, error) {
	if id == 0 || id > uint64(len(r.contents)) {
		return nil, registry.ErrContentNotFound
	}
	return r.contents[id-1], nil
}

func (r *Repository) proposal(id uint64) (*proposalRecord, error) {
	if id == 0 || id > uint64(len(r.proposals)) {
		return nil, registry.ErrProposalNotFound
	}
	return r.proposals[id-1], nil
}

// Content operations

func (r *Repository) CreateContent(ctx context.Context, content *registry.Content) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if content.ID != uint64(len(r.contents))+1 {
		return fmt.Errorf("content id %d out of sequence, next is %d", content.ID, len(r.contents)+1)
	}

	// Create a copy to avoid external modifications
	r.contents = append(r.contents, &contentRecord{
		content: *copyContent(content),
		ratings: make(map[common.Address]uint8),
	})
	return nil
}

func (r *Repository) GetContent(ctx context.Context, id uint64) (*registry.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, err := r.content(id)
	if err != nil {
		return nil, err
	}
	// Return a copy to prevent external modifications
	return copyContent(&rec.content), nil
}

func (r *Repository) ListContents(ctx context.Context, params registry.ListContentsParams) ([]*registry.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*registry.Content
	skipped := 0
	for _, rec := range r.contents {
		if params.Creator != nil && rec.content.Creator != *params.Creator {
			continue
		}
		if params.Tag != nil && !slices.Contains(rec.content.Tags, *params.Tag) {
			continue
		}
		if skipped < params.Offset {
			skipped++
			continue
		}
		if params.Limit > 0 && len(result) >= params.Limit {
			break
		}
		result = append(result, copyContent(&rec.content))
	}
	return result, nil
}

func (r *Repository) CountContents(ctx context.Context) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return uint64(len(r.contents)), nil
}

func (r *Repository) IncrementViews(ctx context.Context, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.content(id)
	if err != nil {
		return err
	}
	rec.content.Views++
	return nil
}

// Rating operations

func (r *Repository) GetUserRating(ctx context.Context, contentID uint64, rater common.Address) (uint8, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, err := r.content(contentID)
	if err != nil {
		return 0, err
	}
	return rec.ratings[rater], nil
}

func (r *Repository) AddRating(ctx context.Context, contentID uint64, rater common.Address, rating uint8) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.content(contentID)
	if err != nil {
		return err
	}
	if rec.ratings[rater] != 0 {
		return registry.ErrAlreadyRated
	}
	rec.ratings[rater] = rating
	rec.content.TotalRating += uint64(rating)
	rec.content.TotalReviews++
	return nil
}

// Proposal operations

func (r *Repository) CreateProposal(ctx context.Context, proposal *registry.Proposal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if proposal.ID != uint64(len(r.proposals))+1 {
		return fmt.Errorf("proposal id %d out of sequence, next is %d", proposal.ID, len(r.proposals)+1)
	}
	r.proposals = append(r.proposals, &proposalRecord{
		proposal: *proposal,
		voters:   make(map[common.Address]bool),
	})
	return nil
}

func (r *Repository) GetProposal(ctx context.Context, id uint64) (*registry.Proposal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, err := r.proposal(id)
	if err != nil {
		return nil, err
	}
	proposalCopy := rec.proposal
	return &proposalCopy, nil
}

func (r *Repository) ListProposals(ctx context.Context) ([]*registry.Proposal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*registry.Proposal, 0, len(r.proposals))
	for _, rec := range r.proposals {
		proposalCopy := rec.proposal
		result = append(result, &proposalCopy)
	}
	return result, nil
}

func (r *Repository) CountProposals(ctx context.Context) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return uint64(len(r.proposals)), nil
}

func (r *Repository) HasVoted(ctx context.Context, proposalID uint64, voter common.Address) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, err := r.proposal(proposalID)
	if err != nil {
		return false, err
	}
	return rec.voters[voter], nil
}

func (r *Repository) AddVote(ctx context.Context, proposalID uint64, voter common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.proposal(proposalID)
	if err != nil {
		return err
	}
	if rec.voters[voter] {
		return registry.ErrAlreadyVoted
	}
	rec.voters[voter] = true
	rec.proposal.Votes++
	return nil
}

func (r *Repository) MarkExecuted(ctx context.Context, proposalID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.proposal(proposalID)
	if err != nil {
		return err
	}
	if rec.proposal.Executed {
		return registry.ErrAlreadyExecuted
	}
	rec.proposal.Executed = true
	return nil
}

// Governance membership

func (r *Repository) AddMember(ctx context.Context, member common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members = append(r.members, member)
	return nil
}

func (r *Repository) ListMembers(ctx context.Context) ([]common.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]common.Address{}, r.members...), nil
}

// Pause flag

func (r *Repository) IsPaused(ctx context.Context) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.paused, nil
}

func (r *Repository) SetPaused(ctx context.Context, paused bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = paused
	return nil
}
