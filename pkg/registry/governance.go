package registry

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// CreateProposal records a new proposal from a governance member.
//
// Unlike the other governance mutations it is not blocked by the pause flag.
func (s *service) CreateProposal(ctx context.Context, caller common.Address, description string) (*Proposal, error) {
	var proposal *Proposal
	err := s.write(ctx, func(ctx context.Context) error {
		if err := s.access.requireMember(ctx, caller); err != nil {
			return err
		}
		if err := validateDescription(description); err != nil {
			return err
		}

		count, err := s.repository.CountProposals(ctx)
		if err != nil {
			return fmt.Errorf("failed to count proposals: %w", err)
		}

		p := &Proposal{
			ID:          count + 1,
			Proposer:    caller,
			Description: description,
		}
		if err := s.repository.CreateProposal(ctx, p); err != nil {
			return &ProposalError{ProposalID: p.ID, Op: "create", Err: err}
		}
		proposal = p

		s.notify(ctx, "ProposalCreated", func(sink EventSink) error {
			return sink.ProposalCreated(ctx, ProposalCreated{
				ProposalID:  p.ID,
				Proposer:    p.Proposer,
				Description: p.Description,
			})
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return proposal, nil
}

func (s *service) GetProposal(ctx context.Context, id uint64) (*Proposal, error) {
	var proposal *Proposal
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		proposal, err = s.getProposal(ctx, id)
		return err
	})
	return proposal, err
}

func (s *service) getProposal(ctx context.Context, id uint64) (*Proposal, error) {
	if id == 0 {
		return nil, ErrProposalNotFound
	}
	return s.repository.GetProposal(ctx, id)
}

func (s *service) ListProposals(ctx context.Context) ([]*Proposal, error) {
	var proposals []*Proposal
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		proposals, err = s.repository.ListProposals(ctx)
		return err
	})
	return proposals, err
}

func (s *service) HasVoted(ctx context.Context, id uint64, voter common.Address) (bool, error) {
	var voted bool
	err := s.read(ctx, func(ctx context.Context) error {
		if _, err := s.getProposal(ctx, id); err != nil {
			return err
		}
		var err error
		voted, err = s.repository.HasVoted(ctx, id, voter)
		return err
	})
	return voted, err
}

// Vote records caller's vote. Membership is not checked here; only the pause
// flag and double voting are. Reaching quorum does not execute the proposal.
func (s *service) Vote(ctx context.Context, caller common.Address, id uint64) error {
	return s.write(ctx, func(ctx context.Context) error {
		if err := s.access.requireUnpaused(ctx); err != nil {
			return err
		}
		if _, err := s.getProposal(ctx, id); err != nil {
			return &ProposalError{ProposalID: id, Op: "vote", Err: err}
		}

		voted, err := s.repository.HasVoted(ctx, id, caller)
		if err != nil {
			return &ProposalError{ProposalID: id, Op: "vote", Err: err}
		}
		if voted {
			return &ProposalError{ProposalID: id, Op: "vote", Err: ErrAlreadyVoted}
		}

		if err := s.repository.AddVote(ctx, id, caller); err != nil {
			return &ProposalError{ProposalID: id, Op: "vote", Err: err}
		}

		s.notify(ctx, "Voted", func(sink EventSink) error {
			return sink.Voted(ctx, Voted{ProposalID: id, Voter: caller})
		})
		return nil
	})
}

// ExecuteProposal marks the proposal executed when its votes reach
// Quorum(memberCount). Below quorum it returns false and changes nothing.
func (s *service) ExecuteProposal(ctx context.Context, caller common.Address, id uint64) (bool, error) {
	var executed bool
	err := s.write(ctx, func(ctx context.Context) error {
		if err := s.access.requireMember(ctx, caller); err != nil {
			return err
		}
		if err := s.access.requireUnpaused(ctx); err != nil {
			return err
		}
		return s.guard.Do(func() error {
			p, err := s.getProposal(ctx, id)
			if err != nil {
				return &ProposalError{ProposalID: id, Op: "execute", Err: err}
			}
			if p.Executed {
				return &ProposalError{ProposalID: id, Op: "execute", Err: ErrAlreadyExecuted}
			}

			members, err := s.access.memberCount(ctx)
			if err != nil {
				return err
			}
			if p.Votes < Quorum(members) {
				return nil
			}

			if err := s.repository.MarkExecuted(ctx, id); err != nil {
				return &ProposalError{ProposalID: id, Op: "execute", Err: err}
			}
			executed = true

			s.notify(ctx, "ProposalExecuted", func(sink EventSink) error {
				return sink.ProposalExecuted(ctx, ProposalExecuted{ProposalID: id})
			})
			return nil
		})
	})
	return executed, err
}
