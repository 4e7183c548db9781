package registry

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// accessControl answers owner, membership and pause questions against the
// repository. It does no locking of its own.
type accessControl struct {
	owner      common.Address
	repository Repository
}

func (a *accessControl) requireOwner(caller common.Address) error {
	if caller != a.owner {
		return ErrUnauthorized
	}
	return nil
}

// isMember scans the membership sequence for an exact match.
func (a *accessControl) isMember(ctx context.Context, addr common.Address) (bool, error) {
	members, err := a.repository.ListMembers(ctx)
	if err != nil {
		return false, err
	}
	for _, m := range members {
		if m == addr {
			return true, nil
		}
	}
	return false, nil
}

func (a *accessControl) requireMember(ctx context.Context, caller common.Address) error {
	ok, err := a.isMember(ctx, caller)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

// memberCount counts entries, duplicates included.
func (a *accessControl) memberCount(ctx context.Context) (int, error) {
	members, err := a.repository.ListMembers(ctx)
	if err != nil {
		return 0, err
	}
	return len(members), nil
}

func (a *accessControl) requireUnpaused(ctx context.Context) error {
	paused, err := a.repository.IsPaused(ctx)
	if err != nil {
		return err
	}
	if paused {
		return ErrPaused
	}
	return nil
}

func (s *service) Owner() common.Address {
	return s.owner
}

func (s *service) IsGovernanceMember(ctx context.Context, member common.Address) (bool, error) {
	var ok bool
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		ok, err = s.access.isMember(ctx, member)
		return err
	})
	return ok, err
}

func (s *service) ListGovernanceMembers(ctx context.Context) ([]common.Address, error) {
	var members []common.Address
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		members, err = s.repository.ListMembers(ctx)
		return err
	})
	return members, err
}

// AddGovernanceMember appends member to the governance membership. Only the
// owner may call it; it works while paused. Existing entries are not checked,
// so adding a member twice counts them twice towards quorum.
func (s *service) AddGovernanceMember(ctx context.Context, caller, member common.Address) error {
	return s.write(ctx, func(ctx context.Context) error {
		if err := s.access.requireOwner(caller); err != nil {
			return err
		}
		if member == (common.Address{}) {
			return invalidArgument("member address must not be zero")
		}
		if err := s.repository.AddMember(ctx, member); err != nil {
			return fmt.Errorf("failed to add governance member: %w", err)
		}
		return nil
	})
}

// TogglePause flips the pause flag and returns the new state. Only the owner
// may call it.
func (s *service) TogglePause(ctx context.Context, caller common.Address) (bool, error) {
	var paused bool
	err := s.write(ctx, func(ctx context.Context) error {
		if err := s.access.requireOwner(caller); err != nil {
			return err
		}
		current, err := s.repository.IsPaused(ctx)
		if err != nil {
			return err
		}
		if err := s.repository.SetPaused(ctx, !current); err != nil {
			return fmt.Errorf("failed to toggle pause: %w", err)
		}
		paused = !current
		return nil
	})
	return paused, err
}

func (s *service) Paused(ctx context.Context) (bool, error) {
	var paused bool
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		paused, err = s.repository.IsPaused(ctx)
		return err
	})
	return paused, err
}
