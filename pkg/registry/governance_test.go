package registry_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-registry/pkg/registry"
)

func addMembers(t *testing.T, svc registry.Service, members ...common.Address) {
	t.Helper()
	for _, m := range members {
		require.NoError(t, svc.AddGovernanceMember(context.Background(), owner, m))
	}
}

func TestAddGovernanceMember(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	err := env.svc.AddGovernanceMember(ctx, memberA, memberB)
	assert.ErrorIs(t, err, registry.ErrUnauthorized)

	err = env.svc.AddGovernanceMember(ctx, owner, common.Address{})
	assert.ErrorIs(t, err, registry.ErrInvalidArgument)

	ok, err := env.svc.IsGovernanceMember(ctx, memberA)
	require.NoError(t, err)
	assert.False(t, ok)

	addMembers(t, env.svc, memberA, memberA, memberB)

	ok, err = env.svc.IsGovernanceMember(ctx, memberA)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = env.svc.IsGovernanceMember(ctx, outsider)
	require.NoError(t, err)
	assert.False(t, ok)

	members, err := env.svc.ListGovernanceMembers(ctx)
	require.NoError(t, err)
	assert.Len(t, members, 3, "duplicates are kept")
}

func TestCreateProposal(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	addMembers(t, env.svc, memberA)

	_, err := env.svc.CreateProposal(ctx, outsider, "raise fee")
	assert.ErrorIs(t, err, registry.ErrUnauthorized)

	_, err = env.svc.CreateProposal(ctx, memberA, "")
	assert.ErrorIs(t, err, registry.ErrInvalidArgument)

	for i := uint64(1); i <= 3; i++ {
		p, err := env.svc.CreateProposal(ctx, memberA, "raise fee")
		require.NoError(t, err)
		assert.Equal(t, i, p.ID)
		assert.Equal(t, memberA, p.Proposer)
		assert.Zero(t, p.Votes)
		assert.False(t, p.Executed)
	}

	proposals, err := env.svc.ListProposals(ctx)
	require.NoError(t, err)
	assert.Len(t, proposals, 3)

	require.Len(t, env.sink.created, 3)
	assert.Equal(t, registry.ProposalCreated{ProposalID: 1, Proposer: memberA, Description: "raise fee"}, env.sink.created[0])
}

func TestVote_Twice(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	addMembers(t, env.svc, memberA)
	p, err := env.svc.CreateProposal(ctx, memberA, "raise fee")
	require.NoError(t, err)

	require.NoError(t, env.svc.Vote(ctx, memberA, p.ID))
	got, err := env.svc.GetProposal(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got.Votes)

	err = env.svc.Vote(ctx, memberA, p.ID)
	assert.ErrorIs(t, err, registry.ErrAlreadyVoted)

	got, err = env.svc.GetProposal(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got.Votes)

	voted, err := env.svc.HasVoted(ctx, p.ID, memberA)
	require.NoError(t, err)
	assert.True(t, voted)

	require.Len(t, env.sink.voted, 1)
}

func TestVote_NotFound(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	addMembers(t, env.svc, memberA)
	_, err := env.svc.CreateProposal(ctx, memberA, "raise fee")
	require.NoError(t, err)

	for _, id := range []uint64{0, 2} {
		err := env.svc.Vote(ctx, memberA, id)
		assert.ErrorIs(t, err, registry.ErrProposalNotFound, "id=%d", id)
	}
}

func TestVote_NonMemberAllowed(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	addMembers(t, env.svc, memberA)
	p, err := env.svc.CreateProposal(ctx, memberA, "raise fee")
	require.NoError(t, err)

	require.NoError(t, env.svc.Vote(ctx, outsider, p.ID))
	got, err := env.svc.GetProposal(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got.Votes)
}

func TestExecuteProposal_Quorum(t *testing.T) {
	tests := []struct {
		name     string
		members  int
		votes    int
		executes bool
	}{
		{"3 members 1 vote", 3, 1, true},
		{"3 members 0 votes", 3, 0, false},
		{"4 members 2 votes", 4, 2, true},
		{"4 members 1 vote", 4, 1, false},
		{"5 members 2 votes", 5, 2, true},
		{"1 member 0 votes", 1, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestService(t)
			ctx := context.Background()
			for i := 0; i < tt.members; i++ {
				addMembers(t, env.svc, addr(byte(50+i)))
			}
			proposer := addr(50)
			p, err := env.svc.CreateProposal(ctx, proposer, "raise fee")
			require.NoError(t, err)
			for i := 0; i < tt.votes; i++ {
				require.NoError(t, env.svc.Vote(ctx, addr(byte(50+i)), p.ID))
			}

			executed, err := env.svc.ExecuteProposal(ctx, proposer, p.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.executes, executed)

			got, err := env.svc.GetProposal(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.executes, got.Executed)
			if tt.executes {
				assert.Len(t, env.sink.executed, 1)
			} else {
				assert.Empty(t, env.sink.executed)
			}
		})
	}
}

func TestExecuteProposal_DuplicateMembersInflateQuorum(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	// memberA twice and memberB: count 4, quorum 2
	addMembers(t, env.svc, memberA, memberA, memberB, memberB)
	p, err := env.svc.CreateProposal(ctx, memberA, "raise fee")
	require.NoError(t, err)
	require.NoError(t, env.svc.Vote(ctx, memberA, p.ID))

	executed, err := env.svc.ExecuteProposal(ctx, memberA, p.ID)
	require.NoError(t, err)
	assert.False(t, executed)

	require.NoError(t, env.svc.Vote(ctx, memberB, p.ID))
	executed, err = env.svc.ExecuteProposal(ctx, memberA, p.ID)
	require.NoError(t, err)
	assert.True(t, executed)
}

func TestExecuteProposal_Errors(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	addMembers(t, env.svc, memberA)
	p, err := env.svc.CreateProposal(ctx, memberA, "raise fee")
	require.NoError(t, err)

	_, err = env.svc.ExecuteProposal(ctx, outsider, p.ID)
	assert.ErrorIs(t, err, registry.ErrUnauthorized)

	_, err = env.svc.ExecuteProposal(ctx, memberA, 0)
	assert.ErrorIs(t, err, registry.ErrProposalNotFound)

	_, err = env.svc.ExecuteProposal(ctx, memberA, 9)
	assert.ErrorIs(t, err, registry.ErrProposalNotFound)

	executed, err := env.svc.ExecuteProposal(ctx, memberA, p.ID)
	require.NoError(t, err)
	require.True(t, executed)

	_, err = env.svc.ExecuteProposal(ctx, memberA, p.ID)
	assert.ErrorIs(t, err, registry.ErrAlreadyExecuted)
	assert.Len(t, env.sink.executed, 1)
}

func TestGovernanceScenario_VoteNeverExecutes(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	addMembers(t, env.svc, memberA, memberB)

	p, err := env.svc.CreateProposal(ctx, memberA, "raise fee")
	require.NoError(t, err)

	require.NoError(t, env.svc.Vote(ctx, memberB, p.ID))
	got, err := env.svc.GetProposal(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, got.Executed, "quorum reached but not executed until asked")

	require.NoError(t, env.svc.Vote(ctx, memberA, p.ID))
	got, err = env.svc.GetProposal(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.Votes)
	assert.False(t, got.Executed)
	assert.Empty(t, env.sink.executed)

	executed, err := env.svc.ExecuteProposal(ctx, memberA, p.ID)
	require.NoError(t, err)
	assert.True(t, executed)
}
