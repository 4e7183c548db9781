package api

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/render"
	"github.com/tendant/simple-registry/pkg/registry"
)

// AddMemberRequest is the request body for adding a governance member
type AddMemberRequest struct {
	Address string `json:"address"`
}

// MembersResponse lists governance members in insertion order
type MembersResponse struct {
	Members []common.Address `json:"members"`
	Quorum  uint64           `json:"quorum"`
}

// MembershipResponse reports whether an address is a governance member
type MembershipResponse struct {
	Address common.Address `json:"address"`
	Member  bool           `json:"member"`
}

// CreateProposalRequest is the request body for creating a proposal
type CreateProposalRequest struct {
	Description string `json:"description"`
}

// VoteResponse is the response body for a recorded vote
type VoteResponse struct {
	ProposalID uint64         `json:"proposal_id"`
	Voter      common.Address `json:"voter"`
	Voted      bool           `json:"voted"`
}

// ExecuteResponse is the response body for an execution attempt
type ExecuteResponse struct {
	ProposalID uint64 `json:"proposal_id"`
	Executed   bool   `json:"executed"`
}

// ListGovernanceMembers lists members and the current quorum
func (h *Handler) ListGovernanceMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.ListGovernanceMembers(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "Failed to list members", err)
		return
	}
	if members == nil {
		members = []common.Address{}
	}
	render.JSON(w, r, MembersResponse{Members: members, Quorum: registry.Quorum(len(members))})
}

// IsGovernanceMember reports membership of an address
func (h *Handler) IsGovernanceMember(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r)
	if !ok {
		return
	}

	member, err := h.service.IsGovernanceMember(r.Context(), addr)
	if err != nil {
		h.writeServiceError(w, r, "Failed to check membership", err, "address", addr.Hex())
		return
	}
	render.JSON(w, r, MembershipResponse{Address: addr, Member: member})
}

// AddGovernanceMember appends a member. Only the owner may call it.
func (h *Handler) AddGovernanceMember(w http.ResponseWriter, r *http.Request) {
	var req AddMemberRequest
	if !decodeBody(w, r, &req) {
		return
	}
	member, err := parseAddress(req.Address)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_address", err.Error())
		return
	}

	if err := h.service.AddGovernanceMember(r.Context(), caller(r), member); err != nil {
		h.writeServiceError(w, r, "Failed to add member", err, "member", member.Hex(), "caller", caller(r).Hex())
		return
	}

	h.logger.InfoContext(r.Context(), "Governance member added", "member", member.Hex())
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, MembershipResponse{Address: member, Member: true})
}

// CreateProposal creates a proposal on behalf of a member
func (h *Handler) CreateProposal(w http.ResponseWriter, r *http.Request) {
	var req CreateProposalRequest
	if !decodeBody(w, r, &req) {
		return
	}

	proposal, err := h.service.CreateProposal(r.Context(), caller(r), req.Description)
	if err != nil {
		h.writeServiceError(w, r, "Failed to create proposal", err, "caller", caller(r).Hex())
		return
	}

	h.logger.InfoContext(r.Context(), "Proposal created", "proposal_id", proposal.ID, "proposer", proposal.Proposer.Hex())
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, proposal)
}

// GetProposal returns a proposal by id
func (h *Handler) GetProposal(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	proposal, err := h.service.GetProposal(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "Failed to get proposal", err, "proposal_id", id)
		return
	}
	render.JSON(w, r, proposal)
}

// ListProposals lists every proposal in id order
func (h *Handler) ListProposals(w http.ResponseWriter, r *http.Request) {
	proposals, err := h.service.ListProposals(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "Failed to list proposals", err)
		return
	}
	if proposals == nil {
		proposals = []*registry.Proposal{}
	}
	render.JSON(w, r, proposals)
}

// HasVoted reports whether an address voted on a proposal
func (h *Handler) HasVoted(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	voter, ok := addressParam(w, r)
	if !ok {
		return
	}

	voted, err := h.service.HasVoted(r.Context(), id, voter)
	if err != nil {
		h.writeServiceError(w, r, "Failed to check vote", err, "proposal_id", id, "voter", voter.Hex())
		return
	}
	render.JSON(w, r, VoteResponse{ProposalID: id, Voter: voter, Voted: voted})
}

// Vote records the caller's vote
func (h *Handler) Vote(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	if err := h.service.Vote(r.Context(), caller(r), id); err != nil {
		h.writeServiceError(w, r, "Failed to vote", err, "proposal_id", id, "voter", caller(r).Hex())
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, VoteResponse{ProposalID: id, Voter: caller(r), Voted: true})
}

// ExecuteProposal executes a proposal if it has reached quorum. A proposal
// below quorum is reported with executed=false.
func (h *Handler) ExecuteProposal(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	executed, err := h.service.ExecuteProposal(r.Context(), caller(r), id)
	if err != nil {
		h.writeServiceError(w, r, "Failed to execute proposal", err, "proposal_id", id, "caller", caller(r).Hex())
		return
	}
	if executed {
		h.logger.InfoContext(r.Context(), "Proposal executed", "proposal_id", id)
	}
	render.JSON(w, r, ExecuteResponse{ProposalID: id, Executed: executed})
}
