package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-registry/pkg/registry"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements registry.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) registry.Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) registry.Repository {
	return &Repository{db: pool}
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "content") {
				return fmt.Errorf("content already exists")
			}
			if strings.Contains(pgErr.ConstraintName, "proposal") {
				return fmt.Errorf("proposal already exists")
			}
			return fmt.Errorf("duplicate entry")
		case "23503": // foreign_key_violation
			if strings.Contains(pgErr.ConstraintName, "content") {
				return registry.ErrContentNotFound
			}
			if strings.Contains(pgErr.ConstraintName, "proposal") {
				return registry.ErrProposalNotFound
			}
			return fmt.Errorf("referenced record not found")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

const contentColumns = `id, creator, content_hash, title, tags, price, views, total_rating, total_reviews`

func scanContent(row pgx.Row) (*registry.Content, error) {
	var (
		content                                registry.Content
		id, price, views, totalRating, reviews int64
		creator                                string
	)
	err := row.Scan(&id, &creator, &content.ContentHash, &content.Title, &content.Tags,
		&price, &views, &totalRating, &reviews)
	if err != nil {
		return nil, err
	}
	content.ID = uint64(id)
	content.Creator = common.HexToAddress(creator)
	content.Price = uint64(price)
	content.Views = uint64(views)
	content.TotalRating = uint64(totalRating)
	content.TotalReviews = uint64(reviews)
	if content.Tags == nil {
		content.Tags = []string{}
	}
	return &content, nil
}

// Content operations

func (r *Repository) CreateContent(ctx context.Context, content *registry.Content) error {
	query := `
		INSERT INTO contents (
			id, creator, content_hash, title, tags, price
		) VALUES ($1, $2, $3, $4, $5, $6)`

	tags := content.Tags
	if tags == nil {
		tags = []string{}
	}
	_, err := r.db.Exec(ctx, query,
		int64(content.ID), content.Creator.Hex(), content.ContentHash,
		content.Title, tags, int64(content.Price))
	if err != nil {
		return r.handlePostgresError("create content", err)
	}
	return nil
}

func (r *Repository) GetContent(ctx context.Context, id uint64) (*registry.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM contents WHERE id = $1`

	content, err := scanContent(r.db.QueryRow(ctx, query, int64(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, registry.ErrContentNotFound
		}
		return nil, r.handlePostgresError("get content", err)
	}
	return content, nil
}

func (r *Repository) ListContents(ctx context.Context, params registry.ListContentsParams) ([]*registry.Content, error) {
	var (
		where []string
		args  []interface{}
	)
	if params.Creator != nil {
		args = append(args, params.Creator.Hex())
		where = append(where, fmt.Sprintf("creator = $%d", len(args)))
	}
	if params.Tag != nil {
		args = append(args, *params.Tag)
		where = append(where, fmt.Sprintf("$%d = ANY(tags)", len(args)))
	}

	query := `SELECT ` + contentColumns + ` FROM contents`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"
	if params.Limit > 0 {
		args = append(args, params.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if params.Offset > 0 {
		args = append(args, params.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("list contents", err)
	}
	defer rows.Close()

	var contents []*registry.Content
	for rows.Next() {
		content, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		contents = append(contents, content)
	}
	return contents, rows.Err()
}

func (r *Repository) CountContents(ctx context.Context) (uint64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM contents`).Scan(&count); err != nil {
		return 0, r.handlePostgresError("count contents", err)
	}
	return uint64(count), nil
}

func (r *Repository) IncrementViews(ctx context.Context, id uint64) error {
	tag, err := r.db.Exec(ctx, `UPDATE contents SET views = views + 1 WHERE id = $1`, int64(id))
	if err != nil {
		return r.handlePostgresError("increment views", err)
	}
	if tag.RowsAffected() == 0 {
		return registry.ErrContentNotFound
	}
	return nil
}

// Rating operations

func (r *Repository) GetUserRating(ctx context.Context, contentID uint64, rater common.Address) (uint8, error) {
	var rating int16
	err := r.db.QueryRow(ctx,
		`SELECT rating FROM content_ratings WHERE content_id = $1 AND rater = $2`,
		int64(contentID), rater.Hex()).Scan(&rating)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, r.handlePostgresError("get user rating", err)
	}
	return uint8(rating), nil
}

func (r *Repository) AddRating(ctx context.Context, contentID uint64, rater common.Address, rating uint8) error {
	// One statement so the rating row and the totals commit together.
	query := `
		WITH inserted AS (
			INSERT INTO content_ratings (content_id, rater, rating)
			VALUES ($1, $2, $3)
			ON CONFLICT (content_id, rater) DO NOTHING
			RETURNING rating
		)
		UPDATE contents SET
			total_rating = contents.total_rating + inserted.rating,
			total_reviews = contents.total_reviews + 1
		FROM inserted
		WHERE contents.id = $1`

	tag, err := r.db.Exec(ctx, query, int64(contentID), rater.Hex(), int16(rating))
	if err != nil {
		return r.handlePostgresError("add rating", err)
	}
	if tag.RowsAffected() == 0 {
		return registry.ErrAlreadyRated
	}
	return nil
}

// Proposal operations

func scanProposal(row pgx.Row) (*registry.Proposal, error) {
	var (
		proposal  registry.Proposal
		id, votes int64
		proposer  string
	)
	if err := row.Scan(&id, &proposer, &proposal.Description, &votes, &proposal.Executed); err != nil {
		return nil, err
	}
	proposal.ID = uint64(id)
	proposal.Proposer = common.HexToAddress(proposer)
	proposal.Votes = uint64(votes)
	return &proposal, nil
}

func (r *Repository) CreateProposal(ctx context.Context, proposal *registry.Proposal) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO proposals (id, proposer, description) VALUES ($1, $2, $3)`,
		int64(proposal.ID), proposal.Proposer.Hex(), proposal.Description)
	if err != nil {
		return r.handlePostgresError("create proposal", err)
	}
	return nil
}

func (r *Repository) GetProposal(ctx context.Context, id uint64) (*registry.Proposal, error) {
	proposal, err := scanProposal(r.db.QueryRow(ctx,
		`SELECT id, proposer, description, votes, executed FROM proposals WHERE id = $1`, int64(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, registry.ErrProposalNotFound
		}
		return nil, r.handlePostgresError("get proposal", err)
	}
	return proposal, nil
}

func (r *Repository) ListProposals(ctx context.Context) ([]*registry.Proposal, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, proposer, description, votes, executed FROM proposals ORDER BY id`)
	if err != nil {
		return nil, r.handlePostgresError("list proposals", err)
	}
	defer rows.Close()

	var proposals []*registry.Proposal
	for rows.Next() {
		proposal, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, proposal)
	}
	return proposals, rows.Err()
}

func (r *Repository) CountProposals(ctx context.Context) (uint64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM proposals`).Scan(&count); err != nil {
		return 0, r.handlePostgresError("count proposals", err)
	}
	return uint64(count), nil
}

func (r *Repository) HasVoted(ctx context.Context, proposalID uint64, voter common.Address) (bool, error) {
	var voted bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM proposal_votes WHERE proposal_id = $1 AND voter = $2)`,
		int64(proposalID), voter.Hex()).Scan(&voted)
	if err != nil {
		return false, r.handlePostgresError("has voted", err)
	}
	return voted, nil
}

func (r *Repository) AddVote(ctx context.Context, proposalID uint64, voter common.Address) error {
	query := `
		WITH inserted AS (
			INSERT INTO proposal_votes (proposal_id, voter)
			VALUES ($1, $2)
			ON CONFLICT (proposal_id, voter) DO NOTHING
			RETURNING proposal_id
		)
		UPDATE proposals SET votes = proposals.votes + 1
		FROM inserted
		WHERE proposals.id = inserted.proposal_id`

	tag, err := r.db.Exec(ctx, query, int64(proposalID), voter.Hex())
	if err != nil {
		return r.handlePostgresError("add vote", err)
	}
	if tag.RowsAffected() == 0 {
		return registry.ErrAlreadyVoted
	}
	return nil
}

func (r *Repository) MarkExecuted(ctx context.Context, proposalID uint64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE proposals SET executed = true WHERE id = $1 AND NOT executed`, int64(proposalID))
	if err != nil {
		return r.handlePostgresError("mark executed", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetProposal(ctx, proposalID); err != nil {
			return err
		}
		return registry.ErrAlreadyExecuted
	}
	return nil
}

// Governance membership

func (r *Repository) AddMember(ctx context.Context, member common.Address) error {
	if _, err := r.db.Exec(ctx, `INSERT INTO governance_members (member) VALUES ($1)`, member.Hex()); err != nil {
		return r.handlePostgresError("add member", err)
	}
	return nil
}

func (r *Repository) ListMembers(ctx context.Context) ([]common.Address, error) {
	rows, err := r.db.Query(ctx, `SELECT member FROM governance_members ORDER BY position`)
	if err != nil {
		return nil, r.handlePostgresError("list members", err)
	}
	defer rows.Close()

	var members []common.Address
	for rows.Next() {
		var member string
		if err := rows.Scan(&member); err != nil {
			return nil, err
		}
		members = append(members, common.HexToAddress(member))
	}
	return members, rows.Err()
}

// Pause flag

func (r *Repository) IsPaused(ctx context.Context) (bool, error) {
	var paused bool
	err := r.db.QueryRow(ctx, `SELECT paused FROM registry_state WHERE id = 1`).Scan(&paused)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, r.handlePostgresError("get paused", err)
	}
	return paused, nil
}

func (r *Repository) SetPaused(ctx context.Context, paused bool) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO registry_state (id, paused) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET paused = EXCLUDED.paused`, paused)
	if err != nil {
		return r.handlePostgresError("set paused", err)
	}
	return nil
}
