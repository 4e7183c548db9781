package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jmoiron/sqlx"
	"github.com/tendant/simple-registry/pkg/registry"
	_ "modernc.org/sqlite"
)

// Repository implements registry.Repository on a SQLite file.
type Repository struct {
	db *sqlx.DB
}

var _ registry.Repository = (*Repository)(nil)

// Open opens and migrates the SQLite database at path.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer at a time; the registry serializes mutations anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Repository{db: db}, nil
}

// Close releases the underlying connection.
func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

type contentRow struct {
	ID           int64  `db:"id"`
	Creator      string `db:"creator"`
	ContentHash  string `db:"content_hash"`
	Title        string `db:"title"`
	Tags         string `db:"tags"`
	Price        int64  `db:"price"`
	Views        int64  `db:"views"`
	TotalRating  int64  `db:"total_rating"`
	TotalReviews int64  `db:"total_reviews"`
}

func (row contentRow) toContent() (*registry.Content, error) {
	tags := []string{}
	if err := json.Unmarshal([]byte(row.Tags), &tags); err != nil {
		return nil, fmt.Errorf("decode tags for content %d: %w", row.ID, err)
	}
	return &registry.Content{
		ID:           uint64(row.ID),
		Creator:      common.HexToAddress(row.Creator),
		ContentHash:  row.ContentHash,
		Title:        row.Title,
		Tags:         tags,
		Price:        uint64(row.Price),
		Views:        uint64(row.Views),
		TotalRating:  uint64(row.TotalRating),
		TotalReviews: uint64(row.TotalReviews),
	}, nil
}

type proposalRow struct {
	ID          int64  `db:"id"`
	Proposer    string `db:"proposer"`
	Description string `db:"description"`
	Votes       int64  `db:"votes"`
	Executed    bool   `db:"executed"`
}

func (row proposalRow) toProposal() *registry.Proposal {
	return &registry.Proposal{
		ID:          uint64(row.ID),
		Proposer:    common.HexToAddress(row.Proposer),
		Description: row.Description,
		Votes:       uint64(row.Votes),
		Executed:    row.Executed,
	}
}

const contentColumns = `id, creator, content_hash, title, tags, price, views, total_rating, total_reviews`

// Content operations

func (r *Repository) CreateContent(ctx context.Context, content *registry.Content) error {
	tags := content.Tags
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO contents (id, creator, content_hash, title, tags, price) VALUES (?, ?, ?, ?, ?, ?)`,
		int64(content.ID), content.Creator.Hex(), content.ContentHash, content.Title,
		string(encoded), int64(content.Price))
	if err != nil {
		return fmt.Errorf("create content %d: %w", content.ID, err)
	}
	return nil
}

func (r *Repository) GetContent(ctx context.Context, id uint64) (*registry.Content, error) {
	var row contentRow
	err := r.db.GetContext(ctx, &row, `SELECT `+contentColumns+` FROM contents WHERE id = ?`, int64(id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, registry.ErrContentNotFound
		}
		return nil, fmt.Errorf("get content %d: %w", id, err)
	}
	return row.toContent()
}

func (r *Repository) ListContents(ctx context.Context, params registry.ListContentsParams) ([]*registry.Content, error) {
	var (
		where []string
		args  []interface{}
	)
	if params.Creator != nil {
		where = append(where, "creator = ?")
		args = append(args, params.Creator.Hex())
	}
	if params.Tag != nil {
		where = append(where, "EXISTS (SELECT 1 FROM json_each(contents.tags) WHERE json_each.value = ?)")
		args = append(args, *params.Tag)
	}

	query := `SELECT ` + contentColumns + ` FROM contents`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"
	switch {
	case params.Limit > 0:
		query += " LIMIT ?"
		args = append(args, params.Limit)
	case params.Offset > 0:
		query += " LIMIT -1"
	}
	if params.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, params.Offset)
	}

	var rows []contentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list contents: %w", err)
	}

	contents := make([]*registry.Content, 0, len(rows))
	for _, row := range rows {
		content, err := row.toContent()
		if err != nil {
			return nil, err
		}
		contents = append(contents, content)
	}
	return contents, nil
}

func (r *Repository) CountContents(ctx context.Context) (uint64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT count(*) FROM contents`); err != nil {
		return 0, fmt.Errorf("count contents: %w", err)
	}
	return uint64(count), nil
}

func (r *Repository) IncrementViews(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE contents SET views = views + 1 WHERE id = ?`, int64(id))
	if err != nil {
		return fmt.Errorf("increment views %d: %w", id, err)
	}
	return requireAffected(res, registry.ErrContentNotFound)
}

// Rating operations

func (r *Repository) GetUserRating(ctx context.Context, contentID uint64, rater common.Address) (uint8, error) {
	var rating int64
	err := r.db.GetContext(ctx, &rating,
		`SELECT rating FROM content_ratings WHERE content_id = ? AND rater = ?`,
		int64(contentID), rater.Hex())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get rating: %w", err)
	}
	return uint8(rating), nil
}

func (r *Repository) AddRating(ctx context.Context, contentID uint64, rater common.Address, rating uint8) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE contents SET total_rating = total_rating + ?, total_reviews = total_reviews + 1 WHERE id = ?`,
			int64(rating), int64(contentID))
		if err != nil {
			return fmt.Errorf("update totals: %w", err)
		}
		if err := requireAffected(res, registry.ErrContentNotFound); err != nil {
			return err
		}

		res, err = tx.ExecContext(ctx,
			`INSERT INTO content_ratings (content_id, rater, rating) VALUES (?, ?, ?)
			 ON CONFLICT (content_id, rater) DO NOTHING`,
			int64(contentID), rater.Hex(), int64(rating))
		if err != nil {
			return fmt.Errorf("insert rating: %w", err)
		}
		return requireAffected(res, registry.ErrAlreadyRated)
	})
}

// Proposal operations

func (r *Repository) CreateProposal(ctx context.Context, proposal *registry.Proposal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO proposals (id, proposer, description) VALUES (?, ?, ?)`,
		int64(proposal.ID), proposal.Proposer.Hex(), proposal.Description)
	if err != nil {
		return fmt.Errorf("create proposal %d: %w", proposal.ID, err)
	}
	return nil
}

func (r *Repository) GetProposal(ctx context.Context, id uint64) (*registry.Proposal, error) {
	var row proposalRow
	err := r.db.GetContext(ctx, &row,
		`SELECT id, proposer, description, votes, executed FROM proposals WHERE id = ?`, int64(id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, registry.ErrProposalNotFound
		}
		return nil, fmt.Errorf("get proposal %d: %w", id, err)
	}
	return row.toProposal(), nil
}

func (r *Repository) ListProposals(ctx context.Context) ([]*registry.Proposal, error) {
	var rows []proposalRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT id, proposer, description, votes, executed FROM proposals ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}

	proposals := make([]*registry.Proposal, 0, len(rows))
	for _, row := range rows {
		proposals = append(proposals, row.toProposal())
	}
	return proposals, nil
}

func (r *Repository) CountProposals(ctx context.Context) (uint64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT count(*) FROM proposals`); err != nil {
		return 0, fmt.Errorf("count proposals: %w", err)
	}
	return uint64(count), nil
}

func (r *Repository) HasVoted(ctx context.Context, proposalID uint64, voter common.Address) (bool, error) {
	var voted bool
	err := r.db.GetContext(ctx, &voted,
		`SELECT EXISTS (SELECT 1 FROM proposal_votes WHERE proposal_id = ? AND voter = ?)`,
		int64(proposalID), voter.Hex())
	if err != nil {
		return false, fmt.Errorf("has voted: %w", err)
	}
	return voted, nil
}

func (r *Repository) AddVote(ctx context.Context, proposalID uint64, voter common.Address) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE proposals SET votes = votes + 1 WHERE id = ?`, int64(proposalID))
		if err != nil {
			return fmt.Errorf("update votes: %w", err)
		}
		if err := requireAffected(res, registry.ErrProposalNotFound); err != nil {
			return err
		}

		res, err = tx.ExecContext(ctx,
			`INSERT INTO proposal_votes (proposal_id, voter) VALUES (?, ?)
			 ON CONFLICT (proposal_id, voter) DO NOTHING`,
			int64(proposalID), voter.Hex())
		if err != nil {
			return fmt.Errorf("insert vote: %w", err)
		}
		return requireAffected(res, registry.ErrAlreadyVoted)
	})
}

func (r *Repository) MarkExecuted(ctx context.Context, proposalID uint64) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		var executed bool
		err := tx.GetContext(ctx, &executed, `SELECT executed FROM proposals WHERE id = ?`, int64(proposalID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return registry.ErrProposalNotFound
			}
			return fmt.Errorf("get proposal %d: %w", proposalID, err)
		}
		if executed {
			return registry.ErrAlreadyExecuted
		}
		if _, err := tx.ExecContext(ctx, `UPDATE proposals SET executed = 1 WHERE id = ?`, int64(proposalID)); err != nil {
			return fmt.Errorf("mark executed: %w", err)
		}
		return nil
	})
}

// Governance membership

func (r *Repository) AddMember(ctx context.Context, member common.Address) error {
	if _, err := r.db.ExecContext(ctx, `INSERT INTO governance_members (member) VALUES (?)`, member.Hex()); err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (r *Repository) ListMembers(ctx context.Context) ([]common.Address, error) {
	var raw []string
	if err := r.db.SelectContext(ctx, &raw, `SELECT member FROM governance_members ORDER BY position`); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	members := make([]common.Address, 0, len(raw))
	for _, m := range raw {
		members = append(members, common.HexToAddress(m))
	}
	return members, nil
}

// Pause flag

func (r *Repository) IsPaused(ctx context.Context) (bool, error) {
	var paused bool
	err := r.db.GetContext(ctx, &paused, `SELECT paused FROM registry_state WHERE id = 1`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("get paused: %w", err)
	}
	return paused, nil
}

func (r *Repository) SetPaused(ctx context.Context, paused bool) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO registry_state (id, paused) VALUES (1, ?)
		 ON CONFLICT (id) DO UPDATE SET paused = excluded.paused`, paused)
	if err != nil {
		return fmt.Errorf("set paused: %w", err)
	}
	return nil
}

func (r *Repository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
