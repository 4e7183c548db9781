package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// PublishContent stores a new content record owned by caller. Ids are dense
// and start at 1.
func (s *service) PublishContent(ctx context.Context, caller common.Address, req PublishContentRequest) (*Content, error) {
	var content *Content
	err := s.guarded(ctx, func(ctx context.Context) error {
		if err := req.Validate(); err != nil {
			return err
		}

		count, err := s.repository.CountContents(ctx)
		if err != nil {
			return fmt.Errorf("failed to count contents: %w", err)
		}

		c := &Content{
			ID:          count + 1,
			Creator:     caller,
			ContentHash: req.ContentHash,
			Title:       req.Title,
			Tags:        append([]string{}, req.Tags...),
			Price:       req.Price,
		}
		if err := s.repository.CreateContent(ctx, c); err != nil {
			return &ContentError{ContentID: c.ID, Op: "publish", Err: err}
		}
		content = c

		s.notify(ctx, "ContentPublished", func(sink EventSink) error {
			return sink.ContentPublished(ctx, ContentPublished{
				ContentID: c.ID,
				Creator:   c.Creator,
				Title:     c.Title,
			})
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return content, nil
}

func (s *service) GetContent(ctx context.Context, id uint64) (*Content, error) {
	var content *Content
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		content, err = s.getContent(ctx, id)
		return err
	})
	return content, err
}

func (s *service) getContent(ctx context.Context, id uint64) (*Content, error) {
	if id == 0 {
		return nil, ErrContentNotFound
	}
	return s.repository.GetContent(ctx, id)
}

func (s *service) ListContents(ctx context.Context, req ListContentsRequest) ([]*Content, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	params := ListContentsParams{
		Creator: req.Creator,
		Limit:   req.Limit,
		Offset:  req.Offset,
	}
	if params.Limit == 0 {
		params.Limit = MaxListLimit
	}
	if req.Tag != "" {
		tag := req.Tag
		params.Tag = &tag
	}

	var contents []*Content
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		contents, err = s.repository.ListContents(ctx, params)
		return err
	})
	return contents, err
}

// ViewContent pays for one view. The view is counted first; the full
// paidAmount then moves from caller to the creator. If the ledger rejects the
// transfer the error wraps ErrTransferFailed and the view remains counted.
func (s *service) ViewContent(ctx context.Context, caller common.Address, id uint64, paidAmount uint64) error {
	return s.guarded(ctx, func(ctx context.Context) error {
		content, err := s.getContent(ctx, id)
		if err != nil {
			return &ContentError{ContentID: id, Op: "view", Err: err}
		}
		if paidAmount < content.Price {
			return &ContentError{ContentID: id, Op: "view", Err: ErrInsufficientPayment}
		}

		if err := s.repository.IncrementViews(ctx, id); err != nil {
			return &ContentError{ContentID: id, Op: "view", Err: err}
		}

		err = s.callout(func() error {
			return s.ledger.Transfer(ctx, caller, content.Creator, paidAmount)
		})
		if err != nil {
			return &ContentError{
				ContentID: id,
				Op:        "view",
				Err:       fmt.Errorf("%w: %w", ErrTransferFailed, err),
			}
		}
		return nil
	})
}

// RateContent records caller's rating of 1 to 5. Each identity rates a
// content at most once.
func (s *service) RateContent(ctx context.Context, caller common.Address, id uint64, rating uint8) error {
	return s.guarded(ctx, func(ctx context.Context) error {
		if rating < MinRating || rating > MaxRating {
			return invalidArgument("rating must be between %d and %d, got %d", MinRating, MaxRating, rating)
		}
		if _, err := s.getContent(ctx, id); err != nil {
			return &ContentError{ContentID: id, Op: "rate", Err: err}
		}

		previous, err := s.repository.GetUserRating(ctx, id, caller)
		if err != nil {
			return &ContentError{ContentID: id, Op: "rate", Err: err}
		}
		if previous != 0 {
			return &ContentError{ContentID: id, Op: "rate", Err: ErrAlreadyRated}
		}

		if err := s.repository.AddRating(ctx, id, caller, rating); err != nil {
			return &ContentError{ContentID: id, Op: "rate", Err: err}
		}

		s.notify(ctx, "ContentRated", func(sink EventSink) error {
			return sink.ContentRated(ctx, ContentRated{ContentID: id, Rater: caller, Rating: rating})
		})
		return nil
	})
}

func (s *service) GetUserRating(ctx context.Context, id uint64, rater common.Address) (uint8, error) {
	var rating uint8
	err := s.read(ctx, func(ctx context.Context) error {
		if _, err := s.getContent(ctx, id); err != nil {
			return err
		}
		var err error
		rating, err = s.repository.GetUserRating(ctx, id, rater)
		return err
	})
	return rating, err
}

// GetAverageRating returns the floor of the mean rating, or 0 when unrated.
func (s *service) GetAverageRating(ctx context.Context, id uint64) (uint64, error) {
	var avg uint64
	err := s.read(ctx, func(ctx context.Context) error {
		content, err := s.getContent(ctx, id)
		if err != nil {
			return err
		}
		avg = content.AverageRating()
		return nil
	})
	if errors.Is(err, ErrContentNotFound) {
		return 0, &ContentError{ContentID: id, Op: "average_rating", Err: err}
	}
	return avg, err
}
