package registry

import (
	"math"

	"github.com/ethereum/go-ethereum/common"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Input limits
const (
	MaxTitleLength       = 256
	MaxContentHashLength = 512
	MaxTags              = 32
	MaxTagLength         = 64
	MaxDescriptionLength = 4096
	MaxListLimit         = 100

	// MaxPrice keeps prices within a signed 64-bit SQL column.
	MaxPrice uint64 = math.MaxInt64
)

// Request/Response DTOs

// PublishContentRequest contains parameters for publishing content
type PublishContentRequest struct {
	ContentHash string
	Title       string
	Tags        []string
	Price       uint64
}

// Validate checks the request. A zero price, an empty hash or an empty title
// is rejected.
func (r *PublishContentRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.ContentHash, validation.Required, validation.Length(1, MaxContentHashLength)),
		validation.Field(&r.Title, validation.Required, validation.Length(1, MaxTitleLength)),
		validation.Field(&r.Tags,
			validation.Length(0, MaxTags),
			validation.Each(validation.Length(0, MaxTagLength)),
		),
		validation.Field(&r.Price, validation.Required, validation.Max(MaxPrice)),
	)
	if err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// ListContentsRequest contains parameters for listing content
type ListContentsRequest struct {
	Creator *common.Address
	Tag     string
	Limit   int
	Offset  int
}

// Validate checks pagination bounds
func (r *ListContentsRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.Limit, validation.Min(0), validation.Max(MaxListLimit)),
		validation.Field(&r.Offset, validation.Min(0)),
	)
	if err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

func validateDescription(description string) error {
	err := validation.Validate(description, validation.Required, validation.Length(1, MaxDescriptionLength))
	if err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}
