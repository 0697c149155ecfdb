package dto

import (
	"strconv"

	"task-api/internal/domain/entity"
	domainErrors "task-api/internal/domain/errors"
)

// ListRequest represents the pagination query of a list endpoint
type ListRequest struct {
	Page int `json:"page" validate:"gte=1"`
	Size int `json:"size" validate:"gte=1,lte=100"`
}

// ParseListRequest reads page and size from raw query values. Empty values
// take the defaults; non-numeric values are validation errors.
func ParseListRequest(page, size string) (ListRequest, error) {
	req := ListRequest{Page: entity.DefaultPage, Size: entity.DefaultPageSize}
	fields := map[string][]string{}

	if page != "" {
		n, err := strconv.Atoi(page)
		if err != nil {
			fields["page"] = append(fields["page"], "page must be an integer")
		}
		req.Page = n
	}
	if size != "" {
		n, err := strconv.Atoi(size)
		if err != nil {
			fields["size"] = append(fields["size"], "size must be an integer")
		}
		req.Size = n
	}
	if len(fields) > 0 {
		return req, domainErrors.NewValidationError(fields)
	}
	return req, nil
}

// Validate validates the ListRequest
func (r *ListRequest) Validate() error {
	return ValidateStruct(r)
}

// Params converts the request into store paging parameters
func (r *ListRequest) Params() entity.PageParams {
	return entity.PageParams{Page: r.Page, Size: r.Size}
}

// PageResponse represents one page of a collection
type PageResponse[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
	Pages int   `json:"pages"`
}

// NewPageResponse projects every row of p with fn
func NewPageResponse[E, T any](p *entity.Page[E], fn func(*E) (T, error)) (*PageResponse[T], error) {
	mapped, err := entity.MapPage(p, func(e E) (T, error) { return fn(&e) })
	if err != nil {
		return nil, err
	}
	return &PageResponse[T]{
		Items: mapped.Items,
		Total: mapped.Total,
		Page:  mapped.Page,
		Size:  mapped.Size,
		Pages: mapped.Pages,
	}, nil
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string              `json:"error"`
	Code    string              `json:"code,omitempty"`
	Message string              `json:"message"`
	Details map[string][]string `json:"details,omitempty"`
}
