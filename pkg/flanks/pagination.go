package flanks

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"maps"
	"net/http"

	"github.com/fivetwenty-io/flanks-go/internal/constants"
)

// Page is one page of a cursor-paginated list. An empty NextPageToken means there
// are no more pages.
type Page[T any] struct {
	Items         []T    `json:"items"                     yaml:"items"`
	NextPageToken string `json:"next_page_token,omitempty" yaml:"next_page_token,omitempty"`
}

// HasNext reports whether another page can be requested.
func (p *Page[T]) HasNext() bool {
	return p.NextPageToken != ""
}

// PageRequest describes a cursor-paginated POST endpoint.
type PageRequest struct {
	// Path of the list endpoint.
	Path string

	// Body holds the caller's fields. It is copied for every page and never mutated.
	Body map[string]interface{}

	// ItemKey is the response field holding the items. Defaults to "items".
	ItemKey string
}

func (r PageRequest) itemKey() string {
	if r.ItemKey == "" {
		return constants.DefaultItemKey
	}

	return r.ItemKey
}

// payload returns the body for one page: the caller's fields plus page_token,
// which is JSON null on the first page.
func (r PageRequest) payload(pageToken string) map[string]interface{} {
	body := make(map[string]interface{}, len(r.Body)+1)
	maps.Copy(body, r.Body)

	if pageToken == "" {
		body[constants.PageTokenField] = nil
	} else {
		body[constants.PageTokenField] = pageToken
	}

	return body
}

// Projection turns one raw item into a T.
type Projection[T any] func(raw json.RawMessage) (T, error)

// JSONProjection decodes an item with encoding/json.
func JSONProjection[T any](raw json.RawMessage) (T, error) {
	var item T

	err := json.Unmarshal(raw, &item)

	return item, err
}

// FetchPage requests a single page. An empty pageToken requests the first page.
func FetchPage[T any](ctx context.Context, caller Caller, req PageRequest, pageToken string) (*Page[T], error) {
	return FetchPageWith(ctx, caller, req, pageToken, JSONProjection[T])
}

// FetchPageWith is FetchPage with a custom item projection.
func FetchPageWith[T any](
	ctx context.Context,
	caller Caller,
	req PageRequest,
	pageToken string,
	project Projection[T],
) (*Page[T], error) {
	raw, err := caller.Call(ctx, http.MethodPost, req.Path, req.payload(pageToken), nil)
	if err != nil {
		return nil, err
	}

	var envelope map[string]json.RawMessage

	err = json.Unmarshal(raw, &envelope)
	if err != nil || envelope == nil {
		return nil, pageShapeError(req.Path+": expected object page", ErrUnexpectedResponse)
	}

	data, ok := envelope[req.itemKey()]
	if !ok {
		return nil, pageShapeError(fmt.Sprintf("%s: missing field %q", req.Path, req.itemKey()), ErrUnexpectedResponse)
	}

	var rawItems []json.RawMessage

	err = json.Unmarshal(data, &rawItems)
	if err != nil {
		return nil, pageShapeError(fmt.Sprintf("%s: field %q is not a list", req.Path, req.itemKey()), ErrUnexpectedResponse)
	}

	page := &Page[T]{Items: make([]T, 0, len(rawItems))}

	for i, item := range rawItems {
		decoded, projectErr := project(item)
		if projectErr != nil {
			return nil, pageShapeError(fmt.Sprintf("decoding %s item %d", req.Path, i), projectErr)
		}

		page.Items = append(page.Items, decoded)
	}

	if data, ok := envelope[constants.NextPageTokenField]; ok {
		var next *string

		err = json.Unmarshal(data, &next)
		if err != nil {
			return nil, pageShapeError(fmt.Sprintf("%s: invalid %s", req.Path, constants.NextPageTokenField), ErrUnexpectedResponse)
		}

		if next != nil {
			page.NextPageToken = *next
		}
	}

	return page, nil
}

// pageShapeError reports a page the pager cannot read. It is a Server error so
// KindOf works on everything the pager returns.
func pageShapeError(message string, cause error) *Error {
	return &Error{Kind: KindServer, Message: message, Cause: cause}
}

// PaginationOptions bounds multi-page helpers. Zero MaxPages means no limit.
type PaginationOptions struct {
	MaxPages int
}

// PageIterator walks a cursor-paginated list one item at a time. The next page is
// requested only once the current one is exhausted. An iterator is single-use and
// may be abandoned at any point without further requests.
type PageIterator[T any] struct {
	ctx     context.Context //nolint:containedctx
	caller  Caller
	req     PageRequest
	project Projection[T]

	items     []T
	index     int
	nextToken string
	pages     int
	maxPages  int
	done      bool
	err       error
	errTaken  bool
}

// NewPageIterator creates an iterator over every item of req.
func NewPageIterator[T any](ctx context.Context, caller Caller, req PageRequest) *PageIterator[T] {
	return NewPageIteratorWith(ctx, caller, req, JSONProjection[T], nil)
}

// NewPageIteratorWith creates an iterator with a custom projection and limits.
func NewPageIteratorWith[T any](
	ctx context.Context,
	caller Caller,
	req PageRequest,
	project Projection[T],
	opts *PaginationOptions,
) *PageIterator[T] {
	it := &PageIterator[T]{
		ctx:     ctx,
		caller:  caller,
		req:     req,
		project: project,
	}

	if opts != nil {
		it.maxPages = opts.MaxPages
	}

	return it
}

func (it *PageIterator[T]) fill() {
	for it.index >= len(it.items) && !it.done {
		if it.maxPages > 0 && it.pages >= it.maxPages {
			it.done = true

			return
		}

		page, err := FetchPageWith(it.ctx, it.caller, it.req, it.nextToken, it.project)
		if err != nil {
			it.err = err
			it.done = true

			return
		}

		it.pages++
		it.items = page.Items
		it.index = 0
		it.nextToken = page.NextPageToken

		if !page.HasNext() {
			it.done = true
		}
	}
}

// HasNext reports whether Next will return an item or an unreported error. It may
// fetch the next page.
func (it *PageIterator[T]) HasNext() bool {
	it.fill()

	return it.index < len(it.items) || (it.err != nil && !it.errTaken)
}

// Next returns the next item. It returns ErrNoMoreItems once the list is exhausted.
func (it *PageIterator[T]) Next() (T, error) {
	var zero T

	it.fill()

	if it.index < len(it.items) {
		item := it.items[it.index]
		it.index++

		return item, nil
	}

	if it.err != nil {
		it.errTaken = true

		return zero, it.err
	}

	return zero, ErrNoMoreItems
}

// Err returns the error that stopped the iteration, if any.
func (it *PageIterator[T]) Err() error {
	return it.err
}

// All drains the iterator. On failure it returns the items collected so far along
// with the error.
func (it *PageIterator[T]) All() ([]T, error) {
	var all []T

	for it.HasNext() {
		item, err := it.Next()
		if err != nil {
			return all, err
		}

		all = append(all, item)
	}

	return all, nil
}

// ForEach calls fn for every item, stopping at the first error.
func (it *PageIterator[T]) ForEach(fn func(T) error) error {
	for it.HasNext() {
		item, err := it.Next()
		if err != nil {
			return err
		}

		err = fn(item)
		if err != nil {
			return err
		}
	}

	return nil
}

// Seq adapts the iterator for range-over-func. Iteration stops after the first
// error is yielded.
func (it *PageIterator[T]) Seq() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for it.HasNext() {
			item, err := it.Next()
			if !yield(item, err) || err != nil {
				return
			}
		}
	}
}

// FetchAllPages fetches every page of req and concatenates the items.
func FetchAllPages[T any](ctx context.Context, caller Caller, req PageRequest, opts *PaginationOptions) ([]T, error) {
	return NewPageIteratorWith(ctx, caller, req, JSONProjection[T], opts).All()
}

// PageResult is one page delivered by StreamPages.
type PageResult[T any] struct {
	Items         []T
	NextPageToken string
	Err           error
}

// StreamPages fetches pages in a goroutine and sends each one on the returned
// channel. The channel is closed after the last page, the first error, or when ctx
// is done.
func StreamPages[T any](ctx context.Context, caller Caller, req PageRequest, opts *PaginationOptions) <-chan PageResult[T] {
	results := make(chan PageResult[T], constants.SmallBufferSize)

	maxPages := 0
	if opts != nil {
		maxPages = opts.MaxPages
	}

	go func() {
		defer close(results)

		token := ""

		for pages := 0; maxPages == 0 || pages < maxPages; pages++ {
			page, err := FetchPage[T](ctx, caller, req, token)
			if err != nil {
				select {
				case results <- PageResult[T]{Err: err}:
				case <-ctx.Done():
				}

				return
			}

			select {
			case results <- PageResult[T]{Items: page.Items, NextPageToken: page.NextPageToken}:
			case <-ctx.Done():
				return
			}

			if !page.HasNext() {
				return
			}

			token = page.NextPageToken
		}
	}()

	return results
}
