/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

// QueryFilter describes a WHERE clause schema and its argument values.
type QueryFilter struct {
	Schema string
	Args   []interface{}
}

// NewQueryFilter creates a new query filter with schema and args.
func NewQueryFilter(schema string, args ...interface{}) *QueryFilter {
	return &QueryFilter{schema, args}
}

const defaultPageSize = 10

// PageRequest describes a zero-based page index, its size, an optional
// filter and the sort order.
type PageRequest struct {
	page     int
	pageSize int
	filter   *QueryFilter
	sort     Sort
}

// GetPageSize returns the page size, defaulting to 10.
func (p *PageRequest) GetPageSize() int {
	if p.pageSize < 1 {
		p.pageSize = defaultPageSize
	}
	return p.pageSize
}

// GetPage returns the zero-based page index.
func (p *PageRequest) GetPage() int {
	if p.page < 0 {
		p.page = 0
	}
	return p.page
}

func (p *PageRequest) GetOffset() int {
	return p.GetPage() * p.GetPageSize()
}

func (p *PageRequest) GetFilter() *QueryFilter {
	return p.filter
}

func (p *PageRequest) GetSort() Sort {
	return p.sort
}

// GetOrders renders the sort as ORDER BY fragments.
func (p *PageRequest) GetOrders() []string {
	return p.sort.Clauses()
}

// WithFilter returns a copy of the request with the filter replaced.
func (p *PageRequest) WithFilter(filter *QueryFilter) *PageRequest {
	return &PageRequest{p.GetPage(), p.GetPageSize(), filter, p.sort}
}

// Next returns the request for the following page.
func (p *PageRequest) Next() *PageRequest {
	return &PageRequest{p.GetPage() + 1, p.GetPageSize(), p.filter, p.sort}
}

// Previous returns the request for the preceding page, or the first page.
func (p *PageRequest) Previous() *PageRequest {
	if p.GetPage() == 0 {
		return p.First()
	}
	return &PageRequest{p.GetPage() - 1, p.GetPageSize(), p.filter, p.sort}
}

// First returns the request for page zero.
func (p *PageRequest) First() *PageRequest {
	return &PageRequest{0, p.GetPageSize(), p.filter, p.sort}
}

// NewPageRequest constructs a PageRequest with filter and sort settings.
func NewPageRequest(page int, pageSize int, filter *QueryFilter, sort Sort) *PageRequest {
	return &PageRequest{page, pageSize, filter, sort}
}

// NewPageRequestWithFilter constructs a PageRequest with a filter only.
func NewPageRequestWithFilter(page int, pageSize int, filter *QueryFilter) *PageRequest {
	return NewPageRequest(page, pageSize, filter, Unsorted)
}

// NewPageRequestWithSort constructs a PageRequest with ordering only.
func NewPageRequestWithSort(page int, pageSize int, sort Sort) *PageRequest {
	return NewPageRequest(page, pageSize, nil, sort)
}

// NewDefaultPageRequest constructs a PageRequest with no filter or ordering.
func NewDefaultPageRequest(page int, pageSize int) *PageRequest {
	return NewPageRequest(page, pageSize, nil, Unsorted)
}

// Pagination holds one page of items along with the total element count.
type Pagination[T any] struct {
	Page     int
	PageSize int
	Total    int
	Items    []*T
}

// NewDefaultPagination constructs an empty pagination container.
func NewDefaultPagination[T any](page int, pageSize int) *Pagination[T] {
	return &Pagination[T]{page, pageSize, 0, make([]*T, 0)}
}

// TotalPages is the number of pages needed for Total elements.
func (p *Pagination[T]) TotalPages() int {
	if p.PageSize < 1 {
		return 1
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

func (p *Pagination[T]) NumberOfElements() int { return len(p.Items) }

func (p *Pagination[T]) IsFirst() bool { return p.Page == 0 }

func (p *Pagination[T]) IsLast() bool { return !p.HasNext() }

func (p *Pagination[T]) HasNext() bool { return p.Page+1 < p.TotalPages() }

func (p *Pagination[T]) HasPrevious() bool { return p.Page > 0 }

// MapPage converts the content of a page, keeping its metadata.
func MapPage[T any, R any](p *Pagination[T], fn func(*T) *R) *Pagination[R] {
	out := &Pagination[R]{p.Page, p.PageSize, p.Total, make([]*R, 0, len(p.Items))}
	for _, item := range p.Items {
		out.Items = append(out.Items, fn(item))
	}
	return out
}

// Slice is a window of items without a total count; only whether another
// window follows is known.
type Slice[T any] struct {
	Page     int
	PageSize int
	Items    []*T
	Next     bool
}

// NewDefaultSlice constructs an empty slice container.
func NewDefaultSlice[T any](page int, pageSize int) *Slice[T] {
	return &Slice[T]{page, pageSize, make([]*T, 0), false}
}

func (s *Slice[T]) NumberOfElements() int { return len(s.Items) }

func (s *Slice[T]) HasNext() bool { return s.Next }

func (s *Slice[T]) IsFirst() bool { return s.Page == 0 }

func (s *Slice[T]) IsLast() bool { return !s.Next }

func (s *Slice[T]) HasPrevious() bool { return s.Page > 0 }

// MapSlice converts the content of a slice, keeping its metadata.
func MapSlice[T any, R any](s *Slice[T], fn func(*T) *R) *Slice[R] {
	out := &Slice[R]{s.Page, s.PageSize, make([]*R, 0, len(s.Items)), s.Next}
	for _, item := range s.Items {
		out.Items = append(out.Items, fn(item))
	}
	return out
}
