// Package pagination parses limit/offset query parameters and wraps paged
// listings in a common envelope.
package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is one page request. Offset counts rows, not pages.
type Params struct {
	Limit  int
	Offset int
}

// FromContext reads limit and offset from the query string. The web client
// sends a 1-based pagina instead of offset; an explicit offset wins.
func FromContext(c echo.Context) Params {
	p := Params{Limit: atoi(c.QueryParam("limit"))}
	switch {
	case p.Limit <= 0:
		p.Limit = DefaultLimit
	case p.Limit > MaxLimit:
		p.Limit = MaxLimit
	}

	p.Offset = atoi(c.QueryParam("offset"))
	if page := atoi(c.QueryParam("pagina")); p.Offset == 0 && page > 1 {
		p.Offset = (page - 1) * p.Limit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// Page is the 1-based page number the offset falls on.
func (p Params) Page() int {
	return p.Offset/p.Limit + 1
}

// Response is the envelope of a paged listing.
type Response struct {
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	Page    int         `json:"pagina"`
	Pages   int         `json:"total_paginas"`
	HasMore bool        `json:"has_more"`
}

func NewResponse(data interface{}, total int, p Params) *Response {
	pages := 0
	if total > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return &Response{
		Data:    data,
		Total:   total,
		Limit:   p.Limit,
		Offset:  p.Offset,
		Page:    p.Page(),
		Pages:   pages,
		HasMore: p.Offset+p.Limit < total,
	}
}
