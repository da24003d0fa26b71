package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func params(query string) Params {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/"+query, nil), httptest.NewRecorder())
	return FromContext(c)
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		query string
		want  Params
	}{
		{"", Params{Limit: DefaultLimit}},
		{"?limit=50&offset=10", Params{Limit: 50, Offset: 10}},
		{"?limit=500", Params{Limit: MaxLimit}},
		{"?limit=-3&offset=-7", Params{Limit: DefaultLimit}},
		{"?limit=abc&offset=xyz", Params{Limit: DefaultLimit}},
		{"?limit=25&pagina=3", Params{Limit: 25, Offset: 50}},
		{"?limit=25&pagina=3&offset=5", Params{Limit: 25, Offset: 5}},
		{"?pagina=1", Params{Limit: DefaultLimit}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := params(tt.query); got != tt.want {
				t.Errorf("FromContext(%q) = %+v, want %+v", tt.query, got, tt.want)
			}
		})
	}
}

func TestNewResponse(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		p       Params
		page    int
		pages   int
		hasMore bool
	}{
		{"empty", 0, Params{Limit: 20}, 1, 0, false},
		{"first of three", 45, Params{Limit: 20}, 1, 3, true},
		{"last partial", 45, Params{Limit: 20, Offset: 40}, 3, 3, false},
		{"exact fit", 40, Params{Limit: 20, Offset: 20}, 2, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResponse([]int{}, tt.total, tt.p)
			if r.Page != tt.page || r.Pages != tt.pages || r.HasMore != tt.hasMore {
				t.Errorf("got page=%d pages=%d has_more=%v, want %d %d %v",
					r.Page, r.Pages, r.HasMore, tt.page, tt.pages, tt.hasMore)
			}
			if r.Total != tt.total || r.Limit != tt.p.Limit || r.Offset != tt.p.Offset {
				t.Errorf("unexpected envelope %+v", r)
			}
		})
	}
}
