package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/lottery-agency-server/internal/lottery-server/draw"
)

type fakeDraw struct {
	status  draw.Status
	winners map[int]int
}

func (f fakeDraw) Status() draw.Status { return f.status }

func (f fakeDraw) Winners(agency int) (int, bool) {
	n, ok := f.winners[agency]
	return n, ok
}

type fakeCache struct {
	winners  map[int]int
	released bool
	err      error
}

func (f fakeCache) Released(context.Context) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.released, nil
}

func (f fakeCache) GetWinners(_ context.Context, agency int) (int, bool, error) {
	if f.err != nil {
		return 0, false, f.err
	}
	n, ok := f.winners[agency]
	return n, ok, nil
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestGetDraw(t *testing.T) {
	api := &API{Draw: fakeDraw{status: draw.Status{Expected: 3, Ready: []int{1, 2}}}}

	rec := get(t, api.Router(), "/v1/draw")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var st draw.Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	assert.Equal(t, 3, st.Expected)
	assert.Equal(t, []int{1, 2}, st.Ready)
	assert.False(t, st.Released)
}

func TestGetWinners(t *testing.T) {
	released := fakeDraw{
		status:  draw.Status{Expected: 2, Ready: []int{1, 2}, Released: true},
		winners: map[int]int{1: 4},
	}

	tests := []struct {
		name     string
		api      *API
		path     string
		wantCode int
		wantBody *Winners
	}{
		{
			name:     "before release",
			api:      &API{Draw: fakeDraw{status: draw.Status{Expected: 2, Ready: []int{1}}}},
			path:     "/v1/agencies/1/winners",
			wantCode: http.StatusConflict,
		},
		{
			name:     "from memory",
			api:      &API{Draw: released},
			path:     "/v1/agencies/1/winners",
			wantCode: http.StatusOK,
			wantBody: &Winners{Agency: 1, Winners: 4, Source: "memory"},
		},
		{
			name:     "cache preferred",
			api:      &API{Draw: released, Cache: fakeCache{winners: map[int]int{1: 9}}},
			path:     "/v1/agencies/1/winners",
			wantCode: http.StatusOK,
			wantBody: &Winners{Agency: 1, Winners: 9, Source: "cache"},
		},
		{
			name:     "cache failure falls back",
			api:      &API{Draw: released, Cache: fakeCache{err: errors.New("redis down")}},
			path:     "/v1/agencies/1/winners",
			wantCode: http.StatusOK,
			wantBody: &Winners{Agency: 1, Winners: 4, Source: "memory"},
		},
		{
			name:     "unknown agency after release",
			api:      &API{Draw: released},
			path:     "/v1/agencies/7/winners",
			wantCode: http.StatusNotFound,
		},
		{
			name:     "released only in cache",
			api:      &API{Draw: fakeDraw{status: draw.Status{Expected: 2}}, Cache: fakeCache{released: true}},
			path:     "/v1/agencies/7/winners",
			wantCode: http.StatusNotFound,
		},
		{
			name:     "cache failure before release",
			api:      &API{Draw: fakeDraw{status: draw.Status{Expected: 2}}, Cache: fakeCache{err: errors.New("redis down")}},
			path:     "/v1/agencies/1/winners",
			wantCode: http.StatusConflict,
		},
		{
			name:     "invalid id",
			api:      &API{Draw: released},
			path:     "/v1/agencies/abc/winners",
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, tt.api.Router(), tt.path)
			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody == nil {
				return
			}
			var got Winners
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			assert.Equal(t, *tt.wantBody, got)
		})
	}
}
