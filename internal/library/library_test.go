package library

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florianilch/shelf/internal/apiclient"
	"github.com/florianilch/shelf/internal/shelfapi"
)

type stubSource struct {
	titles []shelfapi.UserTitle
	err    error
}

func (s *stubSource) MyTitles(context.Context) ([]shelfapi.UserTitle, error) {
	return s.titles, s.err
}

func title(id int64, c shelfapi.TitleCategory, st shelfapi.UserTitleStatus) shelfapi.UserTitle {
	return shelfapi.UserTitle{ID: id, Status: st, Title: shelfapi.Title{Category: c}}
}

func ids(titles []shelfapi.UserTitle) []int64 {
	out := []int64{}
	for _, t := range titles {
		out = append(out, t.ID)
	}
	return out
}

func fixture(t *testing.T) *Store {
	t.Helper()
	s := New(&stubSource{titles: []shelfapi.UserTitle{
		title(1, shelfapi.CategoryGame, shelfapi.StatusPlaying),
		title(2, shelfapi.CategoryGame, shelfapi.StatusWatching),
		title(3, shelfapi.CategoryMovie, shelfapi.StatusWatching),
		title(4, shelfapi.CategoryMovie, shelfapi.StatusPlaying),
		title(5, shelfapi.CategoryMovie, shelfapi.StatusCompleted),
		title(6, shelfapi.CategoryAnime, shelfapi.StatusDropped),
	}})
	require.NoError(t, s.Fetch(context.Background()))
	return s
}

func TestByStatus(t *testing.T) {
	s := fixture(t)

	tests := []struct {
		name     string
		status   shelfapi.UserTitleStatus
		category shelfapi.TitleCategory
		want     []int64
	}{
		{"all statuses in category", AllStatuses, shelfapi.CategoryMovie, []int64{3, 4, 5}},
		{"all statuses everywhere", AllStatuses, "", []int64{1, 2, 3, 4, 5, 6}},
		{"games keep playing and watching apart", shelfapi.StatusPlaying, shelfapi.CategoryGame, []int64{1}},
		{"movies group watching with playing", shelfapi.StatusWatching, shelfapi.CategoryMovie, []int64{3, 4}},
		{"movies group playing with watching", shelfapi.StatusPlaying, shelfapi.CategoryMovie, []int64{3, 4}},
		{"no category is exact", shelfapi.StatusWatching, "", []int64{2, 3}},
		{"plain status", shelfapi.StatusCompleted, shelfapi.CategoryMovie, []int64{5}},
		{"empty result", shelfapi.StatusPlanned, shelfapi.CategoryAnime, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(s.ByStatus(tt.status, tt.category)))
			assert.Equal(t, len(tt.want), s.CountByStatus(tt.status, tt.category))
		})
	}
}

func TestByCategory(t *testing.T) {
	s := fixture(t)
	assert.Equal(t, []int64{1, 2}, ids(s.ByCategory(shelfapi.CategoryGame)))
	assert.Empty(t, s.ByCategory(shelfapi.CategorySeries))
}

func TestFetchFailureKeepsSnapshot(t *testing.T) {
	src := &stubSource{titles: []shelfapi.UserTitle{title(1, shelfapi.CategoryGame, shelfapi.StatusPlanned)}}
	s := New(src)
	require.NoError(t, s.Fetch(context.Background()))

	src.err = &apiclient.Error{Kind: apiclient.KindHTTP, Status: http.StatusBadGateway, Message: "upstream down"}
	require.Error(t, s.Fetch(context.Background()))
	assert.Equal(t, "upstream down", s.Err())
	assert.Len(t, s.Titles(), 1)
	assert.False(t, s.Loading())

	src.err = errors.New("boom")
	require.Error(t, s.Fetch(context.Background()))
	assert.Equal(t, fetchFailedMessage, s.Err())

	src.err = nil
	require.NoError(t, s.Fetch(context.Background()))
	assert.Empty(t, s.Err())
}
