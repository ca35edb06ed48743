package devserver

import (
	"strconv"
	"strings"

	"github.com/florianilch/shelf/internal/shelfapi"
)

func ptr[T any](v T) *T { return &v }

// catalogue stands in for the external metadata providers.
var catalogue = []shelfapi.TitleSearchResult{
	{ExternalID: "igdb-1", Title: "Half-Life", ReleaseYear: ptr(1998), Type: shelfapi.TypeGame, Genres: []string{"Shooter"}},
	{ExternalID: "igdb-2", Title: "Half-Life 2", ReleaseYear: ptr(2004), Type: shelfapi.TypeGame, Genres: []string{"Shooter"}},
	{ExternalID: "igdb-3", Title: "Portal", ReleaseYear: ptr(2007), Type: shelfapi.TypeGame, Genres: []string{"Puzzle"}},
	{ExternalID: "igdb-4", Title: "Disco Elysium", ReleaseYear: ptr(2019), Type: shelfapi.TypeGame, Genres: []string{"Role-playing (RPG)"}},
	{ExternalID: "tmdb-movie-603", Title: "The Matrix", ReleaseYear: ptr(1999), Type: shelfapi.TypeMovie, Genres: []string{"Action", "Science Fiction"}},
	{ExternalID: "tmdb-movie-27205", Title: "Inception", ReleaseYear: ptr(2010), Type: shelfapi.TypeMovie, Genres: []string{"Action", "Thriller"}},
	{ExternalID: "tmdb-tv-1396", Title: "Breaking Bad", ReleaseYear: ptr(2008), Type: shelfapi.TypeTV, Genres: []string{"Drama", "Crime"}},
	{ExternalID: "tmdb-tv-66732", Title: "Stranger Things", OriginalTitle: ptr("Stranger Things"), ReleaseYear: ptr(2016), Type: shelfapi.TypeTV, Genres: []string{"Drama", "Mystery"}},
	{ExternalID: "shiki-1", Title: "Cowboy Bebop", ReleaseYear: ptr(1998), Type: shelfapi.TypeAnime, Genres: []string{"Action", "Sci-Fi"}},
	{ExternalID: "shiki-5114", Title: "Fullmetal Alchemist: Brotherhood", ReleaseYear: ptr(2009), Type: shelfapi.TypeAnime, Genres: []string{"Action", "Adventure"}},
}

func searchCatalogue(query string, typ shelfapi.TitleType) []shelfapi.TitleSearchResult {
	query = strings.ToLower(strings.TrimSpace(query))
	out := []shelfapi.TitleSearchResult{}
	for _, item := range catalogue {
		if typ != "" && item.Type != typ {
			continue
		}
		if strings.Contains(strings.ToLower(item.Title), query) {
			out = append(out, item)
		}
	}
	return out
}

func searchGames(query string) []shelfapi.GameSearchResult {
	out := []shelfapi.GameSearchResult{}
	for _, item := range searchCatalogue(query, shelfapi.TypeGame) {
		id, _ := strconv.ParseInt(strings.TrimPrefix(item.ExternalID, "igdb-"), 10, 64)
		out = append(out, shelfapi.GameSearchResult{
			ID:          id,
			Name:        item.Title,
			ReleaseYear: item.ReleaseYear,
			CoverURL:    item.PosterURL,
			Genres:      item.Genres,
		})
	}
	return out
}
