package embed

import "fmt"

// Provider describes one external embed server. The catalog order defines
// fallback priority and is fixed for the lifetime of the process; entries are
// never mutated after startup, so the catalog is safe to share across
// sessions.
type Provider struct {
	Name string
	// RequiresIMDB marks providers that key their library on IMDB IDs
	// instead of TMDB IDs. Resolution for these providers needs a
	// cross-reference lookup first.
	RequiresIMDB bool
	MovieURL     func(id string) string
	EpisodeURL   func(id string, season, episode int) string
}

var catalog = []Provider{
	{
		Name: "VidSrc",
		MovieURL: func(id string) string {
			return fmt.Sprintf("https://vidsrc.xyz/embed/movie/%s", id)
		},
		EpisodeURL: func(id string, season, episode int) string {
			return fmt.Sprintf("https://vidsrc.xyz/embed/tv/%s/%d/%d", id, season, episode)
		},
	},
	{
		Name: "VidLink",
		MovieURL: func(id string) string {
			return fmt.Sprintf("https://vidlink.pro/movie/%s", id)
		},
		EpisodeURL: func(id string, season, episode int) string {
			return fmt.Sprintf("https://vidlink.pro/tv/%s/%d/%d", id, season, episode)
		},
	},
	{
		Name:         "SuperEmbed",
		RequiresIMDB: true,
		MovieURL: func(id string) string {
			return fmt.Sprintf("https://multiembed.mov/?video_id=%s", id)
		},
		EpisodeURL: func(id string, season, episode int) string {
			return fmt.Sprintf("https://multiembed.mov/?video_id=%s&s=%d&e=%d", id, season, episode)
		},
	},
	{
		Name: "2Embed",
		MovieURL: func(id string) string {
			return fmt.Sprintf("https://www.2embed.cc/embed/%s", id)
		},
		EpisodeURL: func(id string, season, episode int) string {
			return fmt.Sprintf("https://www.2embed.cc/embedtv/%s&s=%d&e=%d", id, season, episode)
		},
	},
	{
		Name:         "MoviesAPI",
		RequiresIMDB: true,
		MovieURL: func(id string) string {
			return fmt.Sprintf("https://moviesapi.club/movie/%s", id)
		},
		EpisodeURL: func(id string, season, episode int) string {
			return fmt.Sprintf("https://moviesapi.club/tv/%s-%d-%d", id, season, episode)
		},
	},
	{
		Name: "AutoEmbed",
		MovieURL: func(id string) string {
			return fmt.Sprintf("https://player.autoembed.cc/embed/movie/%s", id)
		},
		EpisodeURL: func(id string, season, episode int) string {
			return fmt.Sprintf("https://player.autoembed.cc/embed/tv/%s/%d/%d", id, season, episode)
		},
	},
}

// Catalog returns the static provider list in priority order.
func Catalog() []Provider {
	return catalog
}

// ProviderNames returns the catalog names in priority order.
func ProviderNames(providers []Provider) []string {
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Name
	}
	return names
}
