package sitemap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/websearch/indexd/internal/index"
)

func TestResolveNestedTreeFlattens(t *testing.T) {
	t.Parallel()

	data := index.SitemapData{
		Location: "https://example.com/sitemap.xml",
		SitemapIndex: []index.SitemapData{
			{
				Location: "https://example.com/sitemap-posts.xml",
				URLSet: []index.URLData{
					{Location: "https://example.com/posts/1"},
					{Location: "https://example.com/posts/2"},
				},
			},
			{
				Location: "https://example.com/sitemap-nested.xml",
				SitemapIndex: []index.SitemapData{
					{
						Location: "https://example.com/sitemap-deep.xml",
						URLSet: []index.URLData{
							{Location: "https://example.com/deep/1"},
						},
					},
				},
			},
		},
		URLSet: []index.URLData{
			{Location: "https://example.com/"},
		},
	}

	root, err := NewResolver(nil).Resolve(data)
	require.NoError(t, err)
	require.True(t, root.IsMapped)
	require.Len(t, root.Children, 2)
	require.Equal(t, 4, root.URLCount())

	entries := Flatten(root)
	locations := make([]string, 0, len(entries))
	for _, e := range entries {
		locations = append(locations, e.Location)
	}
	require.Equal(t, []string{
		"https://example.com/",
		"https://example.com/posts/1",
		"https://example.com/posts/2",
		"https://example.com/deep/1",
	}, locations)
}

func TestResolveURLDefaults(t *testing.T) {
	t.Parallel()

	prio := 0.9
	data := index.SitemapData{
		Location: "https://example.com/sitemap.xml",
		URLSet: []index.URLData{
			{Location: "https://example.com/a", ChangeFrequency: "nonsense"},
			{Location: "https://example.com/b", Priority: &prio, ChangeFrequency: "Daily", LastModified: "2024-03-01"},
		},
	}

	root, err := NewResolver(nil).Resolve(data)
	require.NoError(t, err)
	require.Len(t, root.URLs, 2)

	require.Equal(t, index.DefaultPriority, root.URLs[0].Priority)
	require.Equal(t, index.FreqUnknown, root.URLs[0].ChangeFreq)
	require.Nil(t, root.URLs[0].LastModified)

	require.Equal(t, 0.9, root.URLs[1].Priority)
	require.Equal(t, index.FreqDaily, root.URLs[1].ChangeFreq)
	require.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), root.URLs[1].LastModified.UTC())
}

func TestResolveMediaVariants(t *testing.T) {
	t.Parallel()

	data := index.SitemapData{
		Location: "https://example.com/sitemap.xml",
		URLSet: []index.URLData{
			{
				Location: "https://example.com/article",
				Media: []index.MediaData{
					{Type: "image", Location: "https://example.com/a.jpg"},
					{
						Type:        "video",
						Location:    "https://example.com/v.mp4",
						Title:       "clip",
						Duration:    "90",
						Rating:      4.5,
						ViewCount:   12,
						Platform:    "web",
					},
					{
						Type:        "news",
						Publication: "The Daily",
						Language:    "en",
						Title:       "headline",
					},
				},
			},
		},
	}

	root, err := NewResolver(nil).Resolve(data)
	require.NoError(t, err)
	media := root.URLs[0].Media
	require.Len(t, media, 3)

	require.Equal(t, index.MediaImage, media[0].Type)
	require.Nil(t, media[0].Video)
	require.Nil(t, media[0].News)

	require.Equal(t, index.MediaVideo, media[1].Type)
	require.NotNil(t, media[1].Video)
	require.Equal(t, 90*time.Second, media[1].Video.Duration)
	require.Equal(t, "clip", media[1].Video.Title)

	require.Equal(t, index.MediaNews, media[2].Type)
	require.NotNil(t, media[2].News)
	require.Equal(t, "The Daily", media[2].News.Publication)
}

func TestResolveUnknownMediaTypeFails(t *testing.T) {
	t.Parallel()

	data := index.SitemapData{
		Location: "https://example.com/sitemap.xml",
		URLSet: []index.URLData{
			{
				Location: "https://example.com/article",
				Media:    []index.MediaData{{Type: "podcast"}},
			},
		},
	}

	_, err := NewResolver(nil).Resolve(data)
	require.ErrorIs(t, err, index.ErrUnknownMediaType)
}

func TestResolveFailedChildBecomesStub(t *testing.T) {
	t.Parallel()

	data := index.SitemapData{
		Location: "https://example.com/sitemap.xml",
		SitemapIndex: []index.SitemapData{
			{
				Location: "https://example.com/sitemap-bad.xml",
				URLSet: []index.URLData{
					{Location: "https://example.com/x", Media: []index.MediaData{{Type: "hologram"}}},
				},
			},
			{
				Location: "https://example.com/sitemap-good.xml",
				URLSet:   []index.URLData{{Location: "https://example.com/y"}},
			},
		},
	}

	root, err := NewResolver(nil).Resolve(data)
	require.NoError(t, err)
	require.Len(t, root.Children, 2)

	bad := root.Children[0]
	require.False(t, bad.IsMapped)
	require.Equal(t, "https://example.com/sitemap-bad.xml", bad.Location)
	require.Empty(t, bad.URLs)

	good := root.Children[1]
	require.True(t, good.IsMapped)
	require.Len(t, good.URLs, 1)

	entries := Flatten(root)
	require.Len(t, entries, 1)
	require.Equal(t, "https://example.com/y", entries[0].Location)
}
