// Package sitemap resolves recursive sitemap descriptions into crawl targets.
package sitemap

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/websearch/indexd/internal/index"
)

// Resolver turns a SitemapData tree into a Sitemap entity tree with URL
// entries and typed media children.
type Resolver struct {
	logger *zap.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{logger: logger}
}

// Resolve walks the input recursively. A child node that fails to resolve
// does not abort its siblings: it is kept as a stub with IsMapped=false so a
// later resolver pass can retry it. An error resolving the root node itself
// is returned to the caller.
func (r *Resolver) Resolve(data index.SitemapData) (*index.Sitemap, error) {
	node, err := r.resolveNode(data)
	if err != nil {
		return nil, err
	}
	for _, childData := range data.SitemapIndex {
		child, err := r.Resolve(childData)
		if err != nil {
			r.logger.Warn("child sitemap resolution failed",
				zap.String("location", childData.Location),
				zap.Error(err),
			)
			child = &index.Sitemap{Location: childData.Location, IsMapped: false}
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

func (r *Resolver) resolveNode(data index.SitemapData) (*index.Sitemap, error) {
	node := &index.Sitemap{
		Location:     data.Location,
		LastModified: parseTime(data.LastModified),
		IsMapped:     true,
	}
	for _, urlData := range data.URLSet {
		entry, err := resolveURL(urlData)
		if err != nil {
			return nil, fmt.Errorf("resolve url %q: %w", urlData.Location, err)
		}
		node.URLs = append(node.URLs, entry)
	}
	return node, nil
}

func resolveURL(data index.URLData) (index.URLEntry, error) {
	entry := index.URLEntry{
		Location:     data.Location,
		LastModified: parseTime(data.LastModified),
		ChangeFreq:   index.ParseChangeFrequency(data.ChangeFrequency),
		Priority:     index.DefaultPriority,
	}
	if data.Priority != nil {
		// Out-of-range priorities pass through unclamped.
		entry.Priority = *data.Priority
	}
	for _, mediaData := range data.Media {
		media, err := resolveMedia(mediaData)
		if err != nil {
			return index.URLEntry{}, err
		}
		entry.Media = append(entry.Media, media)
	}
	return entry, nil
}

// resolveMedia dispatches on the media type string. Unrecognized types are a
// hard error, never silently dropped.
func resolveMedia(data index.MediaData) (index.MediaEntry, error) {
	switch strings.ToLower(data.Type) {
	case "image":
		return index.MediaEntry{
			Type:     index.MediaImage,
			Location: data.Location,
		}, nil
	case "video":
		return index.MediaEntry{
			Type:     index.MediaVideo,
			Location: data.Location,
			Video: &index.VideoMedia{
				ThumbnailLocation:    data.ThumbnailLocation,
				Title:                data.Title,
				Description:          data.Description,
				ContentLocation:      data.ContentLocation,
				PlayerLocation:       data.PlayerLocation,
				Duration:             parseDuration(data.Duration),
				Rating:               data.Rating,
				ViewCount:            data.ViewCount,
				PublicationDate:      parseTime(data.PublicationDate),
				Platform:             data.Platform,
				RequiresSubscription: data.RequiresSubscription,
				Tag:                  data.Tag,
			},
		}, nil
	case "news":
		return index.MediaEntry{
			Type:     index.MediaNews,
			Location: data.Location,
			News: &index.NewsMedia{
				Publication:     data.Publication,
				PublicationDate: parseTime(data.PublicationDate),
				Language:        data.Language,
				Title:           data.Title,
			},
		}, nil
	default:
		return index.MediaEntry{}, index.UnknownMediaTypeError(data.Type)
	}
}

// Flatten collects every URL entry reachable from the tree, depth first.
func Flatten(root *index.Sitemap) []index.URLEntry {
	if root == nil {
		return nil
	}
	entries := append([]index.URLEntry(nil), root.URLs...)
	for _, child := range root.Children {
		entries = append(entries, Flatten(child)...)
	}
	return entries
}

func parseTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			utc := ts.UTC()
			return &utc
		}
	}
	return nil
}

// parseDuration accepts plain seconds or a Go duration string.
func parseDuration(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return 0
}
