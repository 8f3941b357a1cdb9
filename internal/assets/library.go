// Package assets is the asset collaborator consumed by the export pipeline:
// a catalog of photo and video items plus the Library interface the pipeline
// pulls thumbnails, video locations and metadata through. Any nil result or
// error from the Library means "skip this segment".
package assets

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
)

// Library resolves asset identifiers into renderable inputs.
type Library interface {
	// Thumbnail returns a decoded raster for a photo asset, or nil if the
	// asset cannot be resolved.
	Thumbnail(ctx context.Context, assetID string) (image.Image, error)
	// VideoLocation returns the local path of a video asset's media file.
	VideoLocation(ctx context.Context, assetID string) (string, error)
	// Metadata returns media type, duration and pixel size for an asset.
	Metadata(ctx context.Context, assetID string) (*Metadata, error)
}

// CatalogLibrary is a Library backed by the local SQLite asset repository.
// Decoded rasters are kept in an LRU so repeated exports of the same items
// skip the image decode.
type CatalogLibrary struct {
	repo   Repository
	cache  *RasterCache
	logger *slog.Logger
}

func NewCatalogLibrary(repo Repository, cache *RasterCache, logger *slog.Logger) *CatalogLibrary {
	return &CatalogLibrary{repo: repo, cache: cache, logger: logger}
}

func (l *CatalogLibrary) Thumbnail(ctx context.Context, assetID string) (image.Image, error) {
	if l.cache != nil {
		if img, ok := l.cache.Get(assetID); ok {
			return img, nil
		}
	}

	asset, err := l.repo.GetAsset(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("lookup asset %s: %w", assetID, err)
	}
	if asset == nil {
		return nil, nil
	}

	path := asset.ThumbnailPath
	if path == "" {
		path = asset.Path
	}

	f, err := os.Open(path)
	if err != nil {
		l.logger.Warn("asset raster unreadable", "asset_id", assetID, "error", err)
		return nil, nil
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		l.logger.Warn("asset raster undecodable", "asset_id", assetID, "error", err)
		return nil, nil
	}

	if l.cache != nil {
		l.cache.Put(assetID, img)
	}
	return img, nil
}

func (l *CatalogLibrary) VideoLocation(ctx context.Context, assetID string) (string, error) {
	asset, err := l.repo.GetAsset(ctx, assetID)
	if err != nil {
		return "", fmt.Errorf("lookup asset %s: %w", assetID, err)
	}
	if asset == nil || asset.MediaType != MediaTypeVideo {
		return "", nil
	}

	if _, err := os.Stat(asset.Path); err != nil {
		l.logger.Warn("video file missing", "asset_id", assetID, "error", err)
		return "", nil
	}
	return asset.Path, nil
}

func (l *CatalogLibrary) Metadata(ctx context.Context, assetID string) (*Metadata, error) {
	asset, err := l.repo.GetAsset(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("lookup asset %s: %w", assetID, err)
	}
	if asset == nil {
		return nil, nil
	}

	return &Metadata{
		MediaType:   asset.MediaType,
		DurationS:   asset.DurationS,
		PixelWidth:  asset.PixelWidth,
		PixelHeight: asset.PixelHeight,
	}, nil
}

// StubLibrary resolves nothing. It stands in where no catalog is configured.
type StubLibrary struct {
	logger *slog.Logger
}

func NewStubLibrary(logger *slog.Logger) *StubLibrary {
	return &StubLibrary{logger: logger}
}

func (l *StubLibrary) Thumbnail(ctx context.Context, assetID string) (image.Image, error) {
	l.logger.Info("library stub: thumbnail requested", "asset_id", assetID)
	return nil, nil
}

func (l *StubLibrary) VideoLocation(ctx context.Context, assetID string) (string, error) {
	l.logger.Info("library stub: video location requested", "asset_id", assetID)
	return "", nil
}

func (l *StubLibrary) Metadata(ctx context.Context, assetID string) (*Metadata, error) {
	l.logger.Info("library stub: metadata requested", "asset_id", assetID)
	return nil, nil
}
