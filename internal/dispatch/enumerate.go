package dispatch

import (
	"context"

	"media-deriver/internal/layout"
	"media-deriver/internal/mediatypes"
	"media-deriver/internal/storage"
)

// Lister lists objects under a folder. storage.ObjectStore implements it.
type Lister interface {
	List(ctx context.Context, prefix string, recursive bool) ([]storage.ObjectInfo, error)
}

// Enumerate returns the candidate assets under folder. Directory markers
// and anything inside a derived directory are left out; classification is
// left to the orchestrator.
func Enumerate(ctx context.Context, store Lister, folder string, recursive bool) ([]mediatypes.Asset, error) {
	objects, err := store.List(ctx, folder, recursive)
	if err != nil {
		return nil, err
	}

	assets := make([]mediatypes.Asset, 0, len(objects))
	for _, obj := range objects {
		if layout.IsMarker(obj.Key) || layout.IsDerived(obj.Key) {
			continue
		}
		assets = append(assets, mediatypes.Asset{
			Path:        obj.Key,
			ContentType: obj.ContentType,
			Size:        obj.Size,
		})
	}
	return assets, nil
}
