package syncer

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/companion/internal/client/models"
	"github.com/dmitrijs2005/companion/internal/client/remote"
	"github.com/dmitrijs2005/companion/internal/client/store"
	"github.com/dmitrijs2005/companion/internal/common"
	"github.com/dmitrijs2005/companion/internal/filex"
	"github.com/dmitrijs2005/companion/internal/gatewayrpc"
)

var ErrNoImageDir = errors.New("no image directory configured")

func isLocalFile(ref string) bool {
	if ref == "" {
		return false
	}
	info, err := os.Stat(ref)
	return err == nil && info.Mode().IsRegular()
}

// looksRemote reports whether ref names a blob path rather than a file on
// this device.
func looksRemote(ref string) bool {
	return strings.HasPrefix(ref, common.UserBlobPrefix) && !isLocalFile(ref)
}

func (o *Orchestrator) remoteImagePath(item models.VisionItem) string {
	return path.Join(common.UserBlobPrefix+o.userID, "vision", item.ID+filepath.Ext(item.ImageRef))
}

// uploadImages copies local images that have no blob yet and records the
// blob paths. It returns the vision list as stored afterwards.
func (o *Orchestrator) uploadImages(ctx context.Context) ([]models.VisionItem, error) {
	items := o.LoadVisionItems(ctx)
	if o.userID == "" {
		return items, nil
	}

	var errs []error
	uploaded := make(map[string]string)
	for _, it := range items {
		if it.RemotePath != "" || !isLocalFile(it.ImageRef) {
			continue
		}
		data, err := os.ReadFile(it.ImageRef)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		p := o.remoteImagePath(it)
		if err := o.gateway.Upload(ctx, p, data, mime.TypeByExtension(filepath.Ext(p))); err != nil {
			errs = append(errs, fmt.Errorf("upload %s: %w", p, err))
			continue
		}
		uploaded[it.ID] = p
	}

	if len(uploaded) > 0 {
		var err error
		items, err = store.Update(ctx, o.store, store.KeyVisionItems, func(cur []models.VisionItem, _ bool) ([]models.VisionItem, error) {
			for i := range cur {
				if p, ok := uploaded[cur[i].ID]; ok && cur[i].RemotePath == "" {
					cur[i].RemotePath = p
				}
			}
			return cur, nil
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return items, errors.Join(errs...)
}

// pushVisionItems uploads pending images and upserts the items with their
// blob paths as image references. Local file paths never leave the device.
func (o *Orchestrator) pushVisionItems(ctx context.Context) error {
	items, uploadErr := o.uploadImages(ctx)

	payload := make([]models.VisionItem, 0, len(items))
	for _, it := range items {
		switch {
		case it.RemotePath != "":
			it.ImageRef = it.RemotePath
		case !looksRemote(it.ImageRef):
			it.ImageRef = ""
		}
		payload = append(payload, it)
	}

	raws, err := remote.EncodeAll(payload)
	if err != nil {
		return errors.Join(uploadErr, err)
	}
	return errors.Join(uploadErr, o.gateway.Upsert(ctx, gatewayrpc.EntityVisionItems, raws))
}

// downloadImage fetches blob p into the image directory and returns the
// local path.
func (o *Orchestrator) downloadImage(ctx context.Context, id, p string) (string, error) {
	if o.imageDir == "" {
		return "", ErrNoImageDir
	}
	data, err := o.gateway.Download(ctx, p)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", p, err)
	}
	dir, err := filex.EnsureDir(o.imageDir)
	if err != nil {
		return "", err
	}
	local := filepath.Join(dir, id+path.Ext(p))
	if err := filex.WriteFileAtomic(local, data, 0o600); err != nil {
		return "", err
	}
	return local, nil
}

// pullVisionItems is an additive union. New items pointing at a blob get
// their image downloaded first; an item whose download fails is left out so
// the next pull retries it.
func (o *Orchestrator) pullVisionItems(ctx context.Context) error {
	recs, err := o.gateway.Fetch(ctx, gatewayrpc.EntityVisionItems, remote.Filter{})
	if err != nil {
		return err
	}
	incoming, decodeErr := remote.DecodeAll(recs, remote.DecodeVisionItem)

	known := make(map[string]struct{})
	for _, it := range o.LoadVisionItems(ctx) {
		known[it.ID] = struct{}{}
	}

	errs := []error{decodeErr}
	fresh := make([]models.VisionItem, 0, len(incoming))
	for _, it := range incoming {
		if _, ok := known[it.ID]; ok {
			continue
		}
		if looksRemote(it.ImageRef) {
			local, err := o.downloadImage(ctx, it.ID, it.ImageRef)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			it.RemotePath, it.ImageRef = it.ImageRef, local
		}
		fresh = append(fresh, it)
	}

	_, err = store.Update(ctx, o.store, store.KeyVisionItems, func(cur []models.VisionItem, _ bool) ([]models.VisionItem, error) {
		merged, added := unionAdditive(cur, fresh)
		if added == 0 {
			return cur, store.ErrSkip
		}
		return merged, nil
	})
	errs = append(errs, err)
	return errors.Join(errs...)
}
