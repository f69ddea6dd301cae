package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/yukikurage/todo-api/internal/constants"
)

// Asset is a stored upload and the URL it is served from.
type Asset struct {
	Key         string
	URL         string
	Name        string
	ContentType string
	Size        int64
}

// Uploader stores multipart uploads in a Store.
type Uploader struct {
	store   Store
	baseURL string
}

// NewUploader creates an Uploader. URLs are built as
// <publicBaseURL>/uploads/<key>; an empty base yields root-relative URLs.
func NewUploader(store Store, publicBaseURL string) *Uploader {
	return &Uploader{
		store:   store,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// URL returns the public URL for key.
func (u *Uploader) URL(key string) string {
	return u.baseURL + constants.UploadsPathPrefix + "/" + key
}

// Save stores a single uploaded file.
func (u *Uploader) Save(ctx context.Context, fh *multipart.FileHeader) (Asset, error) {
	f, err := fh.Open()
	if err != nil {
		return Asset{}, fmt.Errorf("open upload %q: %w", fh.Filename, err)
	}
	defer f.Close()

	key := NewKey(fh.Filename)
	contentType := detectContentType(fh)

	n, err := u.store.Put(ctx, key, contentType, f)
	if err != nil {
		return Asset{}, fmt.Errorf("store upload %q: %w", fh.Filename, err)
	}

	return Asset{
		Key:         key,
		URL:         u.URL(key),
		Name:        fh.Filename,
		ContentType: contentType,
		Size:        n,
	}, nil
}

// SaveAll stores files in order. If any file fails, the files already stored
// by this call are removed and the error is returned.
func (u *Uploader) SaveAll(ctx context.Context, files []*multipart.FileHeader) ([]Asset, error) {
	assets := make([]Asset, 0, len(files))
	for _, fh := range files {
		asset, err := u.Save(ctx, fh)
		if err != nil {
			if rmErr := u.Remove(context.WithoutCancel(ctx), assets); rmErr != nil {
				return nil, errors.Join(err, rmErr)
			}
			return nil, err
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

// Remove deletes the given assets, reporting every failure.
func (u *Uploader) Remove(ctx context.Context, assets []Asset) error {
	var errs []error
	for _, asset := range assets {
		if err := u.store.Delete(ctx, asset.Key); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", asset.Key, err))
		}
	}
	return errors.Join(errs...)
}

// KeyFromURL returns the object key of a URL built by URL. It reports false
// for URLs this uploader did not produce.
func (u *Uploader) KeyFromURL(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, u.URL(""))
	if !ok || !ValidKey(key) {
		return "", false
	}
	return key, true
}

// RemoveURLs deletes the objects behind urls. Foreign URLs are skipped.
func (u *Uploader) RemoveURLs(ctx context.Context, urls []string) error {
	var assets []Asset
	for _, url := range urls {
		if key, ok := u.KeyFromURL(url); ok {
			assets = append(assets, Asset{Key: key, URL: url})
		}
	}
	return u.Remove(ctx, assets)
}

// URLs returns the URLs of assets in order.
func URLs(assets []Asset) []string {
	urls := make([]string, len(assets))
	for i, asset := range assets {
		urls[i] = asset.URL
	}
	return urls
}

func detectContentType(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	if ct := mime.TypeByExtension(filepath.Ext(fh.Filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
