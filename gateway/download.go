package gateway

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// DefaultDownloadDelay is the pause between two files of a DownloadAll.
const DefaultDownloadDelay = 500 * time.Millisecond

// SaveFunc stores one downloaded asset.
type SaveFunc func(asset Asset, data []byte) error

// ProgressFunc is called after each saved asset.
type ProgressFunc func(done, total int, asset Asset)

type downloadOptions struct {
	delay    time.Duration
	progress ProgressFunc
}

type DownloadOption func(*downloadOptions)

func WithDelay(d time.Duration) DownloadOption {
	return func(o *downloadOptions) {
		o.delay = d
	}
}

func WithProgress(fn ProgressFunc) DownloadOption {
	return func(o *downloadOptions) {
		o.progress = fn
	}
}

// DownloadAll fetches the assets of a lab one after the other, waiting the
// configured delay between files. It stops at the first failure or when ctx
// is done.
func (c *Client) DownloadAll(ctx context.Context, labID int64, assets []Asset, save SaveFunc, options ...DownloadOption) error {
	o := downloadOptions{delay: DefaultDownloadDelay}
	for _, opt := range options {
		opt(&o)
	}

	for i, asset := range assets {
		if i > 0 && o.delay > 0 {
			timer := time.NewTimer(o.delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		data, err := c.DownloadLabAsset(ctx, labID, asset.AssetID)
		if err != nil {
			return errors.Wrapf(err, "[Client.DownloadAll] %s", asset.Filename)
		}
		if err := save(asset, data); err != nil {
			return errors.Wrapf(err, "[Client.DownloadAll] save %s", asset.Filename)
		}
		if o.progress != nil {
			o.progress(i+1, len(assets), asset)
		}
	}
	return nil
}
