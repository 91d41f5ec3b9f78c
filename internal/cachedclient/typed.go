// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cachedclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/staranto/saasctl/internal/apiclient"
)

// GetAs is Get decoded into T.
func GetAs[T any](ctx context.Context, f *Facade, url string, cfg *apiclient.RequestConfig) (T, error) {
	return decode[T](f.Get(ctx, url, cfg))
}

// PostAs is Post decoded into T.
func PostAs[T any](ctx context.Context, f *Facade, url string, body any, cfg *apiclient.RequestConfig) (T, error) {
	return decode[T](f.Post(ctx, url, body, cfg))
}

// PutAs is Put decoded into T.
func PutAs[T any](ctx context.Context, f *Facade, url string, body any, cfg *apiclient.RequestConfig) (T, error) {
	return decode[T](f.Put(ctx, url, body, cfg))
}

// PatchAs is Patch decoded into T.
func PatchAs[T any](ctx context.Context, f *Facade, url string, body any, cfg *apiclient.RequestConfig) (T, error) {
	return decode[T](f.Patch(ctx, url, body, cfg))
}

// DeleteAs is Delete decoded into T.
func DeleteAs[T any](ctx context.Context, f *Facade, url string, cfg *apiclient.RequestConfig) (T, error) {
	return decode[T](f.Delete(ctx, url, cfg))
}

// UploadAs is Upload decoded into T.
func UploadAs[T any](ctx context.Context, f *Facade, url string, form *apiclient.FormData, cfg *apiclient.RequestConfig) (T, error) {
	return decode[T](f.Upload(ctx, url, form, cfg))
}

// decode leaves T at its zero value for an empty payload.
func decode[T any](raw json.RawMessage, err error) (T, error) {
	var out T
	if err != nil {
		return out, err
	}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("failed to decode %T: %w", out, err)
	}
	return out, nil
}
