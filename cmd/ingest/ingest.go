package main

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"safetysnap/internal/feature/images/domain/entity"
	imageusecase "safetysnap/internal/feature/images/usecase"
)

type uploader interface {
	Upload(ctx context.Context, in imageusecase.UploadInput) (*entity.Image, bool, error)
}

type result struct {
	Created    int64
	Duplicates int64
	Failed     int64
}

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true, ".webp": true}

// listImages はdir直下の画像ファイルを名前順に返します。
func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// ingestDir はworkers並列で画像を投入します。1件の失敗では中断せず、件数に計上します。
func ingestDir(ctx context.Context, uc uploader, dir string, workers int) (result, error) {
	paths, err := listImages(dir)
	if err != nil {
		return result{}, err
	}
	if workers < 1 {
		workers = 1
	}

	var created, dups, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, p := range paths {
		g.Go(func() error {
			data, err := os.ReadFile(p)
			if err != nil {
				failed.Add(1)
				slog.Error("failed to read image", "path", p, "error", err)
				return nil
			}
			img, isNew, err := uc.Upload(gctx, imageusecase.UploadInput{
				Filename:    filepath.Base(p),
				ContentType: mime.TypeByExtension(filepath.Ext(p)),
				Data:        data,
			})
			if err != nil {
				failed.Add(1)
				slog.Error("failed to ingest image", "path", p, "error", err)
				return nil
			}
			if isNew {
				created.Add(1)
			} else {
				dups.Add(1)
			}
			slog.Info("ingested", "path", p, "image_id", img.ID, "label", img.Label, "created", isNew)
			return nil
		})
	}
	_ = g.Wait()

	res := result{Created: created.Load(), Duplicates: dups.Load(), Failed: failed.Load()}
	return res, ctx.Err()
}
