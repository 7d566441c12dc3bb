package apecore

import (
	"context"
	"crypto/sha1"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/openztcc/apecore/ape"
	"github.com/openztcc/apecore/frameset"
	"github.com/pkg/errors"
)

// Sprites are tens of kilobytes; anything much larger isn't one
const maxSpriteSize = 1 << 20

const scanWorkers = 10

type scanned struct {
	sprite  Sprite
	preview image.Image
}

func (c *Catalog) findFiles(ctx context.Context, base string) (<-chan string, <-chan error, error) {
	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		errc <- filepath.Walk(base, func(file string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			// Ignore any hidden files or directories
			if info.Name()[0] == '.' && file != base {
				if info.Mode().IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			// Ignore anything that isn't a normal, small file
			if !info.Mode().IsRegular() || info.Size() > maxSpriteSize {
				return nil
			}

			select {
			case out <- file:
			case <-ctx.Done():
				return errors.New("walk cancelled")
			}

			return nil
		})
	}()
	return out, errc, nil
}

// preview decodes the first presented frame of a sprite. Any failure just
// means there is no preview.
func (c *Catalog) preview(file string, container *ape.Container) (string, image.Image) {
	s, err := newSession(file, container, "", ape.ProfileRGBA)
	if err != nil {
		c.logger.Printf("No preview for \"%s\": %v\n", file, err)
		return "", nil
	}
	defer s.Close()

	anim, err := s.DecodeAll(frameset.Options{})
	if err != nil {
		c.logger.Printf("Decoding \"%s\": %v\n", file, err)
	}
	if anim == nil || len(anim.Frames) == 0 {
		return s.PalettePath(), nil
	}
	return s.PalettePath(), anim.Frames[0].Image()
}

// scanFile catalogs one candidate file, reporting false if it isn't a
// readable sprite.
func (c *Catalog) scanFile(scanID, file string) (scanned, bool) {
	b, err := os.ReadFile(file)
	if err != nil {
		c.logger.Printf("Skipping \"%s\": %v\n", file, err)
		return scanned{}, false
	}

	container, err := ape.Parse(b)
	if err != nil {
		return scanned{}, false
	}

	palettePath, preview := c.preview(file, container)

	return scanned{
		sprite: Sprite{
			Path:        file,
			SHA1:        fmt.Sprintf("%X", sha1.Sum(b)),
			Header:      container.Header,
			PalettePath: palettePath,
			ScanID:      scanID,
		},
		preview: preview,
	}, true
}

func (c *Catalog) spriteWorker(ctx context.Context, scanID string, in <-chan string) (<-chan scanned, <-chan error, error) {
	out := make(chan scanned)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		for file := range in {
			s, ok := c.scanFile(scanID, file)
			if !ok {
				continue
			}

			select {
			case out <- s:
			case <-ctx.Done():
				errc <- errors.New("scan cancelled")
				return
			}
		}
	}()
	return out, errc, nil
}

func (c *Catalog) dbWriter(ctx context.Context, in <-chan scanned, count *int) (<-chan error, error) {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for s := range in {
			if err := c.addSprite(s.sprite, s.preview); err != nil {
				errc <- err
				return
			}
			*count++
		}
	}()
	return errc, nil
}

func waitForPipeline(errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

func mergeScanned(ctx context.Context, cs ...<-chan scanned) <-chan scanned {
	var wg sync.WaitGroup
	out := make(chan scanned)
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan scanned) {
			defer wg.Done()
			for n := range c {
				select {
				case out <- n:
				case <-ctx.Done():
					return
				}
			}
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Scan walks path and records every APE sprite found in the catalog,
// returning the scan identifier and the number of sprites recorded.
func (c *Catalog) Scan(path string) (string, int, error) {
	dir, err := filepath.Abs(path)
	if err != nil {
		return "", 0, err
	}

	scanID := uuid.New().String()
	if err := c.addScan(scanID, dir); err != nil {
		return "", 0, err
	}

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	var errcList []<-chan error

	files, errc, err := c.findFiles(ctx, dir)
	if err != nil {
		return "", 0, err
	}
	errcList = append(errcList, errc)

	var outs []<-chan scanned
	for i := 0; i < scanWorkers; i++ {
		out, errc, err := c.spriteWorker(ctx, scanID, files)
		if err != nil {
			return "", 0, err
		}
		outs = append(outs, out)
		errcList = append(errcList, errc)
	}

	var count int
	errc, err = c.dbWriter(ctx, mergeScanned(ctx, outs...), &count)
	if err != nil {
		return "", 0, err
	}
	errcList = append(errcList, errc)

	if err := waitForPipeline(errcList...); err != nil {
		return scanID, 0, err
	}
	return scanID, count, nil
}
