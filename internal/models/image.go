package models

import (
	"image"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// SupportedExtensions are the lower-cased extensions treated as images.
var SupportedExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// IsImageFile reports whether name has a supported image extension.
func IsImageFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, supported := range SupportedExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}

// Thumbnail is a decoded, display-sized copy of an image file.
type Thumbnail struct {
	Image    image.Image
	Width    int
	Height   int
	Format   string
	LoadTime time.Duration
}

// AspectRatio returns width over height, or 1 for a degenerate thumbnail.
func (t *Thumbnail) AspectRatio() float32 {
	if t == nil || t.Height == 0 {
		return 1
	}
	return float32(t.Width) / float32(t.Height)
}

// ThumbnailCache maps image paths to decoded thumbnails
type ThumbnailCache struct {
	mu     sync.RWMutex
	thumbs map[string]*Thumbnail
	failed map[string]error
}

// NewThumbnailCache creates an empty cache
func NewThumbnailCache() *ThumbnailCache {
	return &ThumbnailCache{
		thumbs: make(map[string]*Thumbnail),
		failed: make(map[string]error),
	}
}

// Put stores a thumbnail for path
func (c *ThumbnailCache) Put(path string, thumb *Thumbnail) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.thumbs[path] = thumb
	delete(c.failed, path)
}

// MarkFailed records that path could not be decoded
func (c *ThumbnailCache) MarkFailed(path string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed[path] = err
}

// Get returns the thumbnail for path, if loaded
func (c *ThumbnailCache) Get(path string) (*Thumbnail, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	thumb, ok := c.thumbs[path]
	return thumb, ok
}

// Settled reports whether path was either loaded or failed
func (c *ThumbnailCache) Settled(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, loaded := c.thumbs[path]
	_, failed := c.failed[path]
	return loaded || failed
}

// Rename moves the entry for from to to. Sorting and undo keep the decoded
// image instead of reloading it from its new location.
func (c *ThumbnailCache) Rename(from, to string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if thumb, ok := c.thumbs[from]; ok {
		delete(c.thumbs, from)
		c.thumbs[to] = thumb
	}
	if err, ok := c.failed[from]; ok {
		delete(c.failed, from)
		c.failed[to] = err
	}
}

// Delete drops path from the cache
func (c *ThumbnailCache) Delete(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.thumbs, path)
	delete(c.failed, path)
}

// Len returns the number of loaded thumbnails
func (c *ThumbnailCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.thumbs)
}
