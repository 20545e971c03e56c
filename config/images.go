package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultImages is the illustration pool used when no image file is given.
var DefaultImages = []string{
	"https://images.unsplash.com/photo-1559329146-807aff9ff1fb?crop=entropy&cs=tinysrgb&fit=max&fm=jpg&q=80&w=1080",
	"https://images.unsplash.com/photo-1654506012740-09321c969dc2?crop=entropy&cs=tinysrgb&fit=max&fm=jpg&q=80&w=1080",
	"https://images.unsplash.com/photo-1600585154340-be6161a56a0c?crop=entropy&cs=tinysrgb&fit=max&fm=jpg&q=80&w=1080",
	"https://images.unsplash.com/photo-1590490360182-c33d57733427?crop=entropy&cs=tinysrgb&fit=max&fm=jpg&q=80&w=1080",
	"https://images.unsplash.com/photo-1560185008-b033106afce3?crop=entropy&cs=tinysrgb&fit=max&fm=jpg&q=80&w=1080",
}

// ImagePool is the set of illustrations listings are assigned from.
type ImagePool struct {
	Images   []string `yaml:"images"`
	Fallback string   `yaml:"fallback"`
}

// DefaultImagePool returns the built-in pool; the fallback is its third entry.
func DefaultImagePool() *ImagePool {
	images := make([]string, len(DefaultImages))
	copy(images, DefaultImages)
	return &ImagePool{Images: images, Fallback: images[2]}
}

// LoadImagePool reads a YAML image pool. An empty path yields the default pool.
//
//	images:
//	  - https://example.com/a.jpg
//	  - https://example.com/b.jpg
//	fallback: https://example.com/a.jpg
func LoadImagePool(path string) (*ImagePool, error) {
	if path == "" {
		return DefaultImagePool(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image pool: %w", err)
	}
	var pool ImagePool
	if err := yaml.Unmarshal(data, &pool); err != nil {
		return nil, fmt.Errorf("parse image pool: %w", err)
	}
	if len(pool.Images) == 0 {
		return nil, errors.New("parse image pool: no images listed")
	}
	if pool.Fallback == "" {
		pool.Fallback = pool.Images[0]
	}
	return &pool, nil
}
