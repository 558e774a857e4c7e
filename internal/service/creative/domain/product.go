// internal/service/creative/domain/product.go
package domain

// ProductImage is one stored product photo. Position preserves upload order.
type ProductImage struct {
	Path     string
	IsMain   bool
	Position int
}

// Product is the advertised product: referenced by runs and hooks, owned by
// another context. This service only reads it.
type Product struct {
	ID     string
	Name   string
	Images []ProductImage
}

// OrderedImagePaths returns the deterministic generation order: the main
// image first, then the rest by stored position. An AI ranker can replace
// this ordering behind the ImageRanker port without changing callers.
func (p *Product) OrderedImagePaths() []string {
	paths := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		if img.IsMain {
			paths = append(paths, img.Path)
		}
	}
	for _, img := range p.Images {
		if !img.IsMain {
			paths = append(paths, img.Path)
		}
	}
	return paths
}
