package overlay

import (
	"image"
	"sync"
)

// canvasPool reuses same-sized canvases across requests. A canvas is
// cleared on every get so output stays deterministic.
type canvasPool struct {
	pools map[image.Rectangle]*sync.Pool
	mu    sync.RWMutex
}

var canvases = &canvasPool{pools: make(map[image.Rectangle]*sync.Pool)}

func getCanvas(w, h int) *image.RGBA {
	return canvases.get(image.Rect(0, 0, w, h))
}

func putCanvas(img *image.RGBA) {
	canvases.put(img)
}

func (p *canvasPool) get(rect image.Rectangle) *image.RGBA {
	p.mu.RLock()
	pool, ok := p.pools[rect]
	p.mu.RUnlock()

	if !ok {
		p.mu.Lock()
		pool, ok = p.pools[rect]
		if !ok {
			pool = &sync.Pool{New: func() any { return image.NewRGBA(rect) }}
			p.pools[rect] = pool
		}
		p.mu.Unlock()
	}

	img := pool.Get().(*image.RGBA)
	clear(img.Pix)
	return img
}

func (p *canvasPool) put(img *image.RGBA) {
	if img == nil {
		return
	}
	p.mu.RLock()
	pool, ok := p.pools[img.Rect]
	p.mu.RUnlock()
	if ok {
		pool.Put(img)
	}
}
