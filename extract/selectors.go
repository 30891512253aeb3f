package extract

import (
	"fmt"

	"github.com/andybalholm/cascadia"
	lru "github.com/hashicorp/golang-lru/v2"
)

const selectorCacheSize = 256

// selectorCache holds compiled selectors keyed by their source text. Rule
// sets repeat the same selectors across fallbacks and fields.
type selectorCache struct {
	entries *lru.Cache[string, cascadia.Selector]
}

func newSelectorCache(size int) *selectorCache {
	entries, err := lru.New[string, cascadia.Selector](size)
	if err != nil {
		panic(fmt.Sprintf("extract: selector cache: %v", err))
	}
	return &selectorCache{entries: entries}
}

func (c *selectorCache) compile(sel string) (cascadia.Selector, error) {
	if compiled, ok := c.entries.Get(sel); ok {
		return compiled, nil
	}
	compiled, err := cascadia.Compile(sel)
	if err != nil {
		return nil, fmt.Errorf("compile selector %q: %w", sel, err)
	}
	c.entries.Add(sel, compiled)
	return compiled, nil
}

var selectors = newSelectorCache(selectorCacheSize)

// CompileSelector compiles a CSS selector through the shared cache.
func CompileSelector(sel string) (cascadia.Selector, error) {
	return selectors.compile(sel)
}
