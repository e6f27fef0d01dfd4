package frontier

import "net/url"

// Item is one pending BFS frontier entry: a URL together with the depth
// it was discovered at, relative to its seed.
type Item struct {
	url   url.URL
	depth int
}

func NewItem(u url.URL, depth int) Item {
	return Item{url: u, depth: depth}
}

func (i Item) URL() url.URL { return i.url }
func (i Item) Depth() int   { return i.depth }
