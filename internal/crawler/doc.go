// Package crawler walks the paginated search results of the directory for
// one keyword and hands the guilds to the caller one at a time.
//
// # Pull model
//
// A Stream does no work until the caller asks for the next guild. Pages are
// fetched, and the pacing delay between two pages is slept, only inside
// Stream.Next when the buffered page has been consumed. A caller that stops
// pulling (or closes the stream) causes no further requests.
//
// # Termination
//
// A crawl ends when one of the following happens:
//   - the requested limit of guilds has been emitted
//   - a page holds fewer listings than a full page
//   - a page is structurally identical to the previous one (stagnation);
//     nothing from the repeated page is emitted
//   - a fetch fails or the context is cancelled
//
// # Usage
//
//	c, err := crawler.New(f)
//	stream, err := c.Crawl("gaming", crawler.WithLimit(100))
//	for g, err := range stream.All(ctx) {
//		...
//	}
package crawler
