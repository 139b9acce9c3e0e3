// Package pagination provides parallel batch fetching and page arithmetic
// for the catalog.
//
// The list endpoint returns one page of references, and every reference needs a
// detail request of its own. BatchFetcher runs those detail requests through a
// worker pool and hands back one result per reference in list order, so the
// caller can drop failed items without reordering the survivors.
//
// Example usage:
//
//	bf := pagination.NewBatchFetcher(pagination.DefaultConfig())
//	results := pagination.FetchAll(ctx, bf, len(refs), func(ctx context.Context, i int) (Entry, error) {
//		return resolve(ctx, refs[i])
//	})
//	entries := pagination.Values(results)
//
// The batch fetcher:
//   - Starts one worker per item unless MaxConcurrency caps it
//   - Applies a per-item timeout
//   - Never cancels siblings when one item fails
//   - Returns results indexed like the input
//
// Offset, Window, HasMore and IsShortPage hold the page arithmetic shared by
// browse mode (server-side offsets) and search mode (client-side slices).
package pagination
