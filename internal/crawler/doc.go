// Package crawler defines the shared types and contracts of the job listing
// scraper: the records extracted from a listing page, the outcome of fetching
// a page, and the interfaces the fetch, extract and persist stages implement.
package crawler
