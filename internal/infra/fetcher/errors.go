// Package fetcher provides page fetching for source enrichment: article text
// extraction for summarization prompts and Open Graph metadata for thumbnails.
package fetcher

import "errors"

// Sentinel errors for page fetching operations.
var (
	// ErrInvalidURL indicates that the URL is malformed or uses a disallowed
	// scheme (only http/https are accepted).
	ErrInvalidURL = errors.New("invalid URL")

	// ErrPrivateIP indicates that the URL's hostname resolves to a private,
	// loopback, or link-local address (SSRF prevention).
	ErrPrivateIP = errors.New("URL resolves to private IP")

	// ErrTooManyRedirects indicates that the redirect limit was exceeded.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrTimeout indicates that the request exceeded the configured timeout.
	ErrTimeout = errors.New("fetch timeout")

	// ErrBodyTooLarge indicates that the response exceeded the size limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrExtractionFailed indicates that no readable content or usable
	// metadata could be extracted from the page.
	ErrExtractionFailed = errors.New("content extraction failed")
)
