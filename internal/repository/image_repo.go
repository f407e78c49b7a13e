package repository

import "context"

// ImageFetcher downloads images into a local content-addressed cache and
// returns the paths of the ones that validated. Invalid downloads are
// dropped silently.
type ImageFetcher interface {
	Fetch(ctx context.Context, urls []string, maxCount int) []string
}
