package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	PostKeyPrefix  = "post:%s"
	PostsFirstPage = "posts:list:first"
	TagsKey        = "tags:all"
	FeaturedKey    = "posts:featured"
)

const (
	PostTTL = 30 * time.Minute
	ListTTL = 2 * time.Minute
	TagsTTL = 10 * time.Minute
)

// PostKey is the key of a published post looked up by slug.
func PostKey(slug string) string {
	return fmt.Sprintf(PostKeyPrefix, slug)
}

// Invalidate deletes keys, ignoring errors.
func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidatePost drops a post's entry and every listing that may contain it.
func InvalidatePost(ctx context.Context, slug string) {
	Invalidate(ctx, PostKey(slug), PostsFirstPage, FeaturedKey, TagsKey)
}

// InvalidatePostsList drops listing entries.
func InvalidatePostsList(ctx context.Context) {
	Invalidate(ctx, PostsFirstPage, FeaturedKey, TagsKey)
}

// InvalidateTags drops the tag catalogue.
func InvalidateTags(ctx context.Context) {
	Invalidate(ctx, TagsKey)
}
