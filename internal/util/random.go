package util

import (
	"fmt"

	"github.com/gosimple/slug"
	"github.com/lithammer/shortuuid/v4"
)

// GenerateRandomSlug builds a URL-safe slug with a short unique suffix so
// two lots with the same name never collide.
func GenerateRandomSlug(name string) string {
	baseSlug := slug.Make(name)
	shortID := shortuuid.New()[:8]

	return fmt.Sprintf("%s-%s", baseSlug, shortID)
}

// GenerateSubscriberID identifies one event-stream subscription in logs.
func GenerateSubscriberID() string {
	return shortuuid.New()
}
