package cli

import (
	"context"
	"errors"
	"fmt"
)

// Purger invalidates cached content.
type Purger interface {
	Bump(ctx context.Context) (int64, error)
}

// PurgeContentCommand bumps the content cache version so every cached page
// is refetched from Notion.
func PurgeContentCommand(ctx context.Context, purger Purger, streams Streams) int {
	streams = streams.withDefaults()
	if purger == nil {
		return streams.fail("purge-content", errors.New("content cache not configured"))
	}
	version, err := purger.Bump(ctx)
	if err != nil {
		return streams.fail("purge-content", err)
	}
	fmt.Fprintf(streams.Stdout, "content cache version %d\n", version)
	return 0
}
