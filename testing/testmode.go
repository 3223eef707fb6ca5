// Package testing flips the binaries into test mode when blank-imported from
// a test, so main packages can be loaded without dialing Notion, Postgres or
// Redis.
package testing

import (
	"os"
	"sync"
)

var once sync.Once

// defaults are only applied when the variable is unset.
var defaults = map[string]string{
	"NOTIONGATE_TEST_MODE":   "1",
	"NOTION_API_KEY":         "secret_test",
	"NOTION_DATABASE_ID":     "00000000000000000000000000000001",
	"NOTION_CONTENT_PAGE_ID": "00000000000000000000000000000002",
	"MARKETING_DRIVER":       "none",
}

func ensureTestMode() {
	once.Do(func() {
		for key, value := range defaults {
			if _, ok := os.LookupEnv(key); !ok {
				_ = os.Setenv(key, value)
			}
		}
	})
}

func init() {
	ensureTestMode()
}
