package redis

import (
	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
)

func init() {
	// Register Redis adapter with the global registry
	adapter.Register(NewAdapter())
}
