package main

import (
	"os"

	"github.com/redbco/redb-anchor/services/anchor/internal/cli"

	// Engine adapters register themselves with the default adapter registry.
	_ "github.com/redbco/redb-anchor/services/anchor/internal/database/mongodb"
	_ "github.com/redbco/redb-anchor/services/anchor/internal/database/mysql"
	_ "github.com/redbco/redb-anchor/services/anchor/internal/database/postgres"
	_ "github.com/redbco/redb-anchor/services/anchor/internal/database/redis"
)

// Build information, set with -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	app := cli.New(Version)
	app.GitCommit = GitCommit
	app.BuildTime = BuildTime
	os.Exit(app.Run(os.Args[1:]))
}
