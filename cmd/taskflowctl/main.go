// Command taskflowctl performs administrative tasks against the taskflow
// database: applying migrations and creating privileged accounts.
package main

import (
	"os"

	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/taskflow/internal/config"
	"github.com/baechuer/taskflow/internal/logger"
)

func main() {
	logger.Init()

	root := newRootCommand(config.NewDB)
	if err := root.Execute(); err != nil {
		zlog.Error().Err(err).Msg("taskflowctl failed")
		os.Exit(1)
	}
}
