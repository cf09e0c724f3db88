package main

import (
	"github.com/trezcool/classrecord/core"
	"github.com/trezcool/classrecord/storage/database"
)

var migrateFunc = database.Migrate // mockable

func (cli *commandLine) migrate(args []string) error {
	if cli.conf.Store.Engine != core.StorePostgres {
		return errMigrateEngine
	}
	return migrateFunc(cli.db, args[0], args[1:]...)
}
