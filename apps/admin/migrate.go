package main

import (
	"errors"

	"github.com/trezcool/davomat/storage/database"
)

var (
	gooseRunFunc = database.RunMigrations // mockable

	errNoDatabase = errors.New("migrations need the postgres store driver")
)

func (cli *commandLine) migrate(args []string) error {
	if cli.sqlDB == nil {
		return errNoDatabase
	}
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(args[0], cli.sqlDB, arguments...)
}
