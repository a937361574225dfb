package main

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/davomat/core"
	"github.com/trezcool/davomat/core/payment"
	"github.com/trezcool/davomat/core/user"
	logsvc "github.com/trezcool/davomat/services/logger"
	"github.com/trezcool/davomat/storage"
	"github.com/trezcool/davomat/storage/kvrepos"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewLogger(conf)

	store, sqlDB, err := storage.Open(conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening store: %v", err), err)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	payment.InitValidators(validate, translator)

	db := kvrepos.Open(store)
	cli := commandLine{
		usrSvc:   user.NewService(kvrepos.NewUserRepository(db)),
		validate: validate,
		db:       db,
		out:      os.Stdout,
	}
	if sqlDB != nil {
		cli.sqlDB = sqlDB.DB
	}

	code := 0
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		code = 1
	}
	if sqlDB != nil {
		_ = sqlDB.Close()
	}
	os.Exit(code)
}
