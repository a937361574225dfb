package main

import (
	"fmt"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/davomat/apps/api/echo"
	"github.com/trezcool/davomat/core"
	"github.com/trezcool/davomat/core/child"
	"github.com/trezcool/davomat/core/payment"
	"github.com/trezcool/davomat/core/reconcile"
	"github.com/trezcool/davomat/core/user"
	logsvc "github.com/trezcool/davomat/services/logger"
	notifysvc "github.com/trezcool/davomat/services/notify"
	"github.com/trezcool/davomat/storage"
	"github.com/trezcool/davomat/storage/kvrepos"
)

type storeResult struct {
	dig.Out
	Store  core.Store
	Closer func() error `name:"storeCloser"`
}

func newNotifier(conf *core.Config, logger core.Logger) core.Notifier {
	n, err := notifysvc.NewNotifier(conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up notifier: %v", err), err)
	}
	return n
}

func newStore(conf *core.Config, logger core.Logger) storeResult {
	store, db, err := storage.Open(conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening store: %v", err), err)
	}
	if conf.Store.Driver == "" || conf.Store.Driver == "memory" {
		logger.Warn("using the in-memory store: data is lost on restart")
	}

	closer := func() error { return nil }
	if db != nil {
		closer = db.Close
	}
	return storeResult{Store: store, Closer: closer}
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	payment.InitValidators(validate, translator)
	return validate
}

func newEngine(
	children child.Repository,
	users user.Repository,
	db *kvrepos.DB,
	payments payment.Ledger,
	receipts payment.ReceiptLedger,
	notifier core.Notifier,
	logger core.Logger,
) *reconcile.Engine {
	return reconcile.NewEngine(reconcile.Deps{
		Children:   children,
		Users:      users,
		Attendance: kvrepos.NewAttendanceLedger(db),
		Staff:      kvrepos.NewStaffAttendanceLedger(db),
		Payments:   payments,
		Receipts:   receipts,
		Notifier:   notifier,
		Logger:     logger,
	})
}

type serverParams struct {
	dig.In
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	UserSvc    *user.Service
	ChildSvc   *child.Service
	PaymentSvc *payment.Service
	Engine     *reconcile.Engine
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(&echoapi.Options{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Validate:   p.Validate,
		Translator: p.Translator,
		UserSvc:    p.UserSvc,
		ChildSvc:   p.ChildSvc,
		PaymentSvc: p.PaymentSvc,
		Engine:     p.Engine,
	})
}

// newContainer returns a new dependency injection dig.Container
func newContainer() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(logsvc.NewLogger))
	must(c.Provide(newStore))
	must(c.Provide(kvrepos.Open))
	must(c.Provide(kvrepos.NewUserRepository))
	must(c.Provide(kvrepos.NewChildRepository))
	must(c.Provide(kvrepos.NewPaymentLedger))
	must(c.Provide(kvrepos.NewReceiptLedger))
	must(c.Provide(newNotifier))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(user.NewService))
	must(c.Provide(payment.NewService))
	must(c.Provide(func(svc *payment.Service) child.EnrollmentBiller { return svc }))
	must(c.Provide(child.NewService))
	must(c.Provide(newEngine))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
