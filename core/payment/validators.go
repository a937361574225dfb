package payment

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/davomat/core"
)

var (
	payMethodTag  = "paymethod"
	payMethodText = "must be one of naqd, karta or bank"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(payMethodTag, func(fl validator.FieldLevel) bool {
		return Method(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, payMethodTag, payMethodText)
}
