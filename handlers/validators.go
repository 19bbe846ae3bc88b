package handlers

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"stocks-simulator/ledger"
)

var registerOnce sync.Once

// RegisterValidators adds the "symbol" tag to gin's validator.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}

	var err error
	registerOnce.Do(func() {
		err = v.RegisterValidation("symbol", func(fl validator.FieldLevel) bool {
			return ledger.ValidSymbol(fl.Field().String())
		})
	})
	return err
}
