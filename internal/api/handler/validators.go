package handler

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"attend-revolution/backend/internal/model"
	"attend-revolution/backend/internal/service"
)

// RegisterValidators 向 gin 的 validator 注册自定义 binding 标签
//   - rollnumber: 学号格式
//   - clock:      HH:MM 时刻
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("binding 引擎不是 validator.Validate")
	}
	if err := v.RegisterValidation("rollnumber", validateRollNumber); err != nil {
		return err
	}
	return v.RegisterValidation("clock", validateClock)
}

func validateRollNumber(fl validator.FieldLevel) bool {
	return service.ValidRollNumber(fl.Field().String())
}

func validateClock(fl validator.FieldLevel) bool {
	_, err := time.Parse(model.ClockLayout, fl.Field().String())
	return err == nil
}
