package dto

import (
	"strconv"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"listing_studio_v1/pkg/utils"
)

// RegisterValidators 注册自定义校验规则
//
//	plainmax=N  富文本去掉标记后的字符数不超过 N
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("plainmax", plainMax)
}

func plainMax(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return utils.RuneLen(utils.PlainText(fl.Field().String())) <= limit
}
