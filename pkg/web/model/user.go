package model

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "qingmo/pkg/common/errors"
)

// ErrTooLong 用户名或密码超出长度
var ErrTooLong = apperrors.ErrTooLong

// MaxPasswordBytes bcrypt 只接受不超过 72 字节的密码
const MaxPasswordBytes = 72

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// maxbytes 按字节计长，max 按字符计长
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})
	return v
}

// 表单字段名与页面保持一致
type (
	LoginForm struct {
		Username string `form:"username" validate:"required,max=50"`
		Password string `form:"password" validate:"required,maxbytes=72"`
	}

	RegisterForm struct {
		Username   string `form:"username" validate:"required,max=50"`
		Password   string `form:"password" validate:"required,maxbytes=72"`
		ConfirmPwd string `form:"confirm_pwd"`
	}

	ForgetPwdForm struct {
		Username string `form:"username" validate:"required,max=50"`
		NewPwd   string `form:"new_pwd" validate:"required,maxbytes=72"`
	}
)

func (f *LoginForm) Validate() error {
	f.Username, f.Password = strings.TrimSpace(f.Username), strings.TrimSpace(f.Password)
	return check(f)
}

func (f *RegisterForm) Validate() error {
	f.Username, f.Password = strings.TrimSpace(f.Username), strings.TrimSpace(f.Password)
	f.ConfirmPwd = strings.TrimSpace(f.ConfirmPwd)
	return check(f)
}

func (f *ForgetPwdForm) Validate() error {
	f.Username, f.NewPwd = strings.TrimSpace(f.Username), strings.TrimSpace(f.NewPwd)
	return check(f)
}

// check 把校验错误映射为业务错误：缺字段为 ErrEmptyField，超长为 ErrTooLong
func check(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	for _, fe := range ves {
		if fe.Tag() == "required" {
			return apperrors.ErrEmptyField
		}
	}
	return ErrTooLong
}
