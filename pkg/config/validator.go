package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

// Validator 结构体标签校验，错误信息使用配置文件中的键名
type Validator struct {
	validate *validator.Validate
}

// NewValidator 创建校验器
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	return &Validator{validate: v}
}

// Validate 校验结构体
func (v *Validator) Validate(cfg any) error {
	if cfg == nil {
		return ErrNilConfig
	}
	if err := v.validate.Struct(cfg); err != nil {
		return errors.Wrap(ErrValidationFailed, describe(err))
	}
	return nil
}

// ValidateField 校验单个值，如 ValidateField(count, "oneof=1 11")
func (v *Validator) ValidateField(field any, tag string) error {
	if err := v.validate.Var(field, tag); err != nil {
		return errors.Wrap(ErrValidationFailed, describe(err))
	}
	return nil
}

func describe(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		// 去掉根结构体名，保留 gateway.base_url 这样的路径
		key := fe.Namespace()
		if _, rest, ok := strings.Cut(key, "."); ok {
			key = rest
		}
		if key == "" {
			key = "value"
		}

		switch fe.Tag() {
		case "required":
			msgs = append(msgs, key+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", key, fe.Param()))
		case "url":
			msgs = append(msgs, key+" must be a valid URL")
		case "min", "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", key, fe.Param()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than %s", key, fe.Param()))
		case "max", "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", key, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %q", key, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
