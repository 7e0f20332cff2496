package validation

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator"
	"go.uber.org/fx"

	"github.com/Rogue-Bear-Innovations/personal-hub/internal/models"
)

var Module = fx.Provide(
	New,
)

// FieldErrors maps a field name to its messages. Passing fields are absent.
type FieldErrors map[string][]string

type Rules struct {
	validator *validator.Validate
	messages  map[string]string
}

func New() *Rules {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Rules{
		validator: v,
		messages: map[string]string{
			"email.required":    "Email is required.",
			"password.required": "Password is required.",
			"firstName.alpha":   "First name must contain only letters.",
			"lastName.alpha":    "Last name must contain only letters.",
		},
	}
}

func (r *Rules) SignIn(req *models.SignInReq) FieldErrors {
	return r.check(req)
}

func (r *Rules) Name(req *models.NameReq) FieldErrors {
	return r.check(req)
}

func (r *Rules) check(v interface{}) FieldErrors {
	err := r.validator.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return FieldErrors{"": {err.Error()}}
	}

	fields := FieldErrors{}
	for _, fe := range verrs {
		name := fe.Field()
		fields[name] = append(fields[name], r.message(name, fe.Tag()))
	}
	return fields
}

func (r *Rules) message(field, tag string) string {
	if msg, ok := r.messages[field+"."+tag]; ok {
		return msg
	}
	return field + " is invalid."
}
