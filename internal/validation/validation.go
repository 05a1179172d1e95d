// validation проверяет входные данные по именованным схемам до того, как
// сервис выполнит какие-либо побочные действия.
//
// Схема — это Go-структура с тегами validate (см. models.RegisterInput,
// models.LoginInput). Ошибка валидации перечисляет JSON-имена всех
// невалидных полей, чтобы клиент мог подсветить их.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pribylovaa/auth-service/internal/models"
)

// Имена схем.
const (
	SchemaCreateUser = "createUser"
	SchemaLoginUser  = "loginUser"
)

// ErrInvalidData — входные данные не соответствуют схеме.
var ErrInvalidData = errors.New("invalid data")

// Error — ошибка валидации с перечнем полей.
type Error struct {
	Fields  []string
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is позволяет проверять ошибку через errors.Is(err, ErrInvalidData).
func (e *Error) Is(target error) bool { return target == ErrInvalidData }

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

// maxPasswordBytes — предел bcrypt; считается в байтах, а не в символах.
const maxPasswordBytes = 72

// Validator проверяет данные по зарегистрированным схемам.
type Validator struct {
	v       *validator.Validate
	schemas map[string]reflect.Type
}

// New создаёт валидатор со схемами createUser и loginUser.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// В сообщениях используем имена полей из json-тегов.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= maxPasswordBytes
	})

	return &Validator{
		v: v,
		schemas: map[string]reflect.Type{
			SchemaCreateUser: reflect.TypeOf(models.RegisterInput{}),
			SchemaLoginUser:  reflect.TypeOf(models.LoginInput{}),
		},
	}
}

// Validate проверяет data по схеме schema.
// data — значение или указатель на структуру, зарегистрированную под этим именем.
// Неизвестная схема или несоответствие типа — ошибка программиста, а не ErrInvalidData.
func (val *Validator) Validate(schema string, data any) error {
	const op = "validation.Validate"

	want, ok := val.schemas[schema]
	if !ok {
		return fmt.Errorf("%s: unknown schema %q", op, schema)
	}

	rv := reflect.ValueOf(data)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return &Error{Message: "invalid data: empty body"}
		}
		rv = rv.Elem()
	}
	if rv.Type() != want {
		return fmt.Errorf("%s: schema %q expects %s, got %s", op, schema, want, rv.Type())
	}

	err := val.v.Struct(rv.Interface())
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%s: %w", op, err)
	}

	fields := make([]string, 0, len(verrs))
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
		msgs = append(msgs, describe(fe))
	}

	return &Error{
		Fields:  fields,
		Message: "invalid data: " + strings.Join(msgs, "; "),
	}
}

func describe(fe validator.FieldError) string {
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required", field)
	case "required_without":
		return fmt.Sprintf("field '%s' is required when '%s' is absent", field, strings.ToLower(fe.Param()))
	case "email":
		return fmt.Sprintf("field '%s' must be a valid email address", field)
	case "min":
		return fmt.Sprintf("field '%s' must be at least %s characters long", field, fe.Param())
	case "max":
		return fmt.Sprintf("field '%s' must be at most %s characters long", field, fe.Param())
	case "bcryptlen":
		return fmt.Sprintf("field '%s' must be at most %d bytes long", field, maxPasswordBytes)
	case "username":
		return fmt.Sprintf("field '%s' must be 3-32 characters of letters, digits, '_', '.' or '-'", field)
	default:
		return fmt.Sprintf("field '%s' validation failed on '%s'", field, fe.Tag())
	}
}
