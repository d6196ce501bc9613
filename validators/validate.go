package validators

import (
	"amap/middleware"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report fields by their json name so errors match the request body
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Body parses the JSON body into a fresh T, runs the struct tags and the
// optional after hook, then stores the request under key in c.Locals
func Body[T any](key string, after func(*T, map[string]string)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(T)
		// bodiless POSTs (cancel, sync) validate the zero request
		if len(c.Body()) > 0 {
			if err := c.BodyParser(reqData); err != nil {
				return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
			}
		}
		return finish(c, key, reqData, after)
	}
}

// Query is Body for query strings
func Query[T any](key string, after func(*T, map[string]string)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(T)
		if err := c.QueryParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request query!", nil)
		}
		return finish(c, key, reqData, after)
	}
}

func finish[T any](c *fiber.Ctx, key string, reqData *T, after func(*T, map[string]string)) error {
	errs := fieldErrors(validate.Struct(reqData))
	if len(errs) == 0 && after != nil {
		after(reqData, errs)
	}
	if len(errs) > 0 {
		return middleware.ValidationErrorResponse(c, errs)
	}

	c.Locals(key, reqData)
	return c.Next()
}

func fieldErrors(err error) map[string]string {
	errs := make(map[string]string)
	if err == nil {
		return errs
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		errs["body"] = "Invalid request!"
		return errs
	}
	for _, fe := range validationErrors {
		errs[fieldPath(fe.Namespace())] = message(fe)
	}
	return errs
}

// fieldPath drops the struct name from a namespace such as
// "ComposeBasketRequest.items[0].productId"
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required!"
	case "required_without":
		return "Either this field or " + fe.Param() + " is required!"
	case "oneof":
		return "Must be one of: " + fe.Param() + "!"
	case "email":
		return "Invalid email!"
	case "eqfield":
		return "Must match " + fe.Param() + "!"
	case "datetime":
		return "Must be a date formatted YYYY-MM-DD!"
	case "gte", "min":
		return "Must be at least " + fe.Param() + "!"
	case "lte", "max":
		return "Must be at most " + fe.Param() + "!"
	case "gt":
		return "Must be greater than " + fe.Param() + "!"
	default:
		return "Invalid value!"
	}
}

// ParseDate reads a YYYY-MM-DD value that already passed the datetime tag.
// Empty values give the zero time.
func ParseDate(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.DateOnly, value)
	return t
}
