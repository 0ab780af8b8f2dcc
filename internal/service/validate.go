package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/taipei-day-trip/internal/apperr"
	"github.com/iliyamo/taipei-day-trip/internal/model"
)

// DateLayout is the wire format of trip dates.
const DateLayout = "2006-01-02"

var (
	emailPattern  = regexp.MustCompile(`^[^@\s]+@[^@\s]+$`)
	mobilePattern = regexp.MustCompile(`^09\d{8}$`)
)

// validate is shared by all services; validator.Validate caches struct
// metadata and is safe for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	must := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}
	must("simpleemail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	must("twmobile", func(fl validator.FieldLevel) bool {
		return mobilePattern.MatchString(fl.Field().String())
	})
	must("tripdate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(DateLayout, fl.Field().String())
		return err == nil
	})
	must("timeslot", func(fl validator.FieldLevel) bool {
		return model.ValidSlot(fl.Field().String())
	})
	must("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// validateStruct runs the struct tags on s and converts the first failure
// into an apperr validation error naming the offending field.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Validation("%v", err)
	}
	fe := verrs[0]
	return apperr.Validation("%s", describe(fe))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", fe.Field())
	case "simpleemail":
		return fmt.Sprintf("%s must look like local@domain", fe.Field())
	case "twmobile":
		return fmt.Sprintf("%s must be a 10 digit mobile number starting with 09", fe.Field())
	case "tripdate":
		return fmt.Sprintf("%s must be YYYY-MM-DD", fe.Field())
	case "timeslot":
		return fmt.Sprintf("%s must be morning or afternoon", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// checkTripDate rejects dates before today in loc.  The layout has
// already been checked by the tripdate tag.
func checkTripDate(date string, now time.Time, loc *time.Location) error {
	d, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return apperr.Validation("date must be YYYY-MM-DD")
	}
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	if d.Before(today) {
		return apperr.Validation("date %s is in the past", date)
	}
	return nil
}
