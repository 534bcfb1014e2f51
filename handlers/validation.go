package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"membercrm/services"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var registerOnce sync.Once

var bindingRules = map[string]validator.Func{
	"tier": func(fl validator.FieldLevel) bool {
		return services.IsValidTier(fl.Field().String())
	},
	"layout": func(fl validator.FieldLevel) bool {
		return services.IsValidLayout(fl.Field().String())
	},
}

// registerValidators panics when the rules cannot be installed; the request
// structs depend on them.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			panic(fmt.Sprintf("unexpected binding validator engine %T", binding.Validator.Engine()))
		}
		if err := addRules(v, bindingRules); err != nil {
			panic(err)
		}
	})
}

func addRules(v *validator.Validate, rules map[string]validator.Func) error {
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %q validation: %w", tag, err)
		}
	}
	return nil
}

// normalizeEmail trims and lower-cases; ok is false when the result is not an address.
func normalizeEmail(raw string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(raw))
	return email, emailPattern.MatchString(email)
}

// bindError turns binding failures into a single readable message.
func bindError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid JSON"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", strings.ToLower(fe.Field()))
	case "tier":
		return "Invalid tier. Must be BASIC, SILVER or GOLD"
	case "layout":
		return "Invalid layout. Must be classic, minimal or spotlight"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", strings.ToLower(fe.Field()), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", strings.ToLower(fe.Field()))
	}
}

// idParam returns the :id path value, answering 404 itself when it is not a UUID.
func idParam(c *gin.Context, what string) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
		return "", false
	}
	return id, true
}
