package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"donation_tracker/internal/middleware"
	"donation_tracker/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// statusFor maps a service error kind to its HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrPrecondition):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"message": ...}. Unclassified errors are logged and
// hidden behind fallback.
func respondError(c *gin.Context, log zerolog.Logger, err error, fallback string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).
			Str("request_id", middleware.RequestIDFrom(c)).
			Str("path", c.Request.URL.Path).
			Msg(fallback)
		c.JSON(status, gin.H{"message": fallback})
		return
	}
	c.JSON(status, gin.H{"message": service.Message(err)})
}

// badRequest answers a failed bind of obj with field-level messages keyed by
// the JSON names clients send.
func badRequest(c *gin.Context, obj any, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"message": bindErrorMessage(obj, err)})
}

func bindErrorMessage(obj any, err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fieldMessage(jsonFieldName(obj, fe), fe))
		}
		return strings.Join(msgs, "; ")
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return typeErr.Field + " has an invalid type"
	}
	return "request body must be valid JSON"
}

func fieldMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return field + " must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gt":
		return field + " must be greater than " + fe.Param()
	case "gte":
		return field + " must be at least " + fe.Param()
	case "lte":
		return field + " must be at most " + fe.Param()
	default:
		return field + " is invalid"
	}
}

func jsonFieldName(obj any, fe validator.FieldError) string {
	t := reflect.TypeOf(obj)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Kind() == reflect.Struct {
		if f, ok := t.FieldByName(fe.StructField()); ok {
			if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name != "" && name != "-" {
				return name
			}
		}
	}
	return fe.Field()
}

// callerFromContext reads the identity JWTAuthMiddleware stored
func callerFromContext(c *gin.Context) (service.Caller, error) {
	userID, ok := c.Get(middleware.AuthUserKey)
	if !ok {
		return service.Caller{}, errors.New("user ID not found in context")
	}
	id, ok := userID.(int64)
	if !ok {
		return service.Caller{}, fmt.Errorf("invalid user ID type %T in context", userID)
	}
	return service.Caller{UserID: id, Role: c.GetString(middleware.AuthRoleKey)}, nil
}

// withCaller resolves the caller or answers 401
func withCaller(c *gin.Context) (service.Caller, bool) {
	caller, err := callerFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": err.Error()})
		return service.Caller{}, false
	}
	return caller, true
}

func idParam(c *gin.Context, what string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid " + what + " ID"})
		return 0, false
	}
	return id, true
}
