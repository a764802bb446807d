package catalog

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
	"github.com/redbco/redb-anchor/pkg/dbcapabilities"
)

// Rule structs per engine paradigm. Only the fields a paradigm requires
// are checked; everything else in ConnectionConfig is optional.
type definitionRules struct {
	Name string `json:"name" validate:"required,max=128,excludesall=/\\"`
}

type relationalRules struct {
	Host string `json:"host" validate:"required"`
	User string `json:"user" validate:"required"`
	Port int    `json:"port" validate:"gte=0,lte=65535"`
}

type documentRules struct {
	URL  string `json:"url" validate:"required_without=Host,omitempty,url"`
	Host string `json:"host" validate:"required_without=URL"`
	Port int    `json:"port" validate:"gte=0,lte=65535"`
}

type keyValueRules struct {
	Host string `json:"host" validate:"required_without=URL"`
	URL  string `json:"url" validate:"omitempty,url"`
	Port int    `json:"port" validate:"gte=0,lte=65535"`
	DB   *int   `json:"db" validate:"omitempty,gte=0"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// resolveType accepts canonical ids and aliases such as "relational-A".
func resolveType(t dbcapabilities.DatabaseType) (dbcapabilities.DatabaseType, error) {
	id, ok := dbcapabilities.ParseType(string(t))
	if !ok {
		names := make([]string, 0, len(dbcapabilities.All))
		for _, id := range dbcapabilities.Types() {
			names = append(names, string(id))
		}
		return "", adapter.NewValidationError("type",
			fmt.Sprintf("unknown type %q, expected one of %s", t, strings.Join(names, ", ")))
	}
	return id, nil
}

// validateDefinition checks the name and the connection fields the engine
// paradigm requires. The type must already be resolved.
func validateDefinition(d *Definition) error {
	if err := check("", definitionRules{Name: d.Name}); err != nil {
		return err
	}
	return validateConfig(d.Type, d.Config)
}

func validateConfig(dbType dbcapabilities.DatabaseType, c adapter.ConnectionConfig) error {
	capability, ok := dbcapabilities.Get(dbType)
	if !ok {
		return adapter.NewValidationError("type", fmt.Sprintf("unknown type %q", dbType))
	}

	switch capability.Paradigm {
	case dbcapabilities.ParadigmRelational:
		return check("config.", relationalRules{Host: c.Host, User: c.User, Port: c.Port})
	case dbcapabilities.ParadigmDocument:
		return check("config.", documentRules{URL: c.URL, Host: c.Host, Port: c.Port})
	case dbcapabilities.ParadigmKeyValue:
		return check("config.", keyValueRules{Host: c.Host, URL: c.URL, Port: c.Port, DB: c.DB})
	}
	return nil
}

// check runs the validator and reports the first failing field as an
// adapter.ValidationError.
func check(prefix string, rules interface{}) error {
	err := validate.Struct(rules)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return adapter.NewValidationError(strings.TrimSuffix(prefix, "."), err.Error())
	}
	fe := ve[0]
	return adapter.NewValidationError(prefix+fe.Field(), reason(fe))
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return fmt.Sprintf("is required when %s is not set", strings.ToLower(fe.Param()))
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "excludesall":
		return "must not contain / or \\"
	case "gte", "lte":
		return "is out of range"
	case "url":
		return "must be a valid URL"
	default:
		return fmt.Sprintf("failed the %q rule", fe.Tag())
	}
}
