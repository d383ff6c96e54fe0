package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"

	"github.com/adamancini/ersc/internal/policy"
)

// ValidationError represents a config validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the config for valid values.
func Validate(c *Config) error {
	var errors []string

	if err := validateFeed(c.Feed); err != nil {
		errors = append(errors, err.Error())
	}

	for i, p := range c.Protected {
		if _, err := policy.New(p); err != nil {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("protected[%d]", i),
				Message: err.Error(),
			}.Error())
		}
	}

	if c.KeepBackups != nil && *c.KeepBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "keep_backups",
			Message: "must be zero or greater",
		}.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func validateFeed(f Feed) error {
	if f.APIURL != "" {
		u, err := url.Parse(f.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return ValidationError{
				Field:   "feed.api_url",
				Message: fmt.Sprintf("invalid URL '%s' (must be http or https)", f.APIURL),
			}
		}
	}

	for _, seg := range []struct{ field, value string }{
		{"feed.owner", f.Owner},
		{"feed.repo", f.Repo},
	} {
		if strings.ContainsAny(seg.value, "/ ") {
			return ValidationError{
				Field:   seg.field,
				Message: fmt.Sprintf("'%s' must be a single path segment", seg.value),
			}
		}
	}

	if f.AssetPattern != "" {
		if _, err := glob.Compile(f.AssetPattern); err != nil {
			return ValidationError{
				Field:   "feed.asset_pattern",
				Message: fmt.Sprintf("invalid glob: %v", err),
			}
		}
	}

	return nil
}
