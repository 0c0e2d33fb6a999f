// Package validation provides custom validation rules for the application.
package validation

import (
	"net/url"
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/uapf-mcp/internal/errors"
)

var (
	// toolPrefixRegex matches a dotted-name segment usable as a tool name prefix
	toolPrefixRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// ProtocolPath validates an absolute URL path without whitespace or query
var ProtocolPath = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.HasPrefix(s, "/") && !strings.ContainsAny(s, " \t\n?#")
	},
	validation.NewError("validation_protocol_path", "must be an absolute path such as /mcp"),
)

// ToolPrefix validates a tool name prefix
var ToolPrefix = validation.NewStringRuleWithError(
	func(s string) bool {
		return toolPrefixRegex.MatchString(s)
	},
	validation.NewError("validation_tool_prefix", "must start with a letter and contain only letters, digits, _ or -"),
)

// Origins validates a comma-separated list of CORS origins, where "*" allows all
var Origins = validation.NewStringRuleWithError(
	func(s string) bool {
		for _, origin := range strings.Split(s, ",") {
			origin = strings.TrimSpace(origin)
			if origin == "" || origin == "*" {
				continue
			}
			u, err := url.Parse(origin)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return false
			}
		}
		return true
	},
	validation.NewError("validation_origins", "must be * or a comma-separated list of origins"),
)
