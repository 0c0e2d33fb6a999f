package validation

import (
	"testing"

	validation "github.com/jellydator/validation"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/allisson/uapf-mcp/internal/errors"
)

func TestProtocolPath(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		shouldErr bool
	}{
		{name: "default path", input: "/mcp", shouldErr: false},
		{name: "nested path", input: "/api/v1/mcp", shouldErr: false},
		{name: "relative path", input: "mcp", shouldErr: true},
		{name: "with query", input: "/mcp?x=1", shouldErr: true},
		{name: "with space", input: "/m cp", shouldErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ProtocolPath.Validate(tt.input)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestToolPrefix(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		shouldErr bool
	}{
		{name: "default prefix", input: "uapf", shouldErr: false},
		{name: "with underscore and dash", input: "acme_flow-v2", shouldErr: false},
		{name: "leading digit", input: "1acme", shouldErr: true},
		{name: "contains dot", input: "acme.tools", shouldErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ToolPrefix.Validate(tt.input)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOrigins(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		shouldErr bool
	}{
		{name: "wildcard", input: "*", shouldErr: false},
		{name: "single origin", input: "https://app.example.com", shouldErr: false},
		{name: "list with spaces", input: "https://a.example.com, http://localhost:3000", shouldErr: false},
		{name: "bare host", input: "example.com", shouldErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Origins.Validate(tt.input)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStringRules(t *testing.T) {
	tests := []struct {
		name      string
		rule      validation.Rule
		input     string
		shouldErr bool
	}{
		{name: "package id", rule: NoWhitespace, input: "loan-origination", shouldErr: false},
		{name: "package id with trailing newline", rule: NoWhitespace, input: "loan-origination\n", shouldErr: true},
		{name: "package id with leading space", rule: NoWhitespace, input: " loans", shouldErr: true},
		{name: "server name with inner space", rule: NotBlank, input: "UAPF gateway", shouldErr: false},
		{name: "server name of tabs", rule: NotBlank, input: "\t\t", shouldErr: true},
		{name: "workspace dir of spaces", rule: NotBlank, input: "   ", shouldErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate(tt.input)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWrapValidationError(t *testing.T) {
	assert.NoError(t, WrapValidationError(nil))

	err := WrapValidationError(validation.Errors{
		"MCP_PATH": validation.NewError("validation_protocol_path", "must be an absolute path such as /mcp"),
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Contains(t, err.Error(), "MCP_PATH")
}
