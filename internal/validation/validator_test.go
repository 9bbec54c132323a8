package validation_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/directorstracker/tracker-server/internal/errors"
	"github.com/directorstracker/tracker-server/internal/validation"
)

type directorsRequest struct {
	Directors []string `json:"directors" validate:"max=3,unique,dive,required,max=20"`
	Format    string   `json:"format,omitempty" validate:"omitempty,oneof=html markdown"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	err := v.Validate(directorsRequest{Directors: []string{"Steven Spielberg"}, Format: "html"})
	assert.NoError(t, err)

	err = v.Validate(directorsRequest{Directors: nil})
	assert.NoError(t, err, "empty selection means all directors")
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       directorsRequest
		wantField string
	}{
		{
			name:      "too many directors",
			req:       directorsRequest{Directors: []string{"a", "b", "c", "d"}},
			wantField: "directors",
		},
		{
			name:      "duplicate directors",
			req:       directorsRequest{Directors: []string{"a", "a"}},
			wantField: "directors",
		},
		{
			name:      "blank director",
			req:       directorsRequest{Directors: []string{""}},
			wantField: "directors[0]",
		},
		{
			name:      "director name too long",
			req:       directorsRequest{Directors: []string{strings.Repeat("x", 21)}},
			wantField: "directors[0]",
		},
		{
			name:      "unknown format",
			req:       directorsRequest{Format: "pdf"},
			wantField: "format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)

			var domainErr *domainerrors.Error
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())

			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Contains(t, details, tt.wantField)
		})
	}
}

func TestValidator_JSONFieldNames(t *testing.T) {
	v := validation.New()

	err := v.Validate(directorsRequest{Format: "svg"})
	require.Error(t, err)

	assert.Contains(t, err.Error(), "format")
	assert.NotContains(t, err.Error(), "Format")
}
