package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/qcom/authapi/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldErrors(t *testing.T, err error) map[string][]string {
	t.Helper()
	var verrs *Errors
	require.True(t, errors.As(err, &verrs), "expected *Errors, got %v", err)
	return verrs.Fields
}

func TestStruct_RegisterValid(t *testing.T) {
	v := New()
	err := v.Struct(models.RegisterRequest{
		Name:                 "A",
		Email:                "a@x.com",
		Password:             "password1",
		PasswordConfirmation: "password1",
	})
	assert.NoError(t, err)
}

func TestStruct_RegisterMissingFields(t *testing.T) {
	v := New()
	fields := fieldErrors(t, v.Struct(models.RegisterRequest{}))

	assert.Equal(t, []string{"The name field is required."}, fields["name"])
	assert.Equal(t, []string{"The email field is required."}, fields["email"])
	assert.Equal(t, []string{"The password field is required."}, fields["password"])
}

func TestStruct_RegisterRules(t *testing.T) {
	v := New()
	fields := fieldErrors(t, v.Struct(models.RegisterRequest{
		Name:                 strings.Repeat("n", 256),
		Email:                "not-an-email",
		Password:             "short",
		PasswordConfirmation: "different",
	}))

	assert.Equal(t, []string{"The name field must not be greater than 255 characters."}, fields["name"])
	assert.Equal(t, []string{"The email field must be a valid email address."}, fields["email"])
	assert.Contains(t, fields["password"], "The password field must be at least 8 characters.")
	assert.Contains(t, fields["password"], "The password field confirmation does not match.")
	assert.NotContains(t, fields, "password_confirmation")
}

func TestStruct_RegisterPasswordByteLimit(t *testing.T) {
	v := New()

	long := strings.Repeat("p", 73)
	fields := fieldErrors(t, v.Struct(models.RegisterRequest{
		Name:                 "A",
		Email:                "a@x.com",
		Password:             long,
		PasswordConfirmation: long,
	}))
	assert.Equal(t, []string{"The password field must not be greater than 72 bytes."}, fields["password"])

	// 24 three-byte runes are 72 bytes.
	limit := strings.Repeat("€", 24)
	assert.NoError(t, v.Struct(models.RegisterRequest{
		Name:                 "A",
		Email:                "a@x.com",
		Password:             limit,
		PasswordConfirmation: limit,
	}))
}

func TestStruct_ConfirmationMismatchOnly(t *testing.T) {
	v := New()
	fields := fieldErrors(t, v.Struct(models.RegisterRequest{
		Name:                 "A",
		Email:                "a@x.com",
		Password:             "password1",
		PasswordConfirmation: "password2",
	}))

	assert.Equal(t, map[string][]string{
		"password": {"The password field confirmation does not match."},
	}, fields)
}

func TestErrors_Helpers(t *testing.T) {
	var e Errors
	assert.NoError(t, e.Err())
	assert.False(t, e.Has("email"))

	e.Add("email", Taken("email"))
	assert.True(t, e.Has("email"))
	assert.Error(t, e.Err())
	assert.Equal(t, "The email has already been taken.", e.Message())

	e.Add("name", "The name field is required.")
	assert.Equal(t, "The email has already been taken. (and 1 more error)", e.Message())
	assert.Contains(t, e.Error(), "email: The email has already been taken.")

	assert.Equal(t, "The selected email is invalid.", Invalid("email"))
}
