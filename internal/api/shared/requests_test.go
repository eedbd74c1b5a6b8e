package shared

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleBody struct {
	Name string `json:"name" validate:"required"`
	Age  int    `json:"age"  validate:"gte=0,lte=150"`
}

type selfValidating struct {
	Value string `json:"value"`
}

func (s *selfValidating) Validate() error {
	if s.Value == "bad" {
		return errors.New("value is bad")
	}
	return nil
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "valid", body: `{"name":"ada","age":36}`},
		{name: "malformed", body: `{"name":"ada",}`, wantErr: true},
		{name: "empty body", body: ``, wantErr: true},
		{name: "unknown field", body: `{"name":"ada","admin":true}`, wantErr: true},
		{name: "trailing document", body: `{"name":"ada"}{"name":"bob"}`, wantErr: true},
		{name: "too large", body: `{"name":"` + strings.Repeat("a", MaxRequestBodyBytes) + `"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))

			var got sampleBody
			err := DecodeJSON(req, &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, sampleBody{Name: "ada", Age: 36}, got)
		})
	}
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateRequest(&sampleBody{Name: "ada", Age: 1}))
	assert.Error(t, ValidateRequest(&sampleBody{Age: 1}))
	assert.Error(t, ValidateRequest(&sampleBody{Name: "ada", Age: 200}))

	assert.NoError(t, ValidateRequest(&selfValidating{Value: "ok"}))
	assert.EqualError(t, ValidateRequest(&selfValidating{Value: "bad"}), "value is bad")
}

func TestQueryInt(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/?page=3&limit=abc", nil)

	page, err := QueryInt(req, "page", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, page)

	missing, err := QueryInt(req, "offset", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, missing)

	_, err = QueryInt(req, "limit", 10)
	assert.EqualError(t, err, "limit must be an integer")
}
