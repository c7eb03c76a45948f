package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sellerpnl/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupValidator(t *testing.T) {
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	assert.True(t, ok)
	assert.NotNil(t, v)
}

func TestFormatValidationErrors(t *testing.T) {
	SetupValidator()

	router := gin.New()
	router.GET("/pnl", func(c *gin.Context) {
		var q dto.PnLQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantFields []string
	}{
		{"valid range", "?start_date=2024-01-01&end_date=2024-01-31", http.StatusOK, nil},
		{"missing both dates", "", http.StatusBadRequest, []string{"start_date", "end_date"}},
		{"malformed end date", "?start_date=2024-01-01&end_date=31.01.2024", http.StatusBadRequest, []string{"end_date"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/pnl"+tt.query, nil))

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantFields == nil {
				return
			}
			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
			var fields []string
			for _, d := range resp.Error.Details {
				fields = append(fields, d.Field)
			}
			assert.ElementsMatch(t, tt.wantFields, fields)
		})
	}
}

func TestFormatValidationErrors_MalformedJSON(t *testing.T) {
	router := gin.New()
	router.POST("/lots", func(c *gin.Context) {
		var req dto.ReceiveLotRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
	})

	req := httptest.NewRequest(http.MethodPost, "/lots", strings.NewReader(`{"quantity":`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), dto.ErrCodeInvalidJSON)
}

func TestGetValidationMessage(t *testing.T) {
	type input struct {
		Required string `validate:"required"`
		Date     string `validate:"datetime=2006-01-02"`
		Min      int    `validate:"min=1"`
		Max      string `validate:"max=3"`
		OneOf    string `validate:"oneof=daily weekly monthly"`
	}

	err := validator.New().Struct(input{Date: "yesterday", Max: "too long", OneOf: "yearly"})
	require.Error(t, err)

	expected := map[string]string{
		"Required": "This field is required",
		"Date":     "Must be a date in 2006-01-02 format",
		"Min":      "Must be at least 1",
		"Max":      "Must be at most 3 characters",
		"OneOf":    "Must be one of: daily weekly monthly",
	}
	for _, e := range err.(validator.ValidationErrors) {
		t.Run(e.Field(), func(t *testing.T) {
			assert.Equal(t, expected[e.Field()], getValidationMessage(e))
		})
	}
}
