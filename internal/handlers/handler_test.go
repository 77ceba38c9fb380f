package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"buildtrack/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRespondErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handler{log: zap.NewNop()}

	cases := []struct {
		name string
		err  error
		code int
	}{
		{"validation", workflow.NewValidationError("notes", "required"), http.StatusBadRequest},
		{"not found", fmt.Errorf("%w: project 7", workflow.ErrNotFound), http.StatusNotFound},
		{"invalid state", fmt.Errorf("%w: wrong status", workflow.ErrInvalidState), http.StatusConflict},
		{"denied", fmt.Errorf("%w: submit", workflow.ErrPermissionDenied), http.StatusForbidden},
		{"unclassified", fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
			h.respondError(c, tc.err)
			assert.Equal(t, tc.code, w.Code)
		})
	}

	// Internal errors must not leak their message.
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	h.respondError(c, fmt.Errorf("dsn=postgres://secret"))
	assert.NotContains(t, w.Body.String(), "secret")
}

func TestInternalCodeFormat(t *testing.T) {
	valid := []string{"M1", "M03", "M12345", "M9"}
	for _, code := range valid {
		assert.True(t, internalCodeRe.MatchString(code), code)
	}
	invalid := []string{"", "M", "M2", "M10", "X13", "m13", "M13b"}
	for _, code := range invalid {
		assert.False(t, internalCodeRe.MatchString(code), code)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Acme Construction":  "acme-construction",
		"  Al  Noor   LLC ":  "al-noor-llc",
		"Already-Slugged":    "already-slugged",
		"Symbols & Co. 2026": "symbols-co-2026",
	}
	for in, want := range cases {
		assert.Equal(t, want, slugify(in), in)
	}
}
