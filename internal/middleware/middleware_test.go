package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"code-bounty/internal/log"
)

func TestLoggingMiddleware_TraceID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name:    "cloud trace context",
			headers: map[string]string{"X-Cloud-Trace-Context": "105445aa7843bc8bf206b12000100000/1;o=1"},
			want:    "105445aa7843bc8bf206b12000100000",
		},
		{
			name:    "cloud trace context wins",
			headers: map[string]string{"X-Cloud-Trace-Context": "abc/2", "X-Trace-ID": "ignored"},
			want:    "abc",
		},
		{
			name:    "explicit trace id",
			headers: map[string]string{"X-Trace-ID": "trace-123"},
			want:    "trace-123",
		},
		{
			name: "generated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			router := gin.New()
			router.Use(LoggingMiddleware())
			router.GET("/", func(c *gin.Context) {
				seen = log.TraceID(c.Request.Context())
				c.Status(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			got := w.Header().Get("X-Trace-ID")
			assert.Equal(t, seen, got)
			if tt.want == "" {
				_, err := uuid.Parse(got)
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def", "abc.def", true},
		{"bearer   abc ", "abc", true},
		{"Basic dXNlcg==", "", false},
		{"Bearer ", "", false},
		{"abc", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, ok := bearerToken(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
