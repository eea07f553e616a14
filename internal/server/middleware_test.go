package server

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"taskplanner/internal/auth"
	"taskplanner/internal/domain/errors"
)

func TestAuthRequired(t *testing.T) {
	tests := []struct {
		name      string
		header    func(api *TaskAPI) string
		mockSetup func(*MockUserRepository)
		want      struct {
			statusCode int
			errMsg     string
		}
	}{
		{
			name:   "missing authorization header",
			header: func(*TaskAPI) string { return "" },
			want: struct {
				statusCode int
				errMsg     string
			}{statusCode: http.StatusUnauthorized, errMsg: "No token provided, authorization denied"},
		},
		{
			name:   "wrong scheme",
			header: func(*TaskAPI) string { return "Basic abc123" },
			want: struct {
				statusCode int
				errMsg     string
			}{statusCode: http.StatusUnauthorized, errMsg: "No token provided, authorization denied"},
		},
		{
			name:   "garbage token",
			header: func(*TaskAPI) string { return "Bearer not-a-token" },
			want: struct {
				statusCode int
				errMsg     string
			}{statusCode: http.StatusUnauthorized, errMsg: "Invalid token signature"},
		},
		{
			name: "token signed with another secret",
			header: func(*TaskAPI) string {
				other, err := authTokenFor("other-secret", testUser.ID)
				require.NoError(t, err)
				return "Bearer " + other
			},
			want: struct {
				statusCode int
				errMsg     string
			}{statusCode: http.StatusUnauthorized, errMsg: "Invalid token signature"},
		},
		{
			name: "user deleted after token issuance",
			header: func(api *TaskAPI) string {
				token, err := api.tokens.Issue("ghost-user", "ghost@x.com")
				require.NoError(t, err)
				return "Bearer " + token
			},
			mockSetup: func(users *MockUserRepository) {
				users.On("GetUserByID", mock.Anything, "ghost-user").Return(nil, errors.ErrUserNotFound)
			},
			want: struct {
				statusCode int
				errMsg     string
			}{statusCode: http.StatusUnauthorized, errMsg: "User not found, token is not valid"},
		},
		{
			name: "valid token passes",
			header: func(api *TaskAPI) string {
				token, err := api.tokens.Issue(testUser.ID, testUser.Email)
				require.NoError(t, err)
				return "Bearer " + token
			},
			mockSetup: func(users *MockUserRepository) {
				u := testUser
				users.On("GetUserByID", mock.Anything, testUser.ID).Return(&u, nil)
			},
			want: struct {
				statusCode int
				errMsg     string
			}{statusCode: http.StatusOK},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserRepository)
			if tt.mockSetup != nil {
				tt.mockSetup(users)
			}
			api := setupAPI(t, users, new(MockTaskRepository))

			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if h := tt.header(api); h != "" {
				req.Header.Set("Authorization", h)
			}
			rec := httptest.NewRecorder()
			api.httpSrv.Handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.want.statusCode, rec.Code)
			if tt.want.errMsg != "" {
				var resp map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, tt.want.errMsg, resp["error"])
			}
		})
	}
}

// authTokenFor issues a token outside the API's manager, for cross-secret
// cases.
func authTokenFor(secret, userID string) (string, error) {
	return auth.NewTokenManager(secret).Issue(userID, "x@x.com")
}

func TestGzipRequestDecompress(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GzipRequestDecompress())
	router.POST("/echo", func(ctx *gin.Context) {
		body, err := io.ReadAll(ctx.Request.Body)
		require.NoError(t, err)
		ctx.String(http.StatusOK, string(body))
	})

	t.Run("gzip body is unwrapped", func(t *testing.T) {
		var compressed bytes.Buffer
		zw := gzip.NewWriter(&compressed)
		_, err := zw.Write([]byte(`{"hello":"world"}`))
		require.NoError(t, err)
		require.NoError(t, zw.Close())

		req := httptest.NewRequest(http.MethodPost, "/echo", &compressed)
		req.Header.Set("Content-Encoding", "gzip")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, `{"hello":"world"}`, rec.Body.String())
	})

	t.Run("invalid gzip body is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("plainly not gzip"))
		req.Header.Set("Content-Encoding", "gzip")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("plain body passes through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("plain"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "plain", rec.Body.String())
	})
}

func TestGzipResponseCompress(t *testing.T) {
	gin.SetMode(gin.TestMode)

	large := strings.Repeat("abcdefgh", 300)
	router := gin.New()
	router.Use(GzipResponseCompress())
	router.GET("/large", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"data": large})
	})
	router.GET("/small", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"data": "tiny"})
	})

	tests := []struct {
		name           string
		path           string
		acceptEncoding string
		want           struct {
			encoding string
		}
	}{
		{
			name:           "large json gets compressed",
			path:           "/large",
			acceptEncoding: "gzip",
			want:           struct{ encoding string }{encoding: "gzip"},
		},
		{
			name:           "small response stays plain",
			path:           "/small",
			acceptEncoding: "gzip",
			want:           struct{ encoding string }{encoding: ""},
		},
		{
			name: "no accept-encoding stays plain",
			path: "/large",
			want: struct{ encoding string }{encoding: ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want.encoding, rec.Header().Get("Content-Encoding"))

			if tt.want.encoding == "gzip" {
				zr, err := gzip.NewReader(rec.Body)
				require.NoError(t, err)
				decompressed, err := io.ReadAll(zr)
				require.NoError(t, err)
				assert.Contains(t, string(decompressed), large)
			}
		})
	}
}
