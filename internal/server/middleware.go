package server

import (
	"bytes"
	"compress/gzip"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taskplanner/internal/domain/errors"
	"taskplanner/internal/domain/models"
)

// userContextKey is where the auth gate stores the resolved user for
// downstream handlers.
const userContextKey = "currentUser"

// AuthRequired is the guard in front of every task endpoint and /api/auth/me.
// It extracts the bearer token, verifies it, resolves the user and binds it
// to the request context; any failure short-circuits with 401.
func (api *TaskAPI) AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errors.ErrNoToken.Error()})
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		userID, err := api.tokens.Verify(token)
		if err != nil {
			api.logger.Debug("token verification failed", "error", err)
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		user, err := api.users.GetUserByID(ctx.Request.Context(), userID)
		if err != nil {
			// Token outlived the user record it points at.
			api.logger.Debug("token references unknown user", "userID", userID)
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errors.ErrStaleUser.Error()})
			return
		}

		ctx.Set(userContextKey, user)
		ctx.Next()
	}
}

func currentUser(ctx *gin.Context) (*models.User, bool) {
	v, ok := ctx.Get(userContextKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

// RequestLogger emits one structured line per API request.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Next()
		logger.Info("request",
			slog.String("method", ctx.Request.Method),
			slog.String("path", ctx.Request.URL.Path),
			slog.Int("status", ctx.Writer.Status()),
		)
	}
}

const minCompressSize = 1024

// GzipRequestDecompress transparently unwraps gzip-encoded request bodies.
func GzipRequestDecompress() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !strings.Contains(strings.ToLower(ctx.GetHeader("Content-Encoding")), "gzip") {
			ctx.Next()
			return
		}

		gr, err := gzip.NewReader(ctx.Request.Body)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": errors.ErrInvalidGzipRequest.Error()})
			return
		}
		defer gr.Close()

		ctx.Request.Body = io.NopCloser(gr)
		ctx.Request.Header.Del("Content-Encoding")
		ctx.Request.Header.Del("Content-Length")
		ctx.Next()
	}
}

type gzipResponseWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *gzipResponseWriter) Write(data []byte) (int, error) {
	return w.buf.Write(data)
}

func (w *gzipResponseWriter) WriteString(s string) (int, error) {
	return w.buf.WriteString(s)
}

// GzipResponseCompress buffers the response and emits it gzip-encoded when
// the client accepts gzip, the payload is compressible JSON/text and large
// enough to be worth it. Small or already-encoded responses pass through.
func GzipResponseCompress() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !strings.Contains(strings.ToLower(ctx.GetHeader("Accept-Encoding")), "gzip") {
			ctx.Next()
			return
		}

		gw := &gzipResponseWriter{ResponseWriter: ctx.Writer}
		ctx.Writer = gw
		ctx.Next()
		ctx.Writer = gw.ResponseWriter

		header := gw.ResponseWriter.Header()
		body := gw.buf.Bytes()
		if len(body) >= minCompressSize &&
			header.Get("Content-Encoding") == "" &&
			isCompressibleContentType(header.Get("Content-Type")) {
			var compressed bytes.Buffer
			zw := gzip.NewWriter(&compressed)
			if _, err := zw.Write(body); err == nil && zw.Close() == nil {
				header.Del("Content-Length")
				header.Set("Content-Encoding", "gzip")
				appendVary(header)
				_, _ = gw.ResponseWriter.Write(compressed.Bytes())
				return
			}
			_ = ctx.Error(errors.ErrGzipCompressionFailed)
		}

		_, _ = gw.ResponseWriter.Write(body)
	}
}

func appendVary(header http.Header) {
	vary := header.Get("Vary")
	switch {
	case vary == "":
		header.Set("Vary", "Accept-Encoding")
	case !strings.Contains(vary, "Accept-Encoding"):
		header.Set("Vary", vary+", Accept-Encoding")
	}
}

func isCompressibleContentType(ct string) bool {
	lower := strings.ToLower(ct)
	for _, prefix := range []string{
		"application/json",
		"application/javascript",
		"text/html",
		"text/css",
		"text/plain",
	} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}
