package handlers

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/todo-api/internal/errors"
	"github.com/yukikurage/todo-api/internal/storage"
)

// inlineTypes are served inline; everything else is forced to download so
// uploaded markup never renders on the API origin.
var inlineTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// AssetHandler serves stored attachments.
type AssetHandler struct {
	store  storage.Store
	logger *log.Logger
}

// NewAssetHandler creates a new AssetHandler.
func NewAssetHandler(store storage.Store, logger *log.Logger) *AssetHandler {
	return &AssetHandler{
		store:  store,
		logger: logger,
	}
}

// ServeAsset streams the object named by the *key path parameter. Only
// raster images are shown inline, and ?download=1 forces a download for them
// too.
func (h *AssetHandler) ServeAsset(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if !storage.ValidKey(key) {
		apierrors.NotFound(c, "File not found")
		return
	}

	rc, info, err := h.store.Open(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			apierrors.NotFound(c, "File not found")
			return
		}
		h.logger.Error("failed to open asset", "key", key, "err", err)
		apierrors.InternalError(c, "")
		return
	}
	defer rc.Close()

	mediaType, _, _ := mime.ParseMediaType(info.ContentType)
	contentType, disposition := "application/octet-stream", "attachment"
	if inlineTypes[mediaType] {
		contentType = info.ContentType
		if c.Query("download") == "" {
			disposition = "inline"
		}
	}

	c.DataFromReader(http.StatusOK, info.Size, contentType, rc, map[string]string{
		"Content-Disposition":    fmt.Sprintf("%s; filename=%q", disposition, key),
		"X-Content-Type-Options": "nosniff",
		"Cache-Control":          "private, max-age=3600",
	})
}
