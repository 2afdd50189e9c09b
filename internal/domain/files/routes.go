package files

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the file storage routes. There is no
// authentication; every route is public.
func RegisterRoutes(r gin.IRouter, h *Handler) {
	r.POST("/upload", h.Upload)

	r.GET("/files", h.ListFiles)
	r.DELETE("/files/:filename", h.Delete)

	r.GET(ImageRoute, h.ListImages)
	r.GET(ImageRoute+"/:filename", h.GetImage)

	r.GET(DownloadRoute+"/:filename", h.Download)

	r.GET(StaticImageBase+"/*filepath", h.StaticImage)
	r.HEAD(StaticImageBase+"/*filepath", h.StaticImage)

	r.GET("/events", h.Events)
}
