package main

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/totegamma/concurrent/core"

	"github.com/totegamma/mediastore/internal/file"
	"github.com/totegamma/mediastore/internal/storage"
)

type Handler struct {
	storage *storage.Service
}

func NewHandler(s *storage.Service) *Handler {
	return &Handler{storage: s}
}

// Register mounts the owner routes under /storage and the anonymous share route.
// shareLimit guards the share route and uploadLimit the upload body.
func (h *Handler) Register(e *echo.Echo, shareLimit, uploadLimit echo.MiddlewareFunc) {
	e.GET("/user", h.account)
	e.GET("/share/:token", h.openShared, shareLimit)

	g := e.Group("/storage")
	g.GET("/dashboard", h.dashboard)
	g.GET("/recent-files", h.recentFiles)
	g.GET("/files-by-date", h.filesByDate)

	g.POST("/folders", h.createFolder)
	g.GET("/folders/:id", h.folderStats)
	g.DELETE("/folders/:id", h.deleteFolder)
	g.POST("/folders/:id/unlock", h.unlockFolder)

	g.POST("/upload", h.upload, uploadLimit)
	g.GET("/files/:id", h.download)
	g.DELETE("/files/:id", h.deleteFile)
	g.POST("/files/:id/favorite", h.toggleFavorite)
	g.PUT("/files/:id/rename", h.rename)
	g.POST("/files/:id/duplicate", h.duplicate)
	g.POST("/files/:id/copy", h.copy)
	g.GET("/files/:id/share", h.share)
}

func requester(c echo.Context) (string, bool) {
	id, ok := c.Get(core.RequesterIdCtxKey).(string)
	return id, ok && id != ""
}

func invalidRequester(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "error": "invalid requester"})
}

func ok(c echo.Context, content any) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "content": content})
}

func (h *Handler) account(c echo.Context) error {
	owner, found := requester(c)
	if !found {
		return invalidRequester(c)
	}
	account, err := h.storage.Account(c.Request().Context(), owner)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, account)
}

func (h *Handler) dashboard(c echo.Context) error {
	owner, found := requester(c)
	if !found {
		return invalidRequester(c)
	}
	d, err := h.storage.GetDashboard(c.Request().Context(), owner)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, d)
}

func (h *Handler) recentFiles(c echo.Context) error {
	owner, found := requester(c)
	if !found {
		return invalidRequester(c)
	}
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil {
		limit = 0
	}
	files, err := h.storage.GetRecentFiles(c.Request().Context(), owner, limit)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, files)
}

func (h *Handler) filesByDate(c echo.Context) error {
	owner, found := requester(c)
	if !found {
		return invalidRequester(c)
	}
	files, err := h.storage.GetFilesByDate(c.Request().Context(), owner, c.QueryParam("date"))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, files)
}

type createFolderRequest struct {
	Name string `json:"name"`
	Pin  string `json:"pinCode"`
}

func (h *Handler) createFolder(c echo.Context) error {
	owner, found := requester(c)
	if !found {
		return invalidRequester(c)
	}
	var req createFolderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "error": "invalid request"})
	}
	f, err := h.storage.CreateFolder(c.Request().Context(), owner, req.Name, req.Pin)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"status": "ok", "content": f})
}

func (h *Handler) folderStats(c echo.Context) error {
	owner, found := requester(c)
	if !found {
		return invalidRequester(c)
	}
	stats, err := h.storage.GetFolderStats(c.Request().Context(), owner, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, stats)
}

func (h *Handler) deleteFolder(c echo.Context) error {
	owner, found := requester(c)
	if !found {
		return invalidRequester(c)
	}
	if err := h.storage.DeleteFolder(c.Request().Context(), owner, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

type unlockRequest struct {
	Pin string `json:"pinCode"`
}

func (h *Handler) unlockFolder(c echo.Context) error {
	owner, found := requester(c)
	if !found {
		return invalidRequester(c)
	}
	var req unlockRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "error": "invalid request"})
	}
	unlocked, err := h.storage.UnlockFolder(c.Request().Context(), owner, c.Param("id"), req.Pin)
	if err != nil {
		return respondError(c, err)
	}
	if !unlocked {
		return c.JSON(http.StatusForbidden, echo.Map{"status": "error", "error": "wrong pin"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func (h *Handler) upload(c echo.Context) error {
	owner, found := requester(c)
	if !found {
		return invalidRequester(c)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "error": "no file uploaded"})
	}
	body, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "error": "unreadable upload"})
	}
	defer body.Close()

	in := storage.UploadInput{
		Name:     fh.Filename,
		MimeType: fh.Header.Get(echo.HeaderContentType),
		Body:     body,
	}
	if folderID := c.FormValue("folderId"); folderID != "" {
		in.FolderID = &folderID
	}

	f, err := h.storage.Upload(c.Request().Context(), owner, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"status": "ok", "content": f})
}

func (h *Handler) download(c echo.Context) error {
	owner, found := requester(c)
	if !found {
		return invalidRequester(c)
	}
	content, err := h.storage.Download(c.Request().Context(), owner, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return stream(c, content)
}

func (h *Handler) openShared(c echo.Context) error {
	content, err := h.storage.OpenShared(c.Request().Context(), c.Param("token"))
	if err != nil {
		return respondError(c, err)
	}
	return stream(c, content)
}

func stream(c echo.Context, content *file.Content) error {
	defer content.Body.Close()
	c.Response().Header().Set(echo.HeaderContentDisposition, mime.FormatMediaType("inline", map[string]string{"filename": content.File.Name}))
	c.Response().Header().Set(echo.HeaderContentLength, strconv.FormatUint(content.File.Size, 10))
	return c.Stream(http.StatusOK, content.File.MimeType, content.Body)
}

func (h *Handler) deleteFile(c echo.Context) error {
	owner, found := requester(c)
	if !found {
		return invalidRequester(c)
	}
	if err := h.storage.Delete(c.Request().Context(), owner, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func (h *Handler) toggleFavorite(c echo.Context) error {
	owner, found := requester(c)
	if !found {
		return invalidRequester(c)
	}
	f, err := h.storage.ToggleFavorite(c.Request().Context(), owner, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, f)
}

type renameRequest struct {
	NewName string `json:"newName"`
}

func (h *Handler) rename(c echo.Context) error {
	owner, found := requester(c)
	if !found {
		return invalidRequester(c)
	}
	var req renameRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "error": "invalid request"})
	}
	f, err := h.storage.Rename(c.Request().Context(), owner, c.Param("id"), req.NewName)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, f)
}

func (h *Handler) duplicate(c echo.Context) error {
	owner, found := requester(c)
	if !found {
		return invalidRequester(c)
	}
	f, err := h.storage.Duplicate(c.Request().Context(), owner, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"status": "ok", "content": f})
}

type copyRequest struct {
	TargetFolderID *string `json:"folderId"`
}

func (h *Handler) copy(c echo.Context) error {
	owner, found := requester(c)
	if !found {
		return invalidRequester(c)
	}
	var req copyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "error": "invalid request"})
	}
	if req.TargetFolderID != nil && *req.TargetFolderID == "" {
		req.TargetFolderID = nil
	}
	f, err := h.storage.Copy(c.Request().Context(), owner, c.Param("id"), req.TargetFolderID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"status": "ok", "content": f})
}

func (h *Handler) share(c echo.Context) error {
	owner, found := requester(c)
	if !found {
		return invalidRequester(c)
	}
	link, err := h.storage.Share(c.Request().Context(), owner, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, link)
}
