package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/todo-api/internal/constants"
	"github.com/yukikurage/todo-api/internal/dto"
	apierrors "github.com/yukikurage/todo-api/internal/errors"
	"github.com/yukikurage/todo-api/internal/middleware"
	"github.com/yukikurage/todo-api/internal/models"
	"github.com/yukikurage/todo-api/internal/services"
	"github.com/yukikurage/todo-api/internal/storage"
	"github.com/yukikurage/todo-api/internal/utils"
)

// TodoHandler serves the owner-scoped todo endpoints.
type TodoHandler struct {
	todoService    *services.TodoService
	uploader       *storage.Uploader
	logger         *log.Logger
	maxUploadBytes int64
}

// NewTodoHandler creates a new TodoHandler. A non-positive maxUploadBytes
// falls back to the default limit.
func NewTodoHandler(todoService *services.TodoService, uploader *storage.Uploader, logger *log.Logger, maxUploadBytes int64) *TodoHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = constants.DefaultMaxUploadBytes
	}
	return &TodoHandler{
		todoService:    todoService,
		uploader:       uploader,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// todoForm is a parsed create or update request. Nil text fields were not
// sent at all.
type todoForm struct {
	Title       *string
	Description *string
	Tags        *string
	Image       *multipart.FileHeader
	Files       []*multipart.FileHeader
}

// ListTodos returns one page of the current user's todos
func (h *TodoHandler) ListTodos(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	params, err := utils.GetPaginationParams(c)
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}

	page, err := h.todoService.List(c.Request.Context(), services.ListTodosInput{
		UserID:     userID,
		Page:       params.Page,
		Limit:      params.Limit,
		SearchTerm: strings.TrimSpace(c.Query("searchTerm")),
	})
	if err != nil {
		h.respondTodoError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTodoListResponse(page.Todos, page.TotalPages, page.CurrentPage))
}

// GetTodo returns a single todo owned by the current user
func (h *TodoHandler) GetTodo(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	todo, err := h.todoService.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.respondTodoError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTodoDTO(*todo))
}

// CreateTodo stores the uploaded attachments and creates a todo
func (h *TodoHandler) CreateTodo(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	form, err := h.parseTodoForm(c)
	if err != nil {
		h.respondFormError(c, err)
		return
	}

	var details []apierrors.FieldError
	if form.Title == nil || strings.TrimSpace(*form.Title) == "" {
		details = append(details, apierrors.FieldError{Field: "title", Message: "title is required"})
	}
	if form.Description == nil || strings.TrimSpace(*form.Description) == "" {
		details = append(details, apierrors.FieldError{Field: "description", Message: "description is required"})
	}
	if len(details) > 0 {
		apierrors.BadRequestWithDetails(c, "Invalid todo", details)
		return
	}

	image, files, assets, err := h.saveAttachments(c.Request.Context(), form)
	if err != nil {
		h.logger.Error("failed to store attachments", "user_id", userID, "err", err)
		apierrors.InternalError(c, "Failed to store attachments")
		return
	}

	input := services.CreateTodoInput{
		UserID:      userID,
		Title:       *form.Title,
		Description: *form.Description,
		Image:       image,
		Files:       files,
	}
	if form.Tags != nil {
		input.Tags = *form.Tags
	}

	todo, err := h.todoService.Create(c.Request.Context(), input)
	if err != nil {
		h.discardAssets(c.Request.Context(), assets)
		h.respondTodoError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTodoDTO(*todo))
}

// UpdateTodo applies the supplied fields to a todo owned by the current user.
// Attachments are replaced only when new ones are uploaded.
func (h *TodoHandler) UpdateTodo(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	form, err := h.parseTodoForm(c)
	if err != nil {
		h.respondFormError(c, err)
		return
	}

	todoID := c.Param("id")

	// Load the current attachments first so replaced ones can be removed, and
	// so nothing is uploaded for a todo the user cannot edit.
	var previous *models.Todo
	if form.Image != nil || len(form.Files) > 0 {
		previous, err = h.todoService.Get(c.Request.Context(), userID, todoID)
		if err != nil {
			h.respondTodoError(c, err)
			return
		}
	}

	image, files, assets, err := h.saveAttachments(c.Request.Context(), form)
	if err != nil {
		h.logger.Error("failed to store attachments", "user_id", userID, "err", err)
		apierrors.InternalError(c, "Failed to store attachments")
		return
	}

	todo, err := h.todoService.Update(c.Request.Context(), userID, todoID, services.UpdateTodoInput{
		Title:       form.Title,
		Description: form.Description,
		Tags:        form.Tags,
		Image:       image,
		Files:       files,
	})
	if err != nil {
		h.discardAssets(c.Request.Context(), assets)
		h.respondTodoError(c, err)
		return
	}

	if previous != nil {
		h.discardReplaced(c.Request.Context(), previous, todo)
	}

	c.JSON(http.StatusOK, dto.ToTodoDTO(*todo))
}

// DeleteTodo removes a todo owned by the current user
func (h *TodoHandler) DeleteTodo(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	if err := h.todoService.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.respondTodoError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Todo deleted successfully"})
}

// parseTodoForm reads a multipart or urlencoded body.
func (h *TodoHandler) parseTodoForm(c *gin.Context) (*todoForm, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	form := &todoForm{}
	err := c.Request.ParseMultipartForm(h.maxUploadBytes)
	switch {
	case errors.Is(err, http.ErrNotMultipart):
		if err := c.Request.ParseForm(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if images := c.Request.MultipartForm.File[constants.FormFieldImage]; len(images) > 0 {
			form.Image = images[0]
		}
		form.Files = c.Request.MultipartForm.File[constants.FormFieldFiles]
	}

	form.Title = postFormValue(c.Request, "title")
	form.Description = postFormValue(c.Request, "description")
	form.Tags = postFormValue(c.Request, "tags")
	return form, nil
}

func postFormValue(r *http.Request, key string) *string {
	values, ok := r.PostForm[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}

// saveAttachments stores the image and files of form in one batch so a
// partial failure leaves nothing behind.
func (h *TodoHandler) saveAttachments(ctx context.Context, form *todoForm) (*string, []string, []storage.Asset, error) {
	headers := make([]*multipart.FileHeader, 0, len(form.Files)+1)
	if form.Image != nil {
		headers = append(headers, form.Image)
	}
	headers = append(headers, form.Files...)
	if len(headers) == 0 {
		return nil, nil, nil, nil
	}

	assets, err := h.uploader.SaveAll(ctx, headers)
	if err != nil {
		return nil, nil, nil, err
	}

	var image *string
	rest := assets
	if form.Image != nil {
		url := assets[0].URL
		image = &url
		rest = assets[1:]
	}

	var files []string
	if len(rest) > 0 {
		files = storage.URLs(rest)
	}
	return image, files, assets, nil
}

func (h *TodoHandler) discardAssets(ctx context.Context, assets []storage.Asset) {
	if len(assets) == 0 {
		return
	}
	if err := h.uploader.Remove(context.WithoutCancel(ctx), assets); err != nil {
		h.logger.Warn("failed to remove orphaned attachments", "err", err)
	}
}

// discardReplaced removes attachments of previous that updated no longer
// references.
func (h *TodoHandler) discardReplaced(ctx context.Context, previous, updated *models.Todo) {
	kept := make(map[string]bool, len(updated.Files)+1)
	for _, url := range updated.Files {
		kept[url] = true
	}
	if updated.Image != nil {
		kept[*updated.Image] = true
	}

	var stale []string
	if previous.Image != nil && !kept[*previous.Image] {
		stale = append(stale, *previous.Image)
	}
	for _, url := range previous.Files {
		if !kept[url] {
			stale = append(stale, url)
		}
	}
	if len(stale) == 0 {
		return
	}

	if err := h.uploader.RemoveURLs(context.WithoutCancel(ctx), stale); err != nil {
		h.logger.Warn("failed to remove replaced attachments", "todo_id", updated.TodoID, "err", err)
	}
}

func (h *TodoHandler) respondFormError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		apierrors.RespondWithError(c, http.StatusRequestEntityTooLarge,
			apierrors.NewAPIError(apierrors.ErrCodeInvalidInput, "Request body too large"))
		return
	}
	apierrors.BadRequest(c, "Invalid form data")
}

func (h *TodoHandler) respondTodoError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTitleRequired):
		apierrors.BadRequestWithDetails(c, "Invalid todo", []apierrors.FieldError{
			{Field: "title", Message: "title is required"},
		})
	case errors.Is(err, services.ErrDescriptionRequired):
		apierrors.BadRequestWithDetails(c, "Invalid todo", []apierrors.FieldError{
			{Field: "description", Message: "description is required"},
		})
	case errors.Is(err, services.ErrTodoNotFound):
		apierrors.NotFound(c, "Todo not found")
	default:
		h.logger.Error("todo request failed", "path", c.FullPath(), "err", err)
		apierrors.InternalError(c, "")
	}
}
