package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/artesanato/internal/application"
	"github.com/oksasatya/artesanato/internal/domain/entity"
	repo "github.com/oksasatya/artesanato/internal/domain/repository"
	"github.com/oksasatya/artesanato/internal/interface/middleware"
	"github.com/oksasatya/artesanato/pkg/response"
	"github.com/oksasatya/artesanato/pkg/validation"
)

const maxPhotoBytes = 5 << 20

type ItemHandler struct {
	Svc    *application.ItemService
	Users  *application.UserService
	Logger *logrus.Logger
}

func NewItemHandler(svc *application.ItemService, users *application.UserService, logger *logrus.Logger) *ItemHandler {
	return &ItemHandler{Svc: svc, Users: users, Logger: logger}
}

// Amount decodes from a JSON number or string. Missing numeric fields stay
// zero and are rejected by item validation.
type itemRequest struct {
	Description string          `json:"descricao"`
	Month       int             `json:"mes"`
	Year        int             `json:"ano"`
	Amount      decimal.Decimal `json:"valor"`
	Kind        string          `json:"tipo"`
	Status      string          `json:"status"`
	UserID      string          `json:"usuario"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type searchQuery struct {
	Description string `form:"descricao"`
	Month       int    `form:"mes"`
	Year        int    `form:"ano"`
	Kind        string `form:"tipo"`
	Status      string `form:"status"`
	UserID      string `form:"usuario"`
}

type textSearchQuery struct {
	Q    string `form:"q" binding:"required"`
	Size int    `form:"size"`
}

type itemResponse struct {
	ID          string          `json:"id"`
	Description string          `json:"descricao"`
	Month       int             `json:"mes"`
	Year        int             `json:"ano"`
	Amount      decimal.Decimal `json:"valor"`
	Kind        entity.Kind     `json:"tipo"`
	Status      entity.Status   `json:"status"`
	UserID      string          `json:"usuario"`
	PhotoURL    string          `json:"foto_url,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func toItemResponse(it *entity.Item) itemResponse {
	return itemResponse{
		ID:          it.ID,
		Description: it.Description,
		Month:       it.Month,
		Year:        it.Year,
		Amount:      it.Amount,
		Kind:        it.Kind,
		Status:      it.Status,
		UserID:      it.UserID,
		PhotoURL:    it.PhotoURL,
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	}
}

func toItemResponses(items []entity.Item) []itemResponse {
	out := make([]itemResponse, 0, len(items))
	for i := range items {
		out = append(out, toItemResponse(&items[i]))
	}
	return out
}

// requireOwner fails with ErrOwnerNotFound unless userID names a stored user,
// and with ErrForbidden when that user is not the caller.
func (h *ItemHandler) requireOwner(c *gin.Context, userID string) error {
	u, err := h.Users.GetByID(c.Request.Context(), userID)
	if err != nil {
		return err
	}
	if u == nil {
		return application.ErrOwnerNotFound
	}
	if !callerIs(c, u.ID) {
		return application.ErrForbidden
	}
	return nil
}

// toEntity converts the request body. An empty owner is left for item
// validation to report.
func (h *ItemHandler) toEntity(c *gin.Context, req itemRequest) (*entity.Item, error) {
	it := &entity.Item{
		Description: req.Description,
		Month:       req.Month,
		Year:        req.Year,
		Amount:      req.Amount,
		UserID:      strings.TrimSpace(req.UserID),
	}
	if it.UserID != "" {
		if err := h.requireOwner(c, it.UserID); err != nil {
			return nil, err
		}
	}
	if req.Kind != "" {
		k, ok := entity.ParseKind(req.Kind)
		if !ok {
			return nil, application.ErrInvalidKind
		}
		it.Kind = k
	}
	if req.Status != "" {
		st, ok := entity.ParseStatus(req.Status)
		if !ok {
			return nil, application.ErrInvalidStatus
		}
		it.Status = st
	}
	return it, nil
}

// load fetches the :id item, writing a 404 when it is absent and a 403 when
// it belongs to someone else.
func (h *ItemHandler) load(c *gin.Context) (*entity.Item, bool) {
	it, err := h.Svc.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.Logger, err)
		return nil, false
	}
	if it == nil {
		response.Error[any](c, http.StatusNotFound, "item not found", nil)
		return nil, false
	}
	if !callerIs(c, it.UserID) {
		writeError(c, h.Logger, application.ErrForbidden)
		return nil, false
	}
	return it, true
}

func (h *ItemHandler) Search(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid query", validation.ToDetails(err))
		return
	}
	if q.UserID == "" {
		writeError(c, h.Logger, application.ErrOwnerNotFound)
		return
	}
	if err := h.requireOwner(c, q.UserID); err != nil {
		writeError(c, h.Logger, err)
		return
	}

	f := repo.ItemFilter{UserID: q.UserID, Description: strings.TrimSpace(q.Description), Month: q.Month, Year: q.Year}
	if q.Kind != "" {
		k, ok := entity.ParseKind(q.Kind)
		if !ok {
			writeError(c, h.Logger, application.ErrInvalidKind)
			return
		}
		f.Kind = k
	}
	if q.Status != "" {
		st, ok := entity.ParseStatus(q.Status)
		if !ok {
			writeError(c, h.Logger, application.ErrInvalidStatus)
			return
		}
		f.Status = st
	}

	items, err := h.Svc.Search(c.Request.Context(), f)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toItemResponses(items), "items", map[string]any{"count": len(items)})
}

func (h *ItemHandler) Get(c *gin.Context) {
	it, ok := h.load(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, toItemResponse(it), "item", nil)
}

func (h *ItemHandler) Create(c *gin.Context) {
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	it, err := h.toEntity(c, req)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	out, err := h.Svc.Create(c.Request.Context(), it)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, toItemResponse(out), "item created", nil)
}

// Update replaces the item's fields. Omitted owner and status keep their
// stored values.
func (h *ItemHandler) Update(c *gin.Context) {
	current, ok := h.load(c)
	if !ok {
		return
	}
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = current.UserID
	}
	it, err := h.toEntity(c, req)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	it.ID = current.ID
	it.PhotoURL = current.PhotoURL
	it.CreatedAt = current.CreatedAt
	if it.Status == "" {
		it.Status = current.Status
	}

	out, err := h.Svc.Update(c.Request.Context(), it)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toItemResponse(out), "item updated", nil)
}

func (h *ItemHandler) UpdateStatus(c *gin.Context) {
	current, ok := h.load(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.Logger, application.ErrInvalidStatus)
		return
	}
	st, valid := entity.ParseStatus(req.Status)
	if !valid {
		writeError(c, h.Logger, application.ErrInvalidStatus)
		return
	}
	out, err := h.Svc.UpdateStatus(c.Request.Context(), current, st)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toItemResponse(out), "status updated", nil)
}

func (h *ItemHandler) Delete(c *gin.Context) {
	current, ok := h.load(c)
	if !ok {
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), current); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadPhoto accepts a multipart "foto" image of up to 5 MiB.
func (h *ItemHandler) UploadPhoto(c *gin.Context) {
	current, ok := h.load(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("foto")
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"foto": "is required"})
		return
	}
	if fh.Size > maxPhotoBytes {
		response.Error[any](c, http.StatusRequestEntityTooLarge, "photo too large", nil)
		return
	}
	contentType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"foto": "must be an image"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	defer func() { _ = f.Close() }()

	url, err := h.Svc.UploadPhoto(c.Request.Context(), current, f, fh.Filename, contentType)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, map[string]any{"id": current.ID, "foto_url": url}, "photo uploaded", nil)
}

// TextSearch runs a full-text query over the caller's own items.
func (h *ItemHandler) TextSearch(c *gin.Context) {
	var q textSearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid query", validation.ToDetails(err))
		return
	}
	items, err := h.Svc.TextSearch(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), q.Q, q.Size)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toItemResponses(items), "items", map[string]any{"count": len(items)})
}
