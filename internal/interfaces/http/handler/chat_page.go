package handler

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"contextual-chat/internal/application/chatview"
	"contextual-chat/internal/config"
	"contextual-chat/internal/domain/entity"
	"contextual-chat/internal/interfaces/http/web"
	apperrors "contextual-chat/pkg/errors"
	"contextual-chat/pkg/logger"
)

// ChatPageHandler 服务端渲染的对话页
type ChatPageHandler struct {
	store    *chatview.Store
	renderer *chatview.Renderer
	cfg      config.ViewConfig
}

// NewChatPageHandler 创建对话页处理器
func NewChatPageHandler(store *chatview.Store, renderer *chatview.Renderer, cfg config.ViewConfig) *ChatPageHandler {
	return &ChatPageHandler{
		store:    store,
		renderer: renderer,
		cfg:      cfg,
	}
}

type markerView struct {
	ContentID string
	Label     string
}

type turnView struct {
	Assistant bool
	Text      string
	HTML      template.HTML
	Markers   []markerView
}

type pageView struct {
	Title          string
	MinInputLength int
	Alert          string
	Loading        bool
	Pending        string
	Turns          []turnView
	Screenshot     template.URL
}

// Show 渲染对话页
func (h *ChatPageHandler) Show(c *gin.Context) {
	view := h.session(c)
	h.render(c, http.StatusOK, view, view.TakeAlert())
}

// Submit 提交用户输入
func (h *ChatPageHandler) Submit(c *gin.Context) {
	view := h.session(c)
	if err := view.Submit(c.Request.Context(), c.PostForm("input")); err != nil {
		appErr := apperrors.AsAppError(err)
		message := appErr.Message
		if appErr.Detail != "" {
			message = appErr.Detail
		}
		h.render(c, appErr.HTTPStatus, view, message)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// ShowAttribution 激活引用标记，结果提示在下一次渲染时展示
func (h *ChatPageHandler) ShowAttribution(c *gin.Context) {
	view := h.session(c)
	contentID := c.Param("content_id")
	if err := view.ShowAttribution(c.Request.Context(), contentID); err != nil {
		logger.Warn(c.Request.Context(), "attribution lookup did not produce a screenshot",
			"content_id", contentID,
			"error", err.Error(),
		)
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// Reset 结束当前会话
func (h *ChatPageHandler) Reset(c *gin.Context) {
	if id, err := c.Cookie(h.cfg.CookieName); err == nil {
		if view, ok := h.store.Get(id); ok {
			view.Reset()
		}
		h.store.Delete(id)
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.CookieName, "", -1, "/", "", false, true)
	c.Redirect(http.StatusSeeOther, "/")
}

// session 按 cookie 取会话，不存在时新建并下发 cookie
func (h *ChatPageHandler) session(c *gin.Context) *chatview.View {
	id, _ := c.Cookie(h.cfg.CookieName)
	view, created := h.store.GetOrCreate(id)
	if created {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(h.cfg.CookieName, view.ID(), 0, "/", "", false, true)
	}

	ctx := logger.WithContext(c.Request.Context(), logger.SessionIDKey, view.ID())
	c.Request = c.Request.WithContext(ctx)
	return view
}

func (h *ChatPageHandler) render(c *gin.Context, status int, view *chatview.View, alert string) {
	snap := view.Snapshot()
	page := pageView{
		Title:          h.cfg.Title,
		MinInputLength: h.cfg.MinInputLength,
		Alert:          alert,
		Loading:        snap.Loading(),
	}

	if page.Loading {
		if n := len(snap.Turns); n > 0 {
			page.Pending = snap.Turns[n-1].Message.Content
		}
	} else {
		page.Turns = make([]turnView, 0, len(snap.Turns))
		for _, t := range snap.Turns {
			page.Turns = append(page.Turns, h.turnView(c, t))
		}
	}

	if shot, ok := snap.Screenshot.(chatview.ShowingScreenshot); ok {
		page.Screenshot = template.URL("data:image/png;base64," + shot.Base64)
	}

	c.HTML(status, web.ChatTemplate, page)
}

func (h *ChatPageHandler) turnView(c *gin.Context, t chatview.Turn) turnView {
	if t.Message.Role != entity.RoleAssistant {
		return turnView{Text: t.Message.Content}
	}

	out := turnView{Assistant: true}
	html, err := h.renderer.Render(t.Message.Content)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to render markdown", err)
		html = template.HTML(template.HTMLEscapeString(t.Message.Content))
	}
	out.HTML = html

	for _, m := range t.Markers {
		out.Markers = append(out.Markers, markerView{
			ContentID: m.ContentID,
			Label:     m.Number.String(),
		})
	}
	return out
}
