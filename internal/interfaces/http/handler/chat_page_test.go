package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contextual-chat/internal/application/chatview"
	"contextual-chat/internal/application/relay"
	"contextual-chat/internal/config"
	"contextual-chat/internal/interfaces/http/web"
)

type pageGateway struct {
	chatBody string
	infoBody string
	lookups  []relay.Lookup
}

func (g *pageGateway) Chat(context.Context, map[string]any) (*relay.Response, error) {
	return &relay.Response{StatusCode: 200, Body: []byte(g.chatBody)}, nil
}

func (g *pageGateway) RetrievalInfo(_ context.Context, lookup relay.Lookup) (*relay.Response, error) {
	g.lookups = append(g.lookups, lookup)
	return &relay.Response{StatusCode: 200, Body: []byte(g.infoBody)}, nil
}

type pageClient struct {
	engine  *gin.Engine
	cookies map[string]*http.Cookie
}

func newPageClient(gw chatview.Gateway) *pageClient {
	gin.SetMode(gin.TestMode)
	cfg := config.ViewConfig{
		Enabled:         true,
		SessionCapacity: 8,
		MinInputLength:  3,
		CookieName:      "chat_session",
		Title:           "Contextual AI Chat",
	}
	store := chatview.NewStore(cfg.SessionCapacity, func(id string) *chatview.View {
		return chatview.NewView(id, "agent-1", gw, chatview.Options{MinInputLength: cfg.MinInputLength})
	})
	h := NewChatPageHandler(store, chatview.NewRenderer(), cfg)

	engine := gin.New()
	engine.UseRawPath = true
	engine.SetHTMLTemplate(web.Templates())
	engine.GET("/", h.Show)
	engine.POST("/chat/messages", h.Submit)
	engine.POST("/chat/attributions/:content_id", h.ShowAttribution)
	engine.POST("/chat/reset", h.Reset)

	return &pageClient{engine: engine, cookies: map[string]*http.Cookie{}}
}

func (p *pageClient) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, c := range p.cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	p.engine.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(p.cookies, c.Name)
			continue
		}
		p.cookies[c.Name] = c
	}
	return rec
}

const pageAnswer = `{
	"message_id": "msg-1",
	"message": {"content": "Revenue **grew** 12%.", "role": "assistant"},
	"attributions": [{"content_ids": ["a", "doc/7"]}],
	"retrieval_contents": [{"content_id": "a", "number": 1}]
}`

func TestChatPageFlow(t *testing.T) {
	gw := &pageGateway{
		chatBody: pageAnswer,
		infoBody: `{"content_metadatas":[{"page_img":"iVBORw0KGgo="}]}`,
	}
	client := newPageClient(gw)

	rec := client.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Contextual AI Chat")
	assert.Contains(t, rec.Body.String(), `minlength="3"`)
	require.Contains(t, client.cookies, "chat_session")
	sessionID := client.cookies["chat_session"].Value

	rec = client.do(http.MethodPost, "/chat/messages", url.Values{"input": {"What was revenue?"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = client.do(http.MethodGet, "/", nil)
	page := rec.Body.String()
	assert.Equal(t, sessionID, client.cookies["chat_session"].Value)
	assert.Contains(t, page, "What was revenue?")
	assert.Contains(t, page, "<strong>grew</strong>")
	assert.Contains(t, page, `action="/chat/attributions/a"`)
	assert.Contains(t, page, `action="/chat/attributions/doc%2F7"`)
	assert.Contains(t, page, `>1</button>`)
	assert.Contains(t, page, `>doc/7</button>`)
	assert.NotContains(t, page, "data:image/png")

	rec = client.do(http.MethodPost, "/chat/attributions/doc%2F7", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	require.Len(t, gw.lookups, 1)
	assert.Equal(t, relay.Lookup{AgentID: "agent-1", MessageID: "msg-1", ContentID: "doc/7"}, gw.lookups[0])

	rec = client.do(http.MethodGet, "/", nil)
	assert.Contains(t, rec.Body.String(), `src="data:image/png;base64,iVBORw0KGgo="`)
}

func TestChatPageAlertsAreShownOnce(t *testing.T) {
	gw := &pageGateway{
		chatBody: pageAnswer,
		infoBody: `{"content_metadatas":[{"content_id":"a"}]}`,
	}
	client := newPageClient(gw)

	client.do(http.MethodGet, "/", nil)
	client.do(http.MethodPost, "/chat/messages", url.Values{"input": {"question"}})
	client.do(http.MethodPost, "/chat/attributions/a", nil)

	rec := client.do(http.MethodGet, "/", nil)
	assert.Contains(t, rec.Body.String(), "No screenshot or page image found in content metadata.")

	rec = client.do(http.MethodGet, "/", nil)
	assert.NotContains(t, rec.Body.String(), "No screenshot or page image found in content metadata.")
}

func TestChatPageRejectsShortInput(t *testing.T) {
	client := newPageClient(&pageGateway{chatBody: pageAnswer})

	rec := client.do(http.MethodPost, "/chat/messages", url.Values{"input": {" a "}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `class="alert"`)
	assert.Contains(t, rec.Body.String(), "Please enter at least 3 characters.")
	assert.NotContains(t, rec.Body.String(), "invalid parameter")
}

func TestChatPageResetStartsNewSession(t *testing.T) {
	client := newPageClient(&pageGateway{chatBody: pageAnswer})

	client.do(http.MethodPost, "/chat/messages", url.Values{"input": {"question"}})
	oldID := client.cookies["chat_session"].Value

	rec := client.do(http.MethodPost, "/chat/reset", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.NotContains(t, client.cookies, "chat_session")

	rec = client.do(http.MethodGet, "/", nil)
	assert.NotContains(t, rec.Body.String(), "question")
	require.Contains(t, client.cookies, "chat_session")
	assert.NotEqual(t, oldID, client.cookies["chat_session"].Value)
}

func TestChatPageWithoutMessageIDAlerts(t *testing.T) {
	gw := &pageGateway{chatBody: `{"message":{"content":"no id"},"attributions":[{"content_ids":["a"]}]}`}
	client := newPageClient(gw)

	client.do(http.MethodPost, "/chat/messages", url.Values{"input": {"question"}})
	client.do(http.MethodPost, "/chat/attributions/a", nil)

	rec := client.do(http.MethodGet, "/", nil)
	assert.Contains(t, rec.Body.String(), "Missing message_id or agent_id in API response.")
	assert.Empty(t, gw.lookups)
}
