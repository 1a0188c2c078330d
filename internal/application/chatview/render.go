package chatview

import (
	"bytes"
	"html/template"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

var bareNumberPattern = regexp.MustCompile(`^\d{1,3}$`)

// Renderer 将助手回答的 markdown 渲染为安全的 HTML
//
// 链接渲染为普通文本，只包含 1~3 位数字的列表项渲染为引用样式。
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewRenderer 创建渲染器
func NewRenderer() *Renderer {
	md := goldmark.New(
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
			renderer.WithNodeRenderers(util.Prioritized(&answerNodeRenderer{}, 100)),
		),
	)

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(regexp.MustCompile(`^(answer-link|answer-marker)$`)).OnElements("span")

	return &Renderer{md: md, policy: policy}
}

// Render 渲染 markdown
func (r *Renderer) Render(content string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes())), nil
}

type answerNodeRenderer struct{}

func (r *answerNodeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindLink, r.renderLink)
	reg.Register(ast.KindAutoLink, r.renderAutoLink)
	reg.Register(ast.KindListItem, r.renderListItem)
}

func (r *answerNodeRenderer) renderLink(w util.BufWriter, _ []byte, _ ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString(`<span class="answer-link">`)
	} else {
		_, _ = w.WriteString("</span>")
	}
	return ast.WalkContinue, nil
}

func (r *answerNodeRenderer) renderAutoLink(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.AutoLink)
	_, _ = w.WriteString(`<span class="answer-link">`)
	_, _ = w.Write(util.EscapeHTML(n.Label(source)))
	_, _ = w.WriteString("</span>")
	return ast.WalkContinue, nil
}

func (r *answerNodeRenderer) renderListItem(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		_, _ = w.WriteString("</li>\n")
		return ast.WalkContinue, nil
	}
	if label, ok := bareNumber(node, source); ok {
		_, _ = w.WriteString(`<li><span class="answer-marker">`)
		_, _ = w.Write(label)
		_, _ = w.WriteString("</span>")
		return ast.WalkSkipChildren, nil
	}
	_, _ = w.WriteString("<li>")
	return ast.WalkContinue, nil
}

// bareNumber 列表项是否只包含一个短数字
func bareNumber(item ast.Node, source []byte) ([]byte, bool) {
	child := item.FirstChild()
	if child == nil || child != item.LastChild() {
		return nil, false
	}
	if child.Kind() != ast.KindTextBlock && child.Kind() != ast.KindParagraph {
		return nil, false
	}
	var buf bytes.Buffer
	lines := child.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	text := bytes.TrimSpace(buf.Bytes())
	if !bareNumberPattern.Match(text) {
		return nil, false
	}
	return text, true
}
