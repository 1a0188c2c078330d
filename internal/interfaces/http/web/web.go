// Package web 内嵌对话页模板与静态资源
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/url"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// ChatTemplate 对话页模板名
const ChatTemplate = "chat.html"

// Templates 解析内嵌模板
func Templates() *template.Template {
	return template.Must(template.New("").Funcs(template.FuncMap{
		"pathEscape": url.PathEscape,
	}).ParseFS(templateFS, "templates/*.html"))
}

// Static 静态资源文件系统，根目录为 static/
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
