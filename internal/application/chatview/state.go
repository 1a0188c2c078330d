package chatview

// Phase 对话视图的提交状态，任一时刻只处于其中一种
type Phase interface {
	Name() string
	phase()
}

// Idle 可以提交
type Idle struct{}

// Submitting 用户消息已加入列表，正在构造请求
type Submitting struct {
	RequestID uint64
	Input     string
}

// Awaiting 等待上游响应
type Awaiting struct {
	RequestID uint64
}

func (Idle) Name() string       { return "idle" }
func (Submitting) Name() string { return "submitting" }
func (Awaiting) Name() string   { return "awaiting" }

func (Idle) phase()       {}
func (Submitting) phase() {}
func (Awaiting) phase()   {}

// Screenshot 截图面板状态，独立于 Phase
type Screenshot interface {
	Visible() bool
	screenshot()
}

// NoScreenshot 面板为空
type NoScreenshot struct{}

// ShowingScreenshot 展示某个内容的 base64 图片
type ShowingScreenshot struct {
	ContentID string
	Base64    string
}

func (NoScreenshot) Visible() bool      { return false }
func (ShowingScreenshot) Visible() bool { return true }

func (NoScreenshot) screenshot()      {}
func (ShowingScreenshot) screenshot() {}
