package display

import (
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/zhouzirui/chatwidget/internal/model/chat"
)

// Terminal 把每条消息作为一行写入终端，角色标签带颜色。
type Terminal struct {
	mu     sync.Mutex
	w      io.Writer
	styles map[chat.Role]lipgloss.Style
	plain  lipgloss.Style
}

// NewTerminal 创建写入 w 的终端展示器；颜色能力根据 w 自动探测。
func NewTerminal(w io.Writer) *Terminal {
	renderer := lipgloss.NewRenderer(w)
	base := renderer.NewStyle().Bold(true)

	return &Terminal{
		w: w,
		styles: map[chat.Role]lipgloss.Style{
			chat.RoleUser:  base.Foreground(lipgloss.Color("12")),
			chat.RoleAgent: base.Foreground(lipgloss.Color("10")),
			chat.RoleError: base.Foreground(lipgloss.Color("9")),
		},
		plain: base,
	}
}

// Display writes "Label: text" followed by a newline.
func (t *Terminal) Display(role chat.Role, text string) {
	style, ok := t.styles[role]
	if !ok {
		style = t.plain
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := fmt.Fprintf(t.w, "%s %s\n", style.Render(role.Label()+":"), text); err != nil {
		log.Printf("[display] terminal write failed: %v", err)
	}
}
