package display

import (
	"github.com/zhouzirui/chatwidget/internal/model/chat"
	"github.com/zhouzirui/chatwidget/internal/service/widget"
)

type multi []widget.Display

// Multi fans every entry out to all displays in order. Nil displays are skipped.
func Multi(displays ...widget.Display) widget.Display {
	out := make(multi, 0, len(displays))
	for _, d := range displays {
		if d != nil {
			out = append(out, d)
		}
	}
	return out
}

func (m multi) Display(role chat.Role, text string) {
	for _, d := range m {
		d.Display(role, text)
	}
}
