package notifier

import (
	"strings"
	"time"

	"spotanalitics/internal/pkg/text"
)

const maxMessageLen = 3800

// Field 消息中的一行键值。
type Field struct {
	Label string
	Value string
}

// Message 统一格式的推送：标题 + 代码块内对齐的字段 + 页脚。
type Message struct {
	Icon      string
	Title     string
	Fields    []Field
	Footer    string
	Timestamp time.Time
}

// Render 生成 Telegram Markdown 文本，超长时截断。
func (m Message) Render() string {
	var b strings.Builder
	if header := strings.TrimSpace(m.Icon + " " + m.Title); header != "" {
		b.WriteString(header)
		b.WriteString("\n\n")
	}
	if block := renderFields(m.Fields); block != "" {
		b.WriteString(block)
	}
	if footer := strings.TrimSpace(m.Footer); footer != "" {
		b.WriteString(sanitize(footer))
		b.WriteString("\n")
	}
	if !m.Timestamp.IsZero() {
		b.WriteString(m.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC"))
	}
	return text.Truncate(strings.TrimSpace(b.String()), maxMessageLen)
}

func renderFields(fields []Field) string {
	width := 0
	kept := make([]Field, 0, len(fields))
	for _, f := range fields {
		label := strings.TrimSpace(f.Label)
		value := strings.TrimSpace(f.Value)
		if label == "" && value == "" {
			continue
		}
		if len(label) > width {
			width = len(label)
		}
		kept = append(kept, Field{Label: label, Value: value})
	}
	if len(kept) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("```\n")
	for _, f := range kept {
		b.WriteString(sanitize(f.Label))
		b.WriteString(strings.Repeat(" ", width-len(f.Label)+1))
		b.WriteString(sanitize(f.Value))
		b.WriteString("\n")
	}
	b.WriteString("```\n\n")
	return b.String()
}

func sanitize(s string) string {
	return strings.ReplaceAll(s, "```", "'''")
}
