package tui

import (
	"fmt"
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"github.com/openclaw/cockpit/internal/session"
	"github.com/openclaw/cockpit/internal/transcript"
	"github.com/openclaw/cockpit/internal/workers"
)

// RenderSession formats the whole read model: transcript, then workers,
// then the sandbox file list.
func RenderSession(s *session.Session, width int) string {
	var b strings.Builder

	for _, msg := range s.Messages() {
		b.WriteString(renderMessage(msg, width))
	}

	if ws := s.Workers(); len(ws) > 0 {
		b.WriteString("\n")
		b.WriteString(divider)
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("WORKERS"))
		b.WriteString("\n")
		for _, w := range ws {
			b.WriteString(renderWorker(w))
		}
	}

	if files := s.Files(); len(files) > 0 {
		b.WriteString("\n")
		b.WriteString(divider)
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("FILES"))
		b.WriteString("\n")
		for _, f := range files {
			b.WriteString(fmt.Sprintf("  %s %s\n",
				valueStyle.Render(f.Path),
				dimStyle.Render(fmt.Sprintf("(%d bytes)", f.Size))))
		}
	}

	if url := s.PreviewURL(); url != "" {
		b.WriteString(fmt.Sprintf("\n%s %s\n",
			dimStyle.Render("preview:"), successStyle.Render(url)))
	}

	return b.String()
}

func renderMessage(msg transcript.Message, width int) string {
	var b strings.Builder

	switch msg.Role {
	case transcript.RoleUser:
		b.WriteString("\n" + userStyle.Render("you") + "\n")
	case transcript.RoleAssistant:
		label := "agent"
		if msg.Streaming {
			label = "agent …"
		}
		b.WriteString("\n" + assistantStyle.Bold(true).Render(label) + "\n")
	case transcript.RoleSystem:
		b.WriteString("\n" + systemStyle.Render(msg.Content) + "\n")
		return b.String()
	}

	for _, group := range transcript.GroupBlocks(msg) {
		if group.Category == "" {
			text := group.Blocks[0].Text
			if width > 4 {
				text = wordwrap.String(text, width-2)
			}
			b.WriteString(indent(text, "  ") + "\n")
			continue
		}
		b.WriteString("  " + categoryStyle.Render(group.Category) + "\n")
		for _, blk := range group.Blocks {
			b.WriteString(renderToolCall(blk.Tool))
		}
	}
	return b.String()
}

func renderToolCall(tc *transcript.ToolCall) string {
	glyph := warnStyle.Render("◌")
	detail := ""
	switch tc.Status {
	case transcript.ToolSuccess:
		glyph = successStyle.Render("●")
		detail = dimStyle.Render(fmt.Sprintf(" %dms", tc.EndTime.Sub(tc.StartTime).Milliseconds()))
	case transcript.ToolError:
		glyph = errorStyle.Render("✗")
		detail = errorStyle.Render(" " + tc.Error)
	}
	return fmt.Sprintf("    %s %s%s\n", glyph, toolStyle.Render(tc.Name), detail)
}

func renderWorker(w workers.State) string {
	var status string
	switch w.Status {
	case workers.StatusCompleted:
		status = successStyle.Render(string(w.Status))
	case workers.StatusError:
		status = errorStyle.Render(string(w.Status) + " " + w.Error)
	default:
		status = warnStyle.Render(string(w.Status))
	}

	name := w.DisplayName
	if name == "" {
		name = w.SectionName
	}
	line := fmt.Sprintf("  %s %s", workerStyle.Render(name), status)
	if w.CurrentTool != "" {
		line += dimStyle.Render(" → " + w.CurrentTool)
	}
	if w.MaxIterations > 0 {
		line += dimStyle.Render(fmt.Sprintf(" [%d/%d]", w.Iteration, w.MaxIterations))
	}
	if w.Summary != "" {
		line += "\n    " + dimStyle.Render(w.Summary)
	}
	return line + "\n"
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
