package browse

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"zipedit/cmd/zipedit/ui"
	"zipedit/internal/archive"

	"github.com/charmbracelet/glamour"
)

// buildPreview renders the preview pane content for one entry.
func buildPreview(path string, e archive.Entry, maxRead int64, renderer *glamour.TermRenderer) string {
	switch e.Kind {
	case archive.KindDir:
		return fmt.Sprintf("📁 %s\n\ndirectory entry", e.Name)
	case archive.KindSymlink:
		return fmt.Sprintf("🔗 %s -> %s\n\nsymlink entry; the target is stored verbatim", e.Name, e.LinkTarget)
	}

	if maxRead > 0 && e.Size > uint64(maxRead) {
		return binarySummary(e, "too large to preview")
	}

	data, err := readEntry(path, e.Name, maxRead)
	if err != nil {
		return "⚠️  " + err.Error()
	}
	if len(data) == 0 {
		return fmt.Sprintf("📄 %s\n\n(empty entry)", e.Name)
	}

	if !utf8.Valid(data) {
		return binarySummary(e, "binary content; use the view command with --raw to dump it")
	}

	text := string(data)
	if strings.HasSuffix(e.Name, ".md") && renderer != nil {
		return safeRenderMarkdown(renderer, text)
	}
	return text
}

func binarySummary(e archive.Entry, reason string) string {
	return fmt.Sprintf("📄 %s\n\n%s\n\nsize:   %s\nmethod: %s\ncrc32:  %08x",
		e.Name, reason, ui.FormatSize(int64(e.Size)), e.MethodName(), e.CRC32)
}

// safeRenderMarkdown renders markdown with panic recovery; glamour can
// panic on pathological input.
func safeRenderMarkdown(renderer *glamour.TermRenderer, content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = content
		}
	}()
	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}
