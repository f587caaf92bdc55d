package browse

import (
	"fmt"

	"zipedit/cmd/zipedit/ui"
	"zipedit/internal/archive"

	"github.com/charmbracelet/bubbles/list"
)

// entryItem adapts an archive entry to the bubbles list.
type entryItem struct {
	entry archive.Entry
}

func (i entryItem) Title() string {
	switch i.entry.Kind {
	case archive.KindDir:
		return "📁 " + i.entry.Name
	case archive.KindSymlink:
		return "🔗 " + i.entry.Name
	default:
		return "📄 " + i.entry.Name
	}
}

func (i entryItem) Description() string {
	switch i.entry.Kind {
	case archive.KindDir:
		return "directory"
	case archive.KindSymlink:
		return "-> " + i.entry.LinkTarget
	default:
		return fmt.Sprintf("%s  %s  %s",
			ui.FormatSize(int64(i.entry.Size)),
			i.entry.MethodName(),
			ui.FormatRatio(i.entry.Ratio()))
	}
}

func (i entryItem) FilterValue() string { return i.entry.Name }

// entryItems converts a manifest snapshot into list items, archive order.
func entryItems(m *archive.Manifest) []list.Item {
	items := make([]list.Item, 0, m.Len())
	for _, e := range m.Entries() {
		items = append(items, entryItem{entry: e})
	}
	return items
}
