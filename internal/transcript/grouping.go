package transcript

// Tool categories for the grouped presentation view.
const (
	CategoryFile     = "file"
	CategoryWeb      = "web"
	CategoryTerminal = "terminal"
	CategoryWorkers  = "workers"
	CategoryOther    = "other"
)

// Categorize maps a tool name to a presentation category.
func Categorize(toolName string) string {
	switch toolName {
	case "write_file", "read_file", "delete_file", "edit_file", "list_files":
		return CategoryFile
	case "web_search", "web_fetch", "extract_urls":
		return CategoryWeb
	case "run_command", "terminal", "bash":
		return CategoryTerminal
	case "spawn_workers", "spawn_agents":
		return CategoryWorkers
	default:
		return CategoryOther
	}
}

// BlockGroup is one run of a message for display: either a single text block
// or consecutive tool calls sharing a category.
type BlockGroup struct {
	Category string // empty for text groups
	Blocks   []ContentBlock
}

// GroupBlocks clusters consecutive same-category tool calls for display.
// This is a pure projection over a message snapshot: the underlying block
// order is the source of truth and is never reordered, so replay fidelity
// and the ordering invariants are untouched.
func GroupBlocks(m Message) []BlockGroup {
	var groups []BlockGroup
	for _, blk := range m.Blocks {
		if blk.Kind == BlockText {
			groups = append(groups, BlockGroup{Blocks: []ContentBlock{blk}})
			continue
		}
		cat := Categorize(blk.Tool.Name)
		if n := len(groups); n > 0 && groups[n-1].Category == cat && cat != "" {
			groups[n-1].Blocks = append(groups[n-1].Blocks, blk)
			continue
		}
		groups = append(groups, BlockGroup{Category: cat, Blocks: []ContentBlock{blk}})
	}
	return groups
}
