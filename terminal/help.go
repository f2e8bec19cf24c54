package terminal

import "fmt"

// HelpCategory groups related key bindings.
type HelpCategory struct {
	Name     string
	Commands []HelpCommand
}

type HelpCommand struct {
	Key         string
	Description string
}

// HelpCategories lists every binding of the explorer.
func HelpCategories() []HelpCategory {
	return []HelpCategory{
		{
			Name: "People",
			Commands: []HelpCommand{
				{"hover", "Show details after a short pause"},
				{"click / p", "Pin or unpin the details"},
				{"ESC", "Close details"},
			},
		},
		{
			Name: "Navigation",
			Commands: []HelpCommand{
				{"drag / arrows", "Pan"},
				{"wheel / + -", "Zoom"},
				{"f", "Fit the tree to the window"},
			},
		},
		{
			Name: "Generations",
			Commands: []HelpCommand{
				{"[ ]", "Fewer/more ancestor generations"},
				{"{ }", "Fewer/more descendant generations"},
			},
		},
		{
			Name: "System",
			Commands: []HelpCommand{
				{"?", "Toggle this help"},
				{"q", "Quit"},
				{"Ctrl+C", "Force quit"},
			},
		},
	}
}

func helpLines() []string {
	var lines []string
	for i, cat := range HelpCategories() {
		if i > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, cat.Name+":")
		for _, cmd := range cat.Commands {
			lines = append(lines, fmt.Sprintf("  %-14s %s", cmd.Key, cmd.Description))
		}
	}
	return lines
}
