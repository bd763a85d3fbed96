package wheel

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/wheelsmith/wheelsmith/internal/project"
)

// EntryPointsFile renders entry_points.txt. The console_scripts and
// gui_scripts groups come first, remaining groups follow lexically, keys are
// sorted within each group, and a single blank line separates groups. An
// empty set renders an empty file.
func EntryPointsFile(m *project.Metadata) string {
	groups := make(map[string]map[string]string, len(m.EntryPoints)+2)
	for group, entries := range m.EntryPoints {
		if len(entries) > 0 {
			groups[group] = entries
		}
	}
	if len(m.Scripts) > 0 {
		groups["console_scripts"] = m.Scripts
	}
	if len(m.GUIScripts) > 0 {
		groups["gui_scripts"] = m.GUIScripts
	}
	if len(groups) == 0 {
		return ""
	}

	var order []string
	for _, special := range []string{"console_scripts", "gui_scripts"} {
		if _, ok := groups[special]; ok {
			order = append(order, special)
		}
	}
	for _, group := range slices.Sorted(maps.Keys(groups)) {
		if group != "console_scripts" && group != "gui_scripts" {
			order = append(order, group)
		}
	}

	var blocks []string
	for _, group := range order {
		var b strings.Builder
		fmt.Fprintf(&b, "[%s]\n", group)
		for _, key := range slices.Sorted(maps.Keys(groups[group])) {
			fmt.Fprintf(&b, "%s = %s\n", key, groups[group][key])
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n")
}
