// Package tools builds the protocol tool descriptors that expose engine
// operations, applies scope and claims checks, and normalizes results.
package tools

import "strings"

// DefaultPrefix is the namespace of canonical tool names.
const DefaultPrefix = "uapf"

// Canonical tool names.
const (
	ToolDescribe         = "uapf.describe"
	ToolList             = "uapf.list"
	ToolRunProcess       = "uapf.run_process"
	ToolEvaluateDecision = "uapf.evaluate_decision"
	ToolResolveResources = "uapf.resolve_resources"
	ToolGetArtifact      = "uapf.get_artifact"
	ToolValidate         = "uapf.validate"
)

// CanonicalTools lists every canonical tool in registration order.
var CanonicalTools = []string{
	ToolDescribe,
	ToolList,
	ToolRunProcess,
	ToolEvaluateDecision,
	ToolResolveResources,
	ToolGetArtifact,
	ToolValidate,
}

// Operation returns the base operation of a canonical name, e.g. "run_process".
func Operation(canonical string) string {
	return strings.TrimPrefix(canonical, DefaultPrefix+".")
}

// Names returns the canonical name followed by its alias under prefix. No alias
// is produced for an empty prefix or the default prefix.
func Names(canonical, prefix string) []string {
	names := []string{canonical}
	if prefix == "" || prefix == DefaultPrefix {
		return names
	}
	return append(names, prefix+"."+Operation(canonical))
}

// AliasMap maps each canonical tool to its aliases, excluding the canonical name.
func AliasMap(prefix string) map[string][]string {
	out := make(map[string][]string, len(CanonicalTools))
	for _, canonical := range CanonicalTools {
		aliases := []string{}
		for _, name := range Names(canonical, prefix) {
			if name != canonical {
				aliases = append(aliases, name)
			}
		}
		out[canonical] = aliases
	}
	return out
}

// AllNames returns every registered tool name, canonical and alias, without duplicates.
func AllNames(prefix string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, canonical := range CanonicalTools {
		for _, name := range Names(canonical, prefix) {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}
