// internal/words/assets.go
package words

import (
	"embed"
	"fmt"
)

// The built-in assets ship inside the binary so a deploy is a single
// file.
//
//go:embed static
var static embed.FS

var builtinPackFiles = []string{
	"static/default.txt",
	"static/extended.txt",
}

// BuiltinPacks loads and parses the compiled-in packs. Any parse error
// is fatal for the caller: the server cannot run without at least one
// valid default pack.
func BuiltinPacks() ([]*Pack, error) {
	packs := make([]*Pack, 0, len(builtinPackFiles))
	for _, name := range builtinPackFiles {
		data, err := static.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("reading built-in pack %s: %w", name, err)
		}
		pack, err := ParsePack(string(data))
		if err != nil {
			return nil, fmt.Errorf("parsing built-in pack %s: %w", name, err)
		}
		packs = append(packs, pack)
	}
	return packs, nil
}

// BuiltinSuggestions loads the compiled-in conversation prompts.
func BuiltinSuggestions() ([]string, error) {
	data, err := static.ReadFile("static/suggestions.txt")
	if err != nil {
		return nil, fmt.Errorf("reading built-in suggestions: %w", err)
	}
	list, err := ParseSuggestions(string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing built-in suggestions: %w", err)
	}
	return list, nil
}
