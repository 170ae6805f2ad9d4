package indexer

import (
	"path/filepath"
	"strings"
)

// VendoredDirs are directory names that only ever hold generated or
// third-party code. Names like build or vendor are left out since they are
// also common package names. The CLI excludes these unless asked not to.
var VendoredDirs = []string{
	"node_modules",
	".venv",
	"__pycache__",
	".idea",
	".vscode",
	".next",
	".nuxt",
	".pytest_cache",
	".mypy_cache",
}

// languageMap lists the source types that get summarized. Prose and data
// formats without structure worth summarizing are left out.
var languageMap = map[string]string{
	".go":      "Go",
	".py":      "Python",
	".js":      "JavaScript",
	".mjs":     "JavaScript",
	".ts":      "TypeScript",
	".jsx":     "JavaScript (React)",
	".tsx":     "TypeScript (React)",
	".java":    "Java",
	".rs":      "Rust",
	".rb":      "Ruby",
	".php":     "PHP",
	".c":       "C",
	".cpp":     "C++",
	".cc":      "C++",
	".h":       "C/C++ Header",
	".hpp":     "C++ Header",
	".cs":      "C#",
	".swift":   "Swift",
	".kt":      "Kotlin",
	".scala":   "Scala",
	".r":       "R",
	".sql":     "SQL",
	".sh":      "Shell",
	".bash":    "Bash",
	".zsh":     "Zsh",
	".ps1":     "PowerShell",
	".yaml":    "YAML",
	".yml":     "YAML",
	".html":    "HTML",
	".css":     "CSS",
	".scss":    "SCSS",
	".sass":    "Sass",
	".less":    "Less",
	".toml":    "TOML",
	".proto":   "Protocol Buffers",
	".graphql": "GraphQL",
	".vue":     "Vue",
	".svelte":  "Svelte",
	".lua":     "Lua",
	".ex":      "Elixir",
	".exs":     "Elixir",
	".hs":      "Haskell",
	".ml":      "OCaml",
	".zig":     "Zig",
	".dart":    "Dart",
}

var namedFiles = map[string]string{
	"Makefile":   "Makefile",
	"Dockerfile": "Dockerfile",
}

// Language returns the language of a recognized source file.
func Language(path string) (string, bool) {
	name := filepath.Base(path)
	if lang, ok := namedFiles[name]; ok {
		return lang, true
	}
	lang, ok := languageMap[strings.ToLower(filepath.Ext(name))]
	return lang, ok
}

// Languages returns the recognized extensions.
func Languages() map[string]string {
	out := make(map[string]string, len(languageMap))
	for k, v := range languageMap {
		out[k] = v
	}
	return out
}
