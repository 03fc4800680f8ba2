package plugin

import (
	"os"
	"path/filepath"

	"github.com/dshills/oxbow/internal/config"
)

// RootPaths returns the plugin roots in priority order: core plugins, the
// default set and its bundle folder when enabled, then user plugins. Roots
// under an empty install or user folder are omitted.
func RootPaths(cfg config.Config) []string {
	var roots []string

	if install := cfg.Plugins.InstallDir; install != "" {
		roots = append(roots, filepath.Join(install, "plugins", "core"))
		if cfg.Plugins.UseDefault {
			defaults := filepath.Join(install, "plugins", "default")
			roots = append(roots, defaults, filepath.Join(defaults, "bundle"))
		}
	}

	if user := cfg.Plugins.UserFolder; user != "" {
		roots = append(roots, filepath.Join(user, "plugins"))
	}
	return roots
}

// ListPluginDirectories returns the immediate subdirectories of each root.
// Roots are scanned in order; entries within a root keep the order the
// file system returns them in. Missing or unreadable roots contribute
// nothing.
func ListPluginDirectories(roots []string) []string {
	var dirs []string
	for _, root := range roots {
		dirs = append(dirs, listDirectories(root)...)
	}
	return dirs
}

func listDirectories(root string) []string {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	f, err := os.Open(root)
	if err != nil {
		return nil
	}
	defer f.Close()

	// File.ReadDir keeps directory order; os.ReadDir would sort.
	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil
	}

	var dirs []string
	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())
		if isDir(entry, path) {
			dirs = append(dirs, path)
		}
	}
	return dirs
}

// isDir follows symlinks.
func isDir(entry os.DirEntry, path string) bool {
	if entry.Type()&os.ModeSymlink == 0 {
		return entry.IsDir()
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Discover instantiates one Plugin per directory under roots.
func Discover(roots []string) []*Plugin {
	dirs := ListPluginDirectories(roots)
	plugins := make([]*Plugin, 0, len(dirs))
	for _, dir := range dirs {
		plugins = append(plugins, NewPlugin(dir))
	}
	return plugins
}
