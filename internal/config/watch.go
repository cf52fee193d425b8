package config

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch monitors path for changes and calls onChange with the newly loaded
// Config each time the file is written. It runs until ctx is cancelled.
//
// If a reload fails (e.g., invalid YAML), the error is logged and the
// previous config remains active; Watch does not call onChange.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	return WatchFiles(ctx, []string{path}, func(string) {
		cfg, err := Load(path)
		if err != nil {
			slog.Error("config: reload failed, keeping previous config",
				"path", path, "err", err)
			return
		}
		slog.Info("config: reloaded", "path", path)
		onChange(cfg)
	})
}

// WatchFiles monitors every path and calls onChange with the path that was
// written or replaced. It watches the parent directories rather than the
// files, so a save that renames a new file over the old one (vim, VS Code,
// kubectl cp) is seen on every edit, as is a file created after start. It
// runs until ctx is cancelled.
func WatchFiles(ctx context.Context, paths []string, onChange func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	wanted := make(map[string]string, len(paths)) // cleaned -> as given
	dirs := make(map[string]bool)
	for _, p := range paths {
		clean := filepath.Clean(p)
		wanted[clean] = p
		dir := filepath.Dir(clean)
		if dirs[dir] {
			continue
		}
		dirs[dir] = true
		if err := watcher.Add(dir); err != nil {
			slog.Error("config: cannot watch directory", "path", dir, "err", err)
		}
	}

	slog.Info("config: watching for changes", "files", len(wanted), "dirs", len(dirs))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// A rename onto the path arrives as Create.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if orig, ok := wanted[filepath.Clean(event.Name)]; ok {
				onChange(orig)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}
