// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package identity

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"

	"github.com/hearthai/cac/internal/cac/types"
)

// Watcher reloads an IdentitySpec from disk whenever its backing file
// changes, so a deployment's voice can be edited without restarting the
// process. Most editors replace a file rather than writing it in place
// (rename-into-place, or remove-then-create), so both Write and Create
// events trigger a reload, and the path is re-added to the watch after each
// successful reload. Remove and Rename events are ignored: they neither
// reload nor re-arm the watch.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	done    chan struct{}
}

// Watch starts watching path and invokes onReload with each successfully
// reparsed spec. A reload that fails to read or parse logs a warning and
// keeps the previously loaded spec in place rather than propagating a
// corrupt intermediate state. Call Close to stop watching.
func Watch(path string, logger *slog.Logger, onReload func(types.IdentitySpec)) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{path: path, watcher: fw, logger: logger, done: make(chan struct{})}
	go w.loop(onReload)
	return w, nil
}

func (w *Watcher) loop(onReload func(types.IdentitySpec)) {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			spec, err := Load(w.path)
			if err != nil {
				w.logger.Warn("identity: hot-reload failed, keeping previous spec",
					slog.String("path", w.path), slog.String("error", err.Error()))
				continue
			}
			w.logger.Info("identity: reloaded from disk", slog.String("path", w.path))
			onReload(spec)
			// Some editors replace the file via rename, which drops the
			// original inode from the watch; re-adding is a no-op when
			// the path is still watchable and recovers it when it isn't.
			_ = w.watcher.Add(w.path)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("identity: watch error", slog.String("error", err.Error()))
		}
	}
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
