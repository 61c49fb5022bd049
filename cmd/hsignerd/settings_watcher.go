// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 HardSign Authors

package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hardsign-dev/hardsign/internal/settings"
	"github.com/hardsign-dev/hardsign/internal/util"
)

// startSettingsWatcher watches the data directory for settings.yaml
// changes so an out-of-band edit shows up in operator status right
// away. Signing decisions read the file directly and do not depend on
// the watcher.
func startSettingsWatcher(ctx context.Context, store *settings.Store, hub *operatorHub) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory, not the file: atomic saves replace the file
	// and would drop a file-level watch.
	if err := watcher.Add(filepath.Dir(store.Path())); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch settings directory: %w", err)
	}

	go func() {
		defer func() { _ = watcher.Close() }()

		// Debounce timer to avoid rapid reloads
		var debounceTimer *time.Timer
		const debounceDelay = 500 * time.Millisecond

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != store.Path() {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}

				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDelay, func() {
					util.Logger.Info("settings changed",
						"blind_signing", store.BlindSigningEnabled())
					hub.sendStatus()
				})

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				util.Logger.Warn("settings watcher error", "err", err)
			}
		}
	}()

	return nil
}
