// Package file provides the TOML configuration store, the hot-reload
// watcher for search tuning, and the user-editable prompt store. All
// state lives under the quill config directory (~/.quill by default).
package file
