// Package storage writes crawl output to the local filesystem.
//
// One output directory receives:
//   - project_me.json, the raw collection enumeration
//   - <name>_clips.json, one merged artifact per collection
//   - pages/<name>_page<N>.json, the raw items of each fetched page
//
// Every file is written to a temporary sibling and renamed into place, so
// an interrupted run never leaves a truncated artifact behind. Names come
// from the collection's sanitized display name; when two collections of a
// run sanitize to the same name the later one gets an _<id8> suffix.
//
// Usage:
//
//	manager, err := storage.NewManager("suno_api_dump")
//	if err != nil {
//	    return err
//	}
//	path, err := manager.SaveCollection(collection, result)
package storage
