// Package refresh coordinates recovery from expired credentials.
//
// When the API answers 401 the crawl calls Coordinator.OnUnauthorized,
// which alerts the operator and blocks until the credential store reports
// a different version. A separate producer (the clipboard or stdin watcher
// in package capture) writes the new tuple; the caller then replays the
// request that failed.
package refresh
