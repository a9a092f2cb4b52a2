// Package capture turns copied browser requests into stored credentials.
//
// The user copies any studio-api request from the browser's network panel
// with "Copy as cURL (bash)". ReadInitial obtains the first command of a
// run. During the crawl a Watcher polls the clipboard, or a StdinWatcher
// reads pastes, and saves each new command's credentials to the store so
// that a crawl paused on expired credentials can resume.
package capture
