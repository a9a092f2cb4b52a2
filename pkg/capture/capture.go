package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/atotto/clipboard"

	"sunocrawl/pkg/auth"
	"sunocrawl/pkg/logger"
)

// ErrNotCurl is returned for input that does not start with "curl"
var ErrNotCurl = errors.New("input does not start with curl")

// Source reads the current text of a watched input
type Source interface {
	ReadText() (string, error)
}

// ClipboardSource reads the system clipboard
type ClipboardSource struct{}

// ReadText returns the clipboard contents
func (ClipboardSource) ReadText() (string, error) {
	return clipboard.ReadAll()
}

// ClipboardAvailable reports whether this platform has a usable clipboard tool
func ClipboardAvailable() bool {
	return !clipboard.Unsupported
}

// Apply parses a copied curl command and replaces the stored tuple with
// the credentials it carries
func Apply(store auth.Store, text string, log logger.Logger) (*auth.Tuple, error) {
	if !auth.LooksLikeCurl(text) {
		return nil, ErrNotCurl
	}

	tuple, err := auth.ParseCurl(text)
	if err != nil {
		return nil, err
	}
	if err := store.Save(tuple); err != nil {
		return nil, fmt.Errorf("failed to save credentials: %w", err)
	}

	log.InfoWithFields("Credentials updated", map[string]interface{}{
		"bearer": auth.Mask(tuple.Bearer),
		"device": auth.Mask(tuple.DeviceID),
	})
	return tuple, nil
}

// ReadPaste reads lines until a blank line or end of input and joins them.
// It returns io.EOF when the input ends before any line was read.
func ReadPaste(r *bufio.Reader) (string, error) {
	var lines []string
	for {
		line, err := r.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")

		if strings.TrimSpace(line) == "" {
			if err == nil && len(lines) == 0 {
				// Leading blank lines are skipped
				continue
			}
			if err != nil && len(lines) == 0 {
				return "", err
			}
			return strings.Join(lines, "\n"), nil
		}

		lines = append(lines, strings.TrimRight(line, " \t"))
		if err != nil {
			if errors.Is(err, io.EOF) {
				return strings.Join(lines, "\n"), nil
			}
			return "", err
		}
	}
}

// ReadInitial obtains the first curl command of a run: the clipboard when
// it already holds one, otherwise a paste read from in, ended by a blank
// line. source may be nil to skip the clipboard. in should be the same
// reader later handed to a StdinWatcher so no buffered input is lost.
func ReadInitial(source Source, in *bufio.Reader, prompt io.Writer, log logger.Logger) (string, error) {
	if source != nil {
		if text, err := source.ReadText(); err == nil && auth.LooksLikeCurl(text) {
			log.Info("Using curl command from the clipboard")
			return strings.TrimSpace(text), nil
		} else if err != nil {
			log.WithError(err).Debug("Clipboard unreadable")
		}
	}

	fmt.Fprintln(prompt, "Paste the 'Copy as cURL (bash)' command, then an empty line:")
	text, err := ReadPaste(in)
	if err != nil {
		return "", fmt.Errorf("failed to read pasted curl command: %w", err)
	}
	return text, nil
}
