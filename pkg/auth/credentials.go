package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"

	"sunocrawl/pkg/config"
)

// Tuple is the credential set every request is authenticated with. It is
// replaced wholesale on refresh, never patched field by field.
type Tuple struct {
	Bearer       string `json:"bearer" validate:"required"`
	BrowserToken string `json:"browser" validate:"required"`
	DeviceID     string `json:"device" validate:"required"`
}

// Store holds the current credential tuple. Version changes whenever a new
// tuple is saved, which is what a waiting crawl watches for.
type Store interface {
	// Load returns the current tuple; ErrCredentialsNotFound when absent,
	// ErrInvalidCredentials when present but unusable
	Load() (*Tuple, error)
	// Save replaces the stored tuple
	Save(t *Tuple) error
	// Version identifies the stored tuple; the zero time means absent
	Version() (time.Time, error)
	// Delete removes the stored tuple
	Delete() error
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validate reports whether all three parts of the tuple are present
func (t *Tuple) Validate() error {
	if t == nil {
		return ErrInvalidCredentials
	}
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		})
	})

	if err := validate.Struct(t); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			missing := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				missing = append(missing, fe.Field())
			}
			return fmt.Errorf("%w: missing %s", ErrInvalidCredentials, strings.Join(missing, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	return nil
}

// Sanitized returns a copy of the tuple safe for display
func (t *Tuple) Sanitized() *Tuple {
	if t == nil {
		return nil
	}
	return &Tuple{
		Bearer:       Mask(t.Bearer),
		BrowserToken: Mask(t.BrowserToken),
		DeviceID:     Mask(t.DeviceID),
	}
}

// NewStore builds the credential store selected in the configuration
func NewStore(cfg *config.CredentialsConfig) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "file":
		return NewFileStore(cfg.File), nil
	case "encrypted":
		return NewEncryptedFileStore(cfg.File, "")
	case "keyring":
		return NewKeyringStore()
	default:
		return nil, fmt.Errorf("unknown credentials backend %q", cfg.Backend)
	}
}

// configDir returns the per-user configuration directory, creating it
func configDir() (string, error) {
	dir := filepath.Join(xdg.ConfigHome, "sunocrawl")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// Mask masks all but the first 4 and last 4 characters of a secret
func Mask(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

var tokenPattern = regexp.MustCompile(`[A-Za-z0-9_\-]{12,}`)

// Redact shortens every token-like run of 12 or more characters in s to its
// first 6 and last 4 characters. Apply it to any text that may echo
// credentials before it is logged or shown.
func Redact(s string) string {
	return tokenPattern.ReplaceAllStringFunc(s, func(tok string) string {
		return tok[:6] + "…" + tok[len(tok)-4:]
	})
}
