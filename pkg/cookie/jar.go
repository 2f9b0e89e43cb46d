package cookie

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cast"
)

// DefaultMaxLength is the maximum length of a whole cookie string, see Length.
const DefaultMaxLength = 1000

// DefaultPath is the path attribute of stored cookies.
const DefaultPath = "/"

// DefaultExpires is the fixed far-future expiration of stored cookies.
var DefaultExpires = time.Date(2038, time.January, 1, 1, 1, 1, 0, time.UTC) //nolint:gochecknoglobals

// ErrNotFound is returned by Jar.Get if there is no cookie with the key.
var ErrNotFound = errors.New("cookie not found")

// Jar reads and writes JSON values as cookie strings.
// It is safe for concurrent use if the Store is.
type Jar struct {
	store     Store
	maxLength int
	path      string
	expires   time.Time
}

// Option configures a Jar.
type Option func(j *Jar)

// WithMaxLength sets the maximum length of the cookie string, writes over the limit are rejected.
func WithMaxLength(v int) Option {
	return func(j *Jar) {
		j.maxLength = v
	}
}

// WithExpires sets the expiration of written cookies.
func WithExpires(v time.Time) Option {
	return func(j *Jar) {
		j.expires = v
	}
}

// WithPath sets the path attribute of written cookies.
func WithPath(v string) Option {
	return func(j *Jar) {
		j.path = v
	}
}

// NewJar creates a Jar over the store, with the default limit, path and expiration unless overridden.
func NewJar(store Store, opts ...Option) *Jar {
	j := &Jar{store: store, maxLength: DefaultMaxLength, path: DefaultPath, expires: DefaultExpires}
	for _, o := range opts {
		o(j)
	}
	return j
}

// Set stores the value encoded as JSON.
// It returns false and stores nothing if the cookie string is longer than the limit.
func (j *Jar) Set(ctx context.Context, key string, value any) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	encoded, err := json.MarshalToString(value)
	if err != nil {
		return false, fmt.Errorf(`cannot encode cookie "%s": %w`, key, err)
	}

	cookie := Format(key, encoded, j.path, j.expires)
	if j.maxLength > 0 && Length(cookie) > j.maxLength {
		return false, nil
	}

	if err := j.store.Put(ctx, key, cookie, j.expires); err != nil {
		return false, fmt.Errorf(`cannot store cookie "%s": %w`, key, err)
	}
	return true, nil
}

// Get decodes the stored value to the target pointer.
func (j *Jar) Get(ctx context.Context, key string, target any) error {
	raw, err := j.raw(ctx, key)
	if err != nil {
		return err
	}
	if err := json.UnmarshalFromString(raw, target); err != nil {
		return fmt.Errorf(`cannot decode cookie "%s": %w`, key, err)
	}
	return nil
}

// GetOr returns the decoded value, or the defaultValue if there is no such cookie.
func (j *Jar) GetOr(ctx context.Context, key string, defaultValue any) (any, error) {
	var value any
	if err := j.Get(ctx, key, &value); errors.Is(err, ErrNotFound) {
		return defaultValue, nil
	} else if err != nil {
		return nil, err
	}
	return value, nil
}

// GetString returns the value converted to a string, or the defaultValue if there is no such cookie.
func (j *Jar) GetString(ctx context.Context, key string, defaultValue string) (string, error) {
	value, err := j.GetOr(ctx, key, defaultValue)
	if err != nil {
		return "", err
	}
	return cast.ToStringE(value)
}

// GetInt returns the value converted to an int, or the defaultValue if there is no such cookie.
func (j *Jar) GetInt(ctx context.Context, key string, defaultValue int) (int, error) {
	value, err := j.GetOr(ctx, key, defaultValue)
	if err != nil {
		return 0, err
	}
	return cast.ToIntE(value)
}

// GetBool returns the value converted to a bool, or the defaultValue if there is no such cookie.
func (j *Jar) GetBool(ctx context.Context, key string, defaultValue bool) (bool, error) {
	value, err := j.GetOr(ctx, key, defaultValue)
	if err != nil {
		return false, err
	}
	return cast.ToBoolE(value)
}

// Contains returns true if there is a not expired cookie with the key.
func (j *Jar) Contains(ctx context.Context, key string) (bool, error) {
	_, found, err := j.store.Lookup(ctx, key)
	return found, err
}

// Delete removes the cookie, it is not an error if it does not exist.
func (j *Jar) Delete(ctx context.Context, key string) error {
	if err := j.store.Delete(ctx, key); err != nil {
		return fmt.Errorf(`cannot delete cookie "%s": %w`, key, err)
	}
	return nil
}

// Close closes the underlying store.
func (j *Jar) Close() error {
	return j.store.Close()
}

func (j *Jar) raw(ctx context.Context, key string) (string, error) {
	cookie, found, err := j.store.Lookup(ctx, key)
	if err != nil {
		return "", fmt.Errorf(`cannot load cookie "%s": %w`, key, err)
	}
	if !found {
		return "", fmt.Errorf(`%w: "%s"`, ErrNotFound, key)
	}
	_, value, _, err := Parse(cookie)
	if err != nil {
		return "", err
	}
	return value, nil
}
