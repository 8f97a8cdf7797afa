// Package doppler fetches secrets from the Doppler API so they can be
// injected into a supervised child's environment.
package doppler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// TokenEnv names the variable the service token is read from.
const TokenEnv = "DOPPLER_TOKEN"

// ErrNotFound is returned when the config has no secret with the requested name.
var ErrNotFound = errors.New("secret not found in doppler config")

// Options configures the Doppler secret store.
type Options struct {
	Token    string
	BaseURL  string
	Project  string
	Config   string
	CacheTTL time.Duration
	Timeout  time.Duration
	Client   *http.Client
}

// Store fetches secrets from one Doppler project config and caches them.
type Store struct {
	client *http.Client
	opts   Options

	mu    sync.Mutex
	cache map[string]cachedSecret
}

type cachedSecret struct {
	value   string
	expires time.Time
}

// NewStore creates a new Doppler secret store.
func NewStore(opts Options) *Store {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.doppler.com"
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	return &Store{
		client: opts.Client,
		opts:   opts,
		cache:  make(map[string]cachedSecret),
	}
}

// Resolve returns the values of the named secrets. Names missing from the
// cache are fetched with a single download of the config; a name the config
// does not define fails the whole call with ErrNotFound.
func (d *Store) Resolve(ctx context.Context, names []string) (map[string]string, error) {
	ctx, span := otel.Tracer("launchwarden").Start(ctx, "doppler.resolve")
	defer span.End()
	span.SetAttributes(
		attribute.String("doppler.project", d.opts.Project),
		attribute.String("doppler.config", d.opts.Config),
		attribute.Int("doppler.secrets.count", len(names)),
	)

	out := make(map[string]string, len(names))
	var missing []string
	for _, name := range names {
		if value, ok := d.getCached(name); ok {
			out[name] = value
			continue
		}
		missing = append(missing, name)
	}
	span.SetAttributes(attribute.Int("doppler.cache.misses", len(missing)))
	if len(missing) == 0 {
		return out, nil
	}

	all, err := d.download(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	for _, name := range missing {
		value, ok := all[name]
		if !ok {
			err := fmt.Errorf("%s: %w", name, ErrNotFound)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		out[name] = value
	}
	// Cache only what was asked for; the rest of the config stays out of memory.
	for _, name := range missing {
		d.storeCache(name, out[name])
	}
	return out, nil
}

// Get retrieves a single secret by name, using the cache when possible.
func (d *Store) Get(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", errors.New("secret name required")
	}

	if value, ok := d.getCached(name); ok {
		return value, nil
	}

	var parsed secretResponse
	query := url.Values{"name": {name}}
	if err := d.get(ctx, "/v3/configs/config/secret", query, &parsed); err != nil {
		return "", err
	}
	if !parsed.Success || parsed.Value == nil {
		return "", fmt.Errorf("doppler error: %s", parsed.message())
	}
	// computed has variable references resolved
	d.storeCache(name, parsed.Value.Computed)
	return parsed.Value.Computed, nil
}

func (d *Store) download(ctx context.Context) (map[string]string, error) {
	query := url.Values{"format": {"json"}}
	var secrets map[string]string
	if err := d.get(ctx, "/v3/configs/config/secrets/download", query, &secrets); err != nil {
		return nil, err
	}
	return secrets, nil
}

// get issues an authenticated GET scoped to the configured project and
// config and decodes the JSON body into dst.
func (d *Store) get(ctx context.Context, path string, query url.Values, dst any) error {
	query.Set("project", d.opts.Project)
	query.Set("config", d.opts.Config)
	endpoint := d.opts.BaseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("doppler request build: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.opts.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("doppler request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("doppler read: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var parsed secretResponse
		if json.Unmarshal(body, &parsed) == nil && len(parsed.Messages) > 0 {
			return fmt.Errorf("doppler status %d: %s", resp.StatusCode, parsed.message())
		}
		return fmt.Errorf("doppler status %d: %s", resp.StatusCode, summarizeBody(body))
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("doppler decode: %w", err)
	}
	return nil
}

func (d *Store) getCached(name string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if entry, ok := d.cache[name]; ok {
		if time.Now().Before(entry.expires) {
			return entry.value, true
		}
		delete(d.cache, name)
	}
	return "", false
}

func (d *Store) storeCache(name, value string) {
	if d.opts.CacheTTL < 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cache[name] = cachedSecret{
		value:   value,
		expires: time.Now().Add(d.opts.CacheTTL),
	}
}

type secretResponse struct {
	Success  bool         `json:"success"`
	Name     string       `json:"name"`
	Value    *secretValue `json:"value"`
	Messages []apiError   `json:"messages"`
}

type secretValue struct {
	Raw      string `json:"raw"`
	Computed string `json:"computed"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (r secretResponse) message() string {
	if len(r.Messages) == 0 {
		return "unknown error"
	}
	return r.Messages[0].Message
}

func summarizeBody(body []byte) string {
	const maxLen = 256
	if len(body) <= maxLen {
		return string(body)
	}
	return string(body[:maxLen]) + "..."
}
