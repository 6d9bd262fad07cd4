package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"
)

// decodeJSON reads one JSON object, rewrites camelCase keys to snake_case at
// every depth and decodes strictly into dest.
func decodeJSON(r *http.Request, dest any) error {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return errors.New("request body is empty")
	}

	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	generic, err = normalizeKeys(generic)
	if err != nil {
		return err
	}
	normalized, err := json.Marshal(generic)
	if err != nil {
		return err
	}

	decoder := json.NewDecoder(bytes.NewReader(normalized))
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

// normalizeKeys rejects objects where two spellings such as modelId and
// model_id name the same field.
func normalizeKeys(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		seen := make(map[string]string, len(t))
		for k, val := range t {
			key := snakeCase(k)
			if prev, dup := seen[key]; dup {
				first, second := prev, k
				if second < first {
					first, second = second, first
				}
				return nil, fmt.Errorf("fields %q and %q both set %s", first, second, key)
			}
			seen[key] = k
			normalized, err := normalizeKeys(val)
			if err != nil {
				return nil, err
			}
			out[key] = normalized
		}
		return out, nil
	case []any:
		for i := range t {
			normalized, err := normalizeKeys(t[i])
			if err != nil {
				return nil, err
			}
			t[i] = normalized
		}
		return t, nil
	}
	return v, nil
}

// snakeCase turns costPerUnit into cost_per_unit and productModelID into
// product_model_id. Keys that are already snake_case are unchanged.
func snakeCase(key string) string {
	runes := []rune(key)
	var b strings.Builder
	b.Grow(len(key) + 4)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if prev != '_' && (unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower)) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func decodeOrReject(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := decodeJSON(r, dest); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func respond(w http.ResponseWriter, status int, payload any, err error) {
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, status, payload)
}

func respondDeleted(w http.ResponseWriter, err error) {
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	if status >= 500 {
		log.Error().Err(err).Int("status", status).Msg("internal error")
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
